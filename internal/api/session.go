package api

import "github.com/mmynk/splitcheck/internal/models"

// CreateSessionRequest starts a new session owned by OwnerName.
type CreateSessionRequest struct {
	Name      string `json:"name"`
	OwnerName string `json:"owner_name"`
}

// JoinSessionRequest joins the session identified by a join code.
type JoinSessionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// SessionMembership is returned on create and join. Token authenticates the
// participant on later calls.
type SessionMembership struct {
	Session     *models.Session     `json:"session"`
	Participant *models.Participant `json:"participant"`
	Token       string              `json:"token"`
}

// LookupSessionRequest resolves a join code before joining.
type LookupSessionRequest struct {
	Code string `json:"code"`
}

// LookupSessionResponse lists the current participants so a returning
// client can recognise itself.
type LookupSessionResponse struct {
	Session      *models.Session       `json:"session"`
	Participants []*models.Participant `json:"participants"`
}

// GetSessionStateRequest asks for a full snapshot.
type GetSessionStateRequest struct {
	SessionID string `json:"session_id"`
}

// SessionState is a full snapshot of a session's rows.
type SessionState struct {
	Session      *models.Session       `json:"session"`
	Participants []*models.Participant `json:"participants"`
	Items        []*models.Item        `json:"items"`
	Assignments  []*models.Assignment  `json:"assignments"`
}

// UpdateTaxTipRequest replaces the tip and tax configuration.
type UpdateTaxTipRequest struct {
	SessionID string            `json:"session_id"`
	TipType   models.TaxTipType `json:"tip_type"`
	TipValue  float64           `json:"tip_value"`
	TaxType   models.TaxTipType `json:"tax_type"`
	TaxValue  float64           `json:"tax_value"`
}

// UpdateTaxTipResponse returns the updated session.
type UpdateTaxTipResponse struct {
	Session *models.Session `json:"session"`
}

// RemoveParticipantRequest kicks a participant.
type RemoveParticipantRequest struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

// RemoveParticipantResponse is empty.
type RemoveParticipantResponse struct{}

// FinalizeSessionRequest closes a session on behalf of ParticipantID.
type FinalizeSessionRequest struct {
	SessionID     string `json:"session_id"`
	ParticipantID string `json:"participant_id"`
}

// FinalizeSessionResponse reports success.
type FinalizeSessionResponse struct {
	Success bool `json:"success"`
}

// GetSettlementRequest asks for the per-participant breakdown.
type GetSettlementRequest struct {
	SessionID string `json:"session_id"`
}

// PersonItem is one participant's share of one item.
type PersonItem struct {
	ItemID        string  `json:"item_id"`
	Name          string  `json:"name"`
	Fraction      float64 `json:"fraction"`
	Amount        float64 `json:"amount"`
	AmountDisplay string  `json:"amount_display"`
}

// PersonSettlement is what one participant owes.
type PersonSettlement struct {
	ParticipantID string       `json:"participant_id"`
	Name          string       `json:"name"`
	Subtotal      float64      `json:"subtotal"`
	Tip           float64      `json:"tip"`
	Tax           float64      `json:"tax"`
	Total         float64      `json:"total"`
	TotalDisplay  string       `json:"total_display"`
	Items         []PersonItem `json:"items"`
}

// Settlement is the session-wide breakdown. Totals of every person plus
// UnassignedTotal add up to Total.
type Settlement struct {
	Subtotal        float64             `json:"subtotal"`
	Tip             float64             `json:"tip"`
	Tax             float64             `json:"tax"`
	Total           float64             `json:"total"`
	TotalDisplay    string              `json:"total_display"`
	Unassigned      float64             `json:"unassigned"`
	UnassignedTotal float64             `json:"unassigned_total"`
	People          []*PersonSettlement `json:"people"`
}
