package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
	"github.com/mmynk/splitcheck/internal/api/apiconnect"
	"github.com/mmynk/splitcheck/internal/auth"
	"github.com/mmynk/splitcheck/internal/calculator"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/realtime"
	"github.com/mmynk/splitcheck/internal/storage"
)

// DefaultFinalizeGrace is how long a closed session lingers before deletion,
// so that followers receive the status change first.
const DefaultFinalizeGrace = 500 * time.Millisecond

// SessionService implements the Connect SessionService.
type SessionService struct {
	apiconnect.UnimplementedSessionServiceHandler
	store  storage.Store
	tokens *auth.JWTManager
	events events
	logger *slog.Logger

	grace   time.Duration
	mu      sync.Mutex
	timers  map[string]*pendingDelete
	pending sync.WaitGroup
}

type pendingDelete struct {
	session *models.Session
	timer   *time.Timer
}

// NewSessionService creates a SessionService. pub may be nil.
func NewSessionService(store storage.Store, tokens *auth.JWTManager, pub Publisher, logger *slog.Logger) *SessionService {
	logger = logger.With("component", "session_service")
	return &SessionService{
		store:  store,
		tokens: tokens,
		events: events{pub: pub, logger: logger},
		logger: logger,
		grace:  DefaultFinalizeGrace,
		timers: make(map[string]*pendingDelete),
	}
}

// SetFinalizeGrace changes the delay between closing and deleting a
// finalized session.
func (s *SessionService) SetFinalizeGrace(d time.Duration) {
	s.grace = d
}

// Flush runs every scheduled session deletion now and waits for all of them
// to finish.
func (s *SessionService) Flush() {
	s.mu.Lock()
	for _, pd := range s.timers {
		if pd.timer.Stop() {
			go s.deleteFinalized(pd.session)
		}
	}
	s.mu.Unlock()
	s.pending.Wait()
}

func (s *SessionService) membership(session *models.Session, p *models.Participant) (*connect.Response[api.SessionMembership], error) {
	token, err := s.tokens.Generate(p)
	if err != nil {
		s.logger.Error("Failed to issue token", "participant_id", p.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(&api.SessionMembership{
		Session:     session,
		Participant: p,
		Token:       token,
	}), nil
}

// CreateSession creates a session and its owner.
func (s *SessionService) CreateSession(ctx context.Context, req *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionMembership], error) {
	s.logger.Info("CreateSession request received", "name", req.Msg.Name)

	ownerName, err := cleanName("owner_name", req.Msg.OwnerName, maxNameLength)
	if err != nil {
		return nil, err
	}
	session := &models.Session{}
	if req.Msg.Name != "" {
		if session.Name, err = cleanName("name", req.Msg.Name, maxItemNameLength); err != nil {
			return nil, err
		}
	}
	owner := &models.Participant{Name: ownerName}

	if err := s.store.CreateSession(ctx, session, owner); err != nil {
		s.logger.Error("CreateSession failed", "error", err)
		return nil, toConnectError(err)
	}

	s.events.publish(realtime.TableSessions, realtime.Insert, session.ID, session, nil)
	s.events.publish(realtime.TableParticipants, realtime.Insert, session.ID, owner, nil)
	s.logger.Info("Session created", "session_id", session.ID, "code", session.ShortCode)

	return s.membership(session, owner)
}

func (s *SessionService) sessionByCode(ctx context.Context, raw string) (*models.Session, error) {
	code := models.NormalizeCode(raw)
	if !models.IsValidCode(code) {
		return nil, invalidArgument("join code must be %d letters or digits", models.CodeLength)
	}
	session, err := s.store.GetSessionByCode(ctx, code)
	if err != nil {
		return nil, toConnectError(err)
	}
	return session, nil
}

// JoinSession adds a participant to the active session behind a join code.
func (s *SessionService) JoinSession(ctx context.Context, req *connect.Request[api.JoinSessionRequest]) (*connect.Response[api.SessionMembership], error) {
	s.logger.Info("JoinSession request received", "code", req.Msg.Code)

	name, err := cleanName("name", req.Msg.Name, maxNameLength)
	if err != nil {
		return nil, err
	}
	session, err := s.sessionByCode(ctx, req.Msg.Code)
	if err != nil {
		return nil, err
	}
	if session.Status != models.StatusActive {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("%w: %s", errSessionInactive, session.Status))
	}

	participant := &models.Participant{SessionID: session.ID, Name: name}
	if err := s.store.AddParticipant(ctx, participant); err != nil {
		s.logger.Error("JoinSession failed", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.events.publish(realtime.TableParticipants, realtime.Insert, session.ID, participant, nil)
	s.logger.Info("Participant joined", "session_id", session.ID, "participant_id", participant.ID)

	return s.membership(session, participant)
}

// LookupSession resolves a join code without joining.
func (s *SessionService) LookupSession(ctx context.Context, req *connect.Request[api.LookupSessionRequest]) (*connect.Response[api.LookupSessionResponse], error) {
	session, err := s.sessionByCode(ctx, req.Msg.Code)
	if err != nil {
		return nil, err
	}
	participants, err := s.store.ListParticipants(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&api.LookupSessionResponse{
		Session:      session,
		Participants: participants,
	}), nil
}

// GetSessionState returns a full snapshot of a session.
func (s *SessionService) GetSessionState(ctx context.Context, req *connect.Request[api.GetSessionStateRequest]) (*connect.Response[api.SessionState], error) {
	if req.Msg.SessionID == "" {
		return nil, invalidArgument("session_id is required")
	}

	session, err := s.store.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	participants, err := s.store.ListParticipants(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	items, err := s.store.ListItems(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	assignments, err := s.store.ListAssignments(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&api.SessionState{
		Session:      session,
		Participants: participants,
		Items:        items,
		Assignments:  assignments,
	}), nil
}

// UpdateTaxTip replaces the session's tip and tax configuration.
func (s *SessionService) UpdateTaxTip(ctx context.Context, req *connect.Request[api.UpdateTaxTipRequest]) (*connect.Response[api.UpdateTaxTipResponse], error) {
	msg := req.Msg
	s.logger.Info("UpdateTaxTip request received",
		"session_id", msg.SessionID,
		"tip_type", msg.TipType, "tip_value", msg.TipValue,
		"tax_type", msg.TaxType, "tax_value", msg.TaxValue,
	)

	if !msg.TipType.Valid() || !msg.TaxType.Valid() {
		return nil, invalidArgument("tip_type and tax_type must be %q or %q", models.TaxTipFixed, models.TaxTipPercentage)
	}
	if err := validAmount("tip_value", msg.TipValue); err != nil {
		return nil, err
	}
	if err := validAmount("tax_value", msg.TaxValue); err != nil {
		return nil, err
	}
	if _, err := requireOwner(ctx, s.store, msg.SessionID); err != nil {
		return nil, err
	}
	session, err := activeSession(ctx, s.store, msg.SessionID)
	if err != nil {
		return nil, err
	}

	old := *session
	session.TipType, session.TipValue = msg.TipType, msg.TipValue
	session.TaxType, session.TaxValue = msg.TaxType, msg.TaxValue
	if err := s.store.UpdateTaxTip(ctx, session); err != nil {
		s.logger.Error("UpdateTaxTip failed", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.events.publish(realtime.TableSessions, realtime.Update, session.ID, session, &old)
	return connect.NewResponse(&api.UpdateTaxTipResponse{Session: session}), nil
}

// RemoveParticipant kicks a participant; their shares are redistributed.
func (s *SessionService) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	msg := req.Msg
	s.logger.Info("RemoveParticipant request received", "session_id", msg.SessionID, "participant_id", msg.ParticipantID)

	if msg.SessionID == "" || msg.ParticipantID == "" {
		return nil, invalidArgument("session_id and participant_id are required")
	}
	if _, err := requireOwner(ctx, s.store, msg.SessionID); err != nil {
		return nil, err
	}
	if _, err := activeSession(ctx, s.store, msg.SessionID); err != nil {
		return nil, err
	}

	target, err := s.store.GetParticipant(ctx, msg.ParticipantID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if target.SessionID != msg.SessionID {
		return nil, connect.NewError(connect.CodeNotFound,
			fmt.Errorf("participant %s: %w", msg.ParticipantID, storage.ErrNotFound))
	}
	if target.IsOwner {
		return nil, invalidArgument("the session owner cannot be removed")
	}

	changes, err := s.store.DeleteParticipant(ctx, target.ID)
	if err != nil {
		s.logger.Error("RemoveParticipant failed", "participant_id", target.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.events.assignmentChanges(msg.SessionID, changes)
	s.events.publish(realtime.TableParticipants, realtime.Delete, msg.SessionID, nil, target)
	s.logger.Info("Participant removed", "session_id", msg.SessionID, "participant_id", target.ID,
		"assignments_deleted", len(changes.Deleted))

	return connect.NewResponse(&api.RemoveParticipantResponse{}), nil
}

// FinalizeSession closes a session and schedules its deletion.
//
// Checks run in order: both ids present, the participant belongs to the
// session, the participant is the owner, the session exists and is active.
func (s *SessionService) FinalizeSession(ctx context.Context, req *connect.Request[api.FinalizeSessionRequest]) (*connect.Response[api.FinalizeSessionResponse], error) {
	msg := req.Msg
	s.logger.Info("FinalizeSession request received", "session_id", msg.SessionID, "participant_id", msg.ParticipantID)

	if msg.SessionID == "" || msg.ParticipantID == "" {
		return nil, invalidArgument("session_id and participant_id are required")
	}
	caller, err := authorize(ctx, s.store, msg.SessionID)
	if err != nil {
		return nil, err
	}

	participant, err := s.store.GetParticipant(ctx, msg.ParticipantID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, toConnectError(err)
	}
	if participant == nil || participant.SessionID != msg.SessionID {
		return nil, connect.NewError(connect.CodeNotFound,
			fmt.Errorf("participant %s is not part of session %s", msg.ParticipantID, msg.SessionID))
	}
	if !participant.IsOwner || participant.ID != caller.ID {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotOwner)
	}

	session, err := activeSession(ctx, s.store, msg.SessionID)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateSessionStatus(ctx, session.ID, models.StatusActive, models.StatusClosed); err != nil {
		s.logger.Error("FinalizeSession failed", "session_id", session.ID, "error", err)
		return nil, toConnectError(err)
	}
	old := *session
	session.Status = models.StatusClosed
	s.events.publish(realtime.TableSessions, realtime.Update, session.ID, session, &old)
	s.logger.Info("Session closed", "session_id", session.ID, "grace", s.grace)

	s.scheduleDelete(session)

	return connect.NewResponse(&api.FinalizeSessionResponse{Success: true}), nil
}

// scheduleDelete removes a closed session after the grace window. The
// deletion runs detached from the request.
func (s *SessionService) scheduleDelete(session *models.Session) {
	s.pending.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := &pendingDelete{session: session}
	s.timers[session.ID] = pd
	pd.timer = time.AfterFunc(s.grace, func() { s.deleteFinalized(session) })
}

func (s *SessionService) deleteFinalized(session *models.Session) {
	defer s.pending.Done()
	s.mu.Lock()
	delete(s.timers, session.ID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.store.DeleteSession(ctx, session.ID); err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("Failed to delete finalized session", "session_id", session.ID, "error", err)
		}
		return
	}
	s.events.publish(realtime.TableSessions, realtime.Delete, session.ID, nil, session)
	s.logger.Info("Session deleted", "session_id", session.ID)
}

// GetSettlement computes what every participant owes.
func (s *SessionService) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.Settlement], error) {
	if req.Msg.SessionID == "" {
		return nil, invalidArgument("session_id is required")
	}

	session, err := s.store.GetSession(ctx, req.Msg.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	participants, err := s.store.ListParticipants(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	items, err := s.store.ListItems(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}
	assignments, err := s.store.ListAssignments(ctx, session.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(settlementResponse(session, participants, items, assignments)), nil
}

func settlementResponse(session *models.Session, participants []*models.Participant, items []*models.Item, assignments []*models.Assignment) *api.Settlement {
	calcItems := make([]calculator.Item, len(items))
	for i, item := range items {
		calcItems[i] = calculator.Item{ID: item.ID, Description: item.Name, Amount: item.TotalPrice}
	}
	shares := make([]calculator.Share, len(assignments))
	for i, a := range assignments {
		shares[i] = calculator.Share{ID: a.ID, ItemID: a.ItemID, ParticipantID: a.ParticipantID, Fraction: a.ShareFraction}
	}
	tip := calculator.Charge{Kind: calculator.ChargeKind(session.TipType), Value: session.TipValue}
	tax := calculator.Charge{Kind: calculator.ChargeKind(session.TaxType), Value: session.TaxValue}

	result := calculator.Settle(calcItems, shares, tip, tax)

	resp := &api.Settlement{
		Subtotal:        result.Subtotal,
		Tip:             result.Tip,
		Tax:             result.Tax,
		Total:           result.Total,
		TotalDisplay:    calculator.FormatCOP(result.Total),
		Unassigned:      result.Unassigned,
		UnassignedTotal: result.UnassignedTotal,
		People:          make([]*api.PersonSettlement, 0, len(participants)),
	}
	for _, p := range participants {
		person := &api.PersonSettlement{
			ParticipantID: p.ID,
			Name:          p.Name,
			TotalDisplay:  calculator.FormatCOP(0),
			Items:         []api.PersonItem{},
		}
		if split, ok := result.People[p.ID]; ok {
			person.Subtotal = split.Subtotal
			person.Tip = split.Tip
			person.Tax = split.Tax
			person.Total = split.Total
			person.TotalDisplay = calculator.FormatCOP(split.Total)
			for _, pi := range split.Items {
				person.Items = append(person.Items, api.PersonItem{
					ItemID:        pi.ItemID,
					Name:          pi.Description,
					Fraction:      pi.Fraction,
					Amount:        pi.Amount,
					AmountDisplay: calculator.FormatCOPWithDecimals(pi.Amount),
				})
			}
		}
		resp.People = append(resp.People, person)
	}
	return resp
}
