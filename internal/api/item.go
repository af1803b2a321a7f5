package api

import (
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/ocr"
)

// AddItemRequest adds a manually entered item. UnitPriceText, when set, is
// the price as typed in the form ("12.500") and takes precedence over
// UnitPrice.
type AddItemRequest struct {
	SessionID     string  `json:"session_id"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	UnitPriceText string  `json:"unit_price_text,omitempty"`
}

// UpdateItemRequest edits an item. UnitPriceText works as in AddItemRequest.
type UpdateItemRequest struct {
	ItemID        string  `json:"item_id"`
	Name          string  `json:"name"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	UnitPriceText string  `json:"unit_price_text,omitempty"`
}

// ItemResponse returns the stored item. UnitPriceInput prefills the edit
// form.
type ItemResponse struct {
	Item           *models.Item `json:"item"`
	UnitPriceInput string       `json:"unit_price_input"`
}

// DeleteItemRequest removes an item.
type DeleteItemRequest struct {
	ItemID string `json:"item_id"`
}

// DeleteItemResponse is empty.
type DeleteItemResponse struct{}

// ToggleAssignmentRequest toggles a participant on an item.
type ToggleAssignmentRequest struct {
	ItemID        string `json:"item_id"`
	ParticipantID string `json:"participant_id"`
}

// ToggleAssignmentResponse lists the item's assignments after the toggle.
type ToggleAssignmentResponse struct {
	Assignments []*models.Assignment `json:"assignments"`
	IsShared    bool                 `json:"is_shared"`
}

// ScanReceiptRequest carries a receipt photo.
type ScanReceiptRequest struct {
	SessionID string `json:"session_id"`
	Image     []byte `json:"image"`
	MimeType  string `json:"mime_type"`
}

// ScanReceiptResponse returns the detected items. Saved is false when they
// could not be persisted; Error then explains why.
type ScanReceiptResponse struct {
	Items           []ocr.DetectedItem `json:"items"`
	Saved           bool               `json:"saved"`
	SavedItems      []*models.Item     `json:"saved_items,omitempty"`
	ReceiptImageURL string             `json:"receipt_image_url,omitempty"`
	Error           string             `json:"error,omitempty"`
}
