package models

// Item represents a single billed line on a receipt.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// SessionID is the owning session.
	SessionID string `json:"session_id"`

	// Name is the product or service name as printed on the receipt.
	Name string `json:"name"`

	// Quantity is a positive integer.
	Quantity int `json:"quantity"`

	// UnitPrice is the non-negative price of one unit.
	UnitPrice float64 `json:"unit_price"`

	// TotalPrice is UnitPrice * Quantity. Derived on every write.
	TotalPrice float64 `json:"total_price"`

	// OrderIndex positions the item in the list.
	OrderIndex int `json:"order_index"`

	// IsShared is true when the item has two or more assignees.
	// An item with exactly one assignee is assigned but not shared;
	// an item with none is unassigned.
	IsShared bool `json:"is_shared"`

	// OCRConfidence is the model's legibility score in [0,1].
	// Only set for items detected from a receipt photo.
	OCRConfidence *float64 `json:"ocr_confidence"`

	// ManuallyAdded is true for items entered by hand.
	ManuallyAdded bool `json:"manually_added"`

	// CreatedAt is the Unix timestamp when the item was created.
	CreatedAt int64 `json:"created_at"`
}

// ComputeTotal sets TotalPrice from UnitPrice and Quantity.
func (i *Item) ComputeTotal() {
	i.TotalPrice = i.UnitPrice * float64(i.Quantity)
}
