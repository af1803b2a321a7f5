package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
	"github.com/mmynk/splitcheck/internal/api/apiconnect"
	"github.com/mmynk/splitcheck/internal/calculator"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/realtime"
	"github.com/mmynk/splitcheck/internal/storage"
)

// ItemService implements the Connect ItemService.
type ItemService struct {
	apiconnect.UnimplementedItemServiceHandler
	store  storage.Store
	events events
	logger *slog.Logger
}

// NewItemService creates an ItemService. pub may be nil.
func NewItemService(store storage.Store, pub Publisher, logger *slog.Logger) *ItemService {
	logger = logger.With("component", "item_service")
	return &ItemService{
		store:  store,
		events: events{pub: pub, logger: logger},
		logger: logger,
	}
}

func validateItem(name string, quantity int, unitPrice float64) (string, error) {
	name, err := cleanName("name", name, maxItemNameLength)
	if err != nil {
		return "", err
	}
	if quantity < 1 || quantity > maxItemQuantity {
		return "", invalidArgument("quantity must be between 1 and %d", maxItemQuantity)
	}
	if err := validAmount("unit_price", unitPrice); err != nil {
		return "", err
	}
	return name, nil
}

// unitPrice prefers the typed price text over the numeric field.
func unitPrice(value float64, text string) float64 {
	if strings.TrimSpace(text) == "" {
		return value
	}
	return calculator.ParseCOP(text)
}

func itemResponse(item *models.Item) *connect.Response[api.ItemResponse] {
	return connect.NewResponse(&api.ItemResponse{
		Item:           item,
		UnitPriceInput: calculator.FormatNumberForInput(item.UnitPrice),
	})
}

// editableItem loads an item and checks the caller may change it.
func (s *ItemService) editableItem(ctx context.Context, itemID string) (*models.Item, error) {
	if itemID == "" {
		return nil, invalidArgument("item_id is required")
	}
	item, err := s.store.GetItem(ctx, itemID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if _, err := authorize(ctx, s.store, item.SessionID); err != nil {
		return nil, err
	}
	if _, err := activeSession(ctx, s.store, item.SessionID); err != nil {
		return nil, err
	}
	return item, nil
}

// AddItem appends a manually entered item.
func (s *ItemService) AddItem(ctx context.Context, req *connect.Request[api.AddItemRequest]) (*connect.Response[api.ItemResponse], error) {
	msg := req.Msg
	s.logger.Info("AddItem request received", "session_id", msg.SessionID, "name", msg.Name)

	price := unitPrice(msg.UnitPrice, msg.UnitPriceText)
	name, err := validateItem(msg.Name, msg.Quantity, price)
	if err != nil {
		return nil, err
	}
	if _, err := authorize(ctx, s.store, msg.SessionID); err != nil {
		return nil, err
	}
	if _, err := activeSession(ctx, s.store, msg.SessionID); err != nil {
		return nil, err
	}

	item := &models.Item{
		Name:          name,
		Quantity:      msg.Quantity,
		UnitPrice:     price,
		ManuallyAdded: true,
	}
	if err := s.store.CreateItems(ctx, msg.SessionID, []*models.Item{item}); err != nil {
		s.logger.Error("AddItem failed", "session_id", msg.SessionID, "error", err)
		return nil, toConnectError(err)
	}

	s.events.publish(realtime.TableItems, realtime.Insert, item.SessionID, item, nil)
	return itemResponse(item), nil
}

// UpdateItem edits an item's name, quantity and unit price.
func (s *ItemService) UpdateItem(ctx context.Context, req *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.ItemResponse], error) {
	msg := req.Msg
	s.logger.Info("UpdateItem request received", "item_id", msg.ItemID)

	price := unitPrice(msg.UnitPrice, msg.UnitPriceText)
	name, err := validateItem(msg.Name, msg.Quantity, price)
	if err != nil {
		return nil, err
	}
	item, err := s.editableItem(ctx, msg.ItemID)
	if err != nil {
		return nil, err
	}

	old := *item
	item.Name, item.Quantity, item.UnitPrice = name, msg.Quantity, price
	if err := s.store.UpdateItem(ctx, item); err != nil {
		s.logger.Error("UpdateItem failed", "item_id", item.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.events.publish(realtime.TableItems, realtime.Update, item.SessionID, item, &old)
	return itemResponse(item), nil
}

// DeleteItem removes an item and, through the cascade, its assignments.
func (s *ItemService) DeleteItem(ctx context.Context, req *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error) {
	s.logger.Info("DeleteItem request received", "item_id", req.Msg.ItemID)

	item, err := s.editableItem(ctx, req.Msg.ItemID)
	if err != nil {
		return nil, err
	}
	if err := s.store.DeleteItem(ctx, item.ID); err != nil {
		s.logger.Error("DeleteItem failed", "item_id", item.ID, "error", err)
		return nil, toConnectError(err)
	}

	s.events.publish(realtime.TableItems, realtime.Delete, item.SessionID, nil, item)
	return connect.NewResponse(&api.DeleteItemResponse{}), nil
}

// toggleFailed reports a bad item or participant reference as a generic
// failure.
func toggleFailed(err error) error {
	return connect.NewError(connect.CodeInternal, fmt.Errorf("toggle assignment: %w", err))
}

// ToggleAssignment adds or removes a participant on an item and rebalances
// the item's shares equally.
func (s *ItemService) ToggleAssignment(ctx context.Context, req *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.ToggleAssignmentResponse], error) {
	msg := req.Msg
	s.logger.Info("ToggleAssignment request received", "item_id", msg.ItemID, "participant_id", msg.ParticipantID)

	if msg.ParticipantID == "" {
		return nil, invalidArgument("participant_id is required")
	}
	if msg.ItemID == "" {
		return nil, invalidArgument("item_id is required")
	}
	item, err := s.store.GetItem(ctx, msg.ItemID)
	if err != nil {
		return nil, toggleFailed(err)
	}
	if _, err := authorize(ctx, s.store, item.SessionID); err != nil {
		return nil, err
	}
	if _, err := activeSession(ctx, s.store, item.SessionID); err != nil {
		return nil, err
	}
	participant, err := s.store.GetParticipant(ctx, msg.ParticipantID)
	if err != nil {
		return nil, toggleFailed(err)
	}
	if participant.SessionID != item.SessionID {
		return nil, toggleFailed(fmt.Errorf("participant %s belongs to another session", participant.ID))
	}

	changes, err := s.store.ToggleAssignment(ctx, item.ID, participant.ID)
	if err != nil {
		s.logger.Error("ToggleAssignment failed", "item_id", item.ID, "participant_id", participant.ID, "error", err)
		return nil, toConnectError(err)
	}
	s.events.assignmentChanges(item.SessionID, changes)

	all, err := s.store.ListAssignments(ctx, item.SessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	resp := &api.ToggleAssignmentResponse{Assignments: []*models.Assignment{}}
	for _, a := range all {
		if a.ItemID == item.ID {
			resp.Assignments = append(resp.Assignments, a)
		}
	}
	resp.IsShared = len(resp.Assignments) >= 2

	s.logger.Info("Assignment toggled", "item_id", item.ID, "assignees", len(resp.Assignments))
	return connect.NewResponse(resp), nil
}
