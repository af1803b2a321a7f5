package service

import (
	"context"
	"math"
	"testing"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/realtime"
)

func addItem(t *testing.T, env *testEnv, m *api.SessionMembership, name string, quantity int, unitPrice float64) *models.Item {
	t.Helper()
	resp, err := env.itemClient.AddItem(context.Background(), withToken(&api.AddItemRequest{
		SessionID: m.Session.ID,
		Name:      name,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}, m.Token))
	if err != nil {
		t.Fatalf("AddItem(%s) failed: %v", name, err)
	}
	return resp.Msg.Item
}

func toggle(t *testing.T, env *testEnv, token, itemID, participantID string) *api.ToggleAssignmentResponse {
	t.Helper()
	resp, err := env.itemClient.ToggleAssignment(context.Background(), withToken(&api.ToggleAssignmentRequest{
		ItemID:        itemID,
		ParticipantID: participantID,
	}, token))
	if err != nil {
		t.Fatalf("ToggleAssignment failed: %v", err)
	}
	return resp.Msg
}

func sessionState(t *testing.T, env *testEnv, sessionID string) *api.SessionState {
	t.Helper()
	resp, err := env.sessionClient.GetSessionState(context.Background(), connect.NewRequest(&api.GetSessionStateRequest{
		SessionID: sessionID,
	}))
	if err != nil {
		t.Fatalf("GetSessionState failed: %v", err)
	}
	return resp.Msg
}

func TestAddItem(t *testing.T) {
	env := setupTestServer(t, &fakeExtractor{})
	owner, guests := createSession(t, env, "Ana", "Beto")
	ctx := context.Background()

	first := addItem(t, env, owner, "Empanadas", 3, 4500)
	if !first.ManuallyAdded || first.TotalPrice != 13500 || first.OrderIndex != 0 {
		t.Errorf("unexpected item: %+v", first)
	}
	// Guests may add items too.
	second := addItem(t, env, guests[0], "Limonada", 1, 6000)
	if second.OrderIndex != 1 {
		t.Errorf("expected order index 1, got %d", second.OrderIndex)
	}

	typed, err := env.itemClient.AddItem(ctx, withToken(&api.AddItemRequest{
		SessionID: owner.Session.ID, Name: "Arepa", Quantity: 2, UnitPriceText: "$12.500",
	}, owner.Token))
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if typed.Msg.Item.UnitPrice != 12500 || typed.Msg.Item.TotalPrice != 25000 || typed.Msg.UnitPriceInput != "12.500" {
		t.Errorf("unexpected typed item: %+v input %q", typed.Msg.Item, typed.Msg.UnitPriceInput)
	}

	tests := []struct {
		name string
		req  *api.AddItemRequest
	}{
		{"blank name", &api.AddItemRequest{SessionID: owner.Session.ID, Name: " ", Quantity: 1, UnitPrice: 1}},
		{"zero quantity", &api.AddItemRequest{SessionID: owner.Session.ID, Name: "Agua", Quantity: 0, UnitPrice: 1}},
		{"negative price", &api.AddItemRequest{SessionID: owner.Session.ID, Name: "Agua", Quantity: 1, UnitPrice: -1}},
		{"huge quantity", &api.AddItemRequest{SessionID: owner.Session.ID, Name: "Agua", Quantity: maxItemQuantity + 1, UnitPrice: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.itemClient.AddItem(ctx, withToken(tt.req, owner.Token))
			assertCode(t, err, connect.CodeInvalidArgument)
		})
	}
}

func TestUpdateAndDeleteItem(t *testing.T) {
	env := setupTestServer(t, &fakeExtractor{})
	owner, guests := createSession(t, env, "Ana", "Beto")
	ctx := context.Background()
	item := addItem(t, env, owner, "Pizza", 1, 30000)
	toggle(t, env, owner.Token, item.ID, owner.Participant.ID)

	sub := env.hub.Subscribe(owner.Session.ID)
	defer sub.Close()

	resp, err := env.itemClient.UpdateItem(ctx, withToken(&api.UpdateItemRequest{
		ItemID: item.ID, Name: "Pizza grande", Quantity: 2, UnitPrice: 35000,
	}, guests[0].Token))
	if err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}
	if resp.Msg.Item.TotalPrice != 70000 || resp.Msg.Item.Name != "Pizza grande" {
		t.Errorf("unexpected updated item: %+v", resp.Msg.Item)
	}
	e := nextEvent(t, sub, realtime.TableItems, realtime.Update)
	var old models.Item
	if err := e.DecodeOld(&old); err != nil || old.Name != "Pizza" {
		t.Errorf("expected old row image, got %+v (%v)", old, err)
	}

	_, err = env.itemClient.UpdateItem(ctx, withToken(&api.UpdateItemRequest{
		ItemID: "missing", Name: "X", Quantity: 1, UnitPrice: 1,
	}, owner.Token))
	assertCode(t, err, connect.CodeNotFound)

	if _, err := env.itemClient.DeleteItem(ctx, withToken(&api.DeleteItemRequest{ItemID: item.ID}, owner.Token)); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}
	nextEvent(t, sub, realtime.TableItems, realtime.Delete)

	state := sessionState(t, env, owner.Session.ID)
	if len(state.Items) != 0 || len(state.Assignments) != 0 {
		t.Errorf("expected item and its assignments gone, got %d items %d assignments", len(state.Items), len(state.Assignments))
	}

	_, err = env.itemClient.DeleteItem(ctx, withToken(&api.DeleteItemRequest{ItemID: item.ID}, owner.Token))
	assertCode(t, err, connect.CodeNotFound)
}

func TestToggleAssignment(t *testing.T) {
	env := setupTestServer(t, &fakeExtractor{})
	owner, guests := createSession(t, env, "Ana", "Beto", "Caro")
	item := addItem(t, env, owner, "Pizza", 1, 30000)
	ids := []string{owner.Participant.ID, guests[0].Participant.ID, guests[1].Participant.ID}

	check := func(resp *api.ToggleAssignmentResponse, count int, shared bool) {
		t.Helper()
		if len(resp.Assignments) != count {
			t.Fatalf("expected %d assignments, got %d", count, len(resp.Assignments))
		}
		if resp.IsShared != shared {
			t.Errorf("expected is_shared=%v", shared)
		}
		var sum float64
		for _, a := range resp.Assignments {
			if math.Abs(a.ShareFraction-1/float64(count)) > 1e-9 {
				t.Errorf("expected equal share 1/%d, got %v", count, a.ShareFraction)
			}
			sum += a.ShareFraction
		}
		if count > 0 && math.Abs(sum-1) > 1e-9 {
			t.Errorf("fractions sum to %v, want 1", sum)
		}
	}

	check(toggle(t, env, owner.Token, item.ID, ids[0]), 1, false)
	check(toggle(t, env, owner.Token, item.ID, ids[1]), 2, true)
	check(toggle(t, env, guests[1].Token, item.ID, ids[2]), 3, true)
	check(toggle(t, env, owner.Token, item.ID, ids[1]), 2, true)
	check(toggle(t, env, owner.Token, item.ID, ids[0]), 1, false)
	check(toggle(t, env, owner.Token, item.ID, ids[2]), 0, false)

	other, _ := createSession(t, env, "Dani")
	bad := []api.ToggleAssignmentRequest{
		{ItemID: item.ID, ParticipantID: other.Participant.ID},
		{ItemID: item.ID, ParticipantID: "missing"},
		{ItemID: "missing", ParticipantID: ids[0]},
	}
	for _, req := range bad {
		_, err := env.itemClient.ToggleAssignment(context.Background(), withToken(&req, owner.Token))
		assertCode(t, err, connect.CodeInternal)
	}
}

func TestToggleAssignmentPublishesChanges(t *testing.T) {
	env := setupTestServer(t, &fakeExtractor{})
	owner, guests := createSession(t, env, "Ana", "Beto")
	item := addItem(t, env, owner, "Pizza", 1, 30000)
	toggle(t, env, owner.Token, item.ID, owner.Participant.ID)

	sub := env.hub.Subscribe(owner.Session.ID)
	defer sub.Close()

	toggle(t, env, owner.Token, item.ID, guests[0].Participant.ID)

	var updated models.Assignment
	if err := nextEvent(t, sub, realtime.TableAssignments, realtime.Update).DecodeNew(&updated); err != nil {
		t.Fatal(err)
	}
	if updated.ParticipantID != owner.Participant.ID || updated.ShareFraction != 0.5 {
		t.Errorf("unexpected updated assignment: %+v", updated)
	}
	var inserted models.Assignment
	if err := nextEvent(t, sub, realtime.TableAssignments, realtime.Insert).DecodeNew(&inserted); err != nil {
		t.Fatal(err)
	}
	if inserted.ParticipantID != guests[0].Participant.ID || inserted.ShareFraction != 0.5 {
		t.Errorf("unexpected inserted assignment: %+v", inserted)
	}
	var shared models.Item
	if err := nextEvent(t, sub, realtime.TableItems, realtime.Update).DecodeNew(&shared); err != nil {
		t.Fatal(err)
	}
	if !shared.IsShared {
		t.Error("expected item to be marked shared")
	}
}
