package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
	"github.com/mmynk/splitcheck/internal/api/apiconnect"
	"github.com/mmynk/splitcheck/internal/auth"
	"github.com/mmynk/splitcheck/internal/middleware"
	"github.com/mmynk/splitcheck/internal/realtime"
	"github.com/mmynk/splitcheck/internal/receipts"
	"github.com/mmynk/splitcheck/internal/storage/sqlite"
)

type testEnv struct {
	store    *sqlite.SQLiteStore
	hub      *realtime.Hub
	sessions *SessionService

	sessionClient apiconnect.SessionServiceClient
	itemClient    apiconnect.ItemServiceClient
	receiptClient apiconnect.ReceiptServiceClient
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer serves all three services over httptest with a temp SQLite
// database and the production interceptors.
func setupTestServer(t *testing.T, extractor Extractor) *testEnv {
	t.Helper()
	return setupTestServerWithImages(t, extractor, nil)
}

func setupTestServerWithImages(t *testing.T, extractor Extractor, images receipts.Store) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	logger := discardLogger()
	hub := realtime.NewHub(logger)
	tokens := auth.NewJWTManager("test-secret", time.Hour)

	sessions := NewSessionService(store, tokens, hub, logger)
	sessions.SetFinalizeGrace(10 * time.Millisecond)

	interceptors := connect.WithInterceptors(
		middleware.RecoverInterceptor(logger),
		middleware.LoggingInterceptor(logger),
		middleware.RequireAuth(tokens, PublicProcedures...),
	)

	mux := http.NewServeMux()
	mux.Handle(apiconnect.NewSessionServiceHandler(sessions, interceptors))
	mux.Handle(apiconnect.NewItemServiceHandler(NewItemService(store, hub, logger), interceptors))
	mux.Handle(apiconnect.NewReceiptServiceHandler(NewReceiptService(store, extractor, images, hub, logger), interceptors))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		sessions.Flush()
		store.Close()
	})

	return &testEnv{
		store:         store,
		hub:           hub,
		sessions:      sessions,
		sessionClient: apiconnect.NewSessionServiceClient(http.DefaultClient, server.URL),
		itemClient:    apiconnect.NewItemServiceClient(http.DefaultClient, server.URL),
		receiptClient: apiconnect.NewReceiptServiceClient(http.DefaultClient, server.URL),
	}
}

// withToken builds a request carrying a participant token.
func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

// createSession creates a session owned by ownerName and joins every guest.
func createSession(t *testing.T, env *testEnv, ownerName string, guests ...string) (*api.SessionMembership, []*api.SessionMembership) {
	t.Helper()
	ctx := context.Background()

	created, err := env.sessionClient.CreateSession(ctx, connect.NewRequest(&api.CreateSessionRequest{
		Name:      "Friday dinner",
		OwnerName: ownerName,
	}))
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	joined := make([]*api.SessionMembership, len(guests))
	for i, name := range guests {
		resp, err := env.sessionClient.JoinSession(ctx, connect.NewRequest(&api.JoinSessionRequest{
			Code: created.Msg.Session.ShortCode,
			Name: name,
		}))
		if err != nil {
			t.Fatalf("JoinSession(%s) failed: %v", name, err)
		}
		joined[i] = resp.Msg
	}
	return created.Msg, joined
}

func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	if got := connect.CodeOf(err); got != want {
		t.Fatalf("expected code %v, got %v (%v)", want, got, err)
	}
}

// nextEvent waits for the next event on sub matching table and type.
func nextEvent(t *testing.T, sub *realtime.Subscription, table realtime.Table, typ realtime.EventType) realtime.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-sub.C():
			if !ok {
				t.Fatalf("subscription closed while waiting for %s %s", table, typ)
			}
			if e.Table == table && e.Type == typ {
				return e
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s %s event", table, typ)
		}
	}
}

func TestToConnectError(t *testing.T) {
	tests := []struct {
		err  error
		want connect.Code
	}{
		{errors.New("boom"), connect.CodeInternal},
		{context.DeadlineExceeded, connect.CodeDeadlineExceeded},
		{context.Canceled, connect.CodeCanceled},
	}
	for _, tt := range tests {
		if got := connect.CodeOf(toConnectError(tt.err)); got != tt.want {
			t.Errorf("toConnectError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupTestServer(t, &fakeExtractor{})
	owner, _ := createSession(t, env, "Ana")
	ctx := context.Background()

	_, err := env.itemClient.AddItem(ctx, connect.NewRequest(&api.AddItemRequest{
		SessionID: owner.Session.ID, Name: "Pizza", Quantity: 1, UnitPrice: 10000,
	}))
	assertCode(t, err, connect.CodeUnauthenticated)

	_, err = env.itemClient.AddItem(ctx, withToken(&api.AddItemRequest{
		SessionID: owner.Session.ID, Name: "Pizza", Quantity: 1, UnitPrice: 10000,
	}, "not-a-jwt"))
	assertCode(t, err, connect.CodeUnauthenticated)

	other, _ := createSession(t, env, "Beto")
	_, err = env.itemClient.AddItem(ctx, withToken(&api.AddItemRequest{
		SessionID: owner.Session.ID, Name: "Pizza", Quantity: 1, UnitPrice: 10000,
	}, other.Token))
	assertCode(t, err, connect.CodePermissionDenied)

	// Public procedures work without a token.
	if _, err := env.sessionClient.GetSessionState(ctx, connect.NewRequest(&api.GetSessionStateRequest{
		SessionID: owner.Session.ID,
	})); err != nil {
		t.Fatalf("GetSessionState without token failed: %v", err)
	}
}
