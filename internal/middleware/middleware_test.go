package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
	"github.com/mmynk/splitcheck/internal/auth"
	"github.com/mmynk/splitcheck/internal/models"
)

const (
	openProcedure   = "/test.v1.PingService/Open"
	closedProcedure = "/test.v1.PingService/Closed"
	panicProcedure  = "/test.v1.PingService/Panic"
)

type pingRequest struct{}

type pingResponse struct {
	ParticipantID string `json:"participant_id"`
	SessionID     string `json:"session_id"`
}

func ping(ctx context.Context, _ *connect.Request[pingRequest]) (*connect.Response[pingResponse], error) {
	return connect.NewResponse(&pingResponse{
		ParticipantID: GetParticipantID(ctx),
		SessionID:     GetSessionID(ctx),
	}), nil
}

func setupPingServer(t *testing.T, tokens *auth.JWTManager) string {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts := []connect.HandlerOption{
		connect.WithCodec(api.Codec{}),
		connect.WithInterceptors(
			RecoverInterceptor(logger),
			LoggingInterceptor(logger),
			RequireAuth(tokens, openProcedure),
		),
	}

	mux := http.NewServeMux()
	mux.Handle(openProcedure, connect.NewUnaryHandler(openProcedure, ping, opts...))
	mux.Handle(closedProcedure, connect.NewUnaryHandler(closedProcedure, ping, opts...))
	mux.Handle(panicProcedure, connect.NewUnaryHandler(panicProcedure,
		func(context.Context, *connect.Request[pingRequest]) (*connect.Response[pingResponse], error) {
			panic("boom")
		}, opts...))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL
}

func call(t *testing.T, baseURL, procedure, authHeader string) (*pingResponse, error) {
	t.Helper()
	client := connect.NewClient[pingRequest, pingResponse](http.DefaultClient, baseURL+procedure, connect.WithCodec(api.Codec{}))
	req := connect.NewRequest(&pingRequest{})
	if authHeader != "" {
		req.Header().Set("Authorization", authHeader)
	}
	resp, err := client.CallUnary(context.Background(), req)
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}

func TestRequireAuth(t *testing.T) {
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	baseURL := setupPingServer(t, tokens)

	token, err := tokens.Generate(&models.Participant{ID: "p1", SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	expired, err := auth.NewJWTManager("test-secret", -time.Minute).Generate(&models.Participant{ID: "p1", SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		procedure   string
		header      string
		wantCode    connect.Code
		wantCaller  string
		wantSession string
	}{
		{"open without token", openProcedure, "", 0, "", ""},
		{"open with token", openProcedure, "Bearer " + token, 0, "p1", "s1"},
		{"closed without token", closedProcedure, "", connect.CodeUnauthenticated, "", ""},
		{"closed with token", closedProcedure, "Bearer " + token, 0, "p1", "s1"},
		{"closed with bad scheme", closedProcedure, "Basic " + token, connect.CodeUnauthenticated, "", ""},
		{"closed with expired token", closedProcedure, "Bearer " + expired, connect.CodeUnauthenticated, "", ""},
		{"open with garbage token", openProcedure, "Bearer garbage", connect.CodeUnauthenticated, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := call(t, baseURL, tt.procedure, tt.header)
			if tt.wantCode != 0 {
				if connect.CodeOf(err) != tt.wantCode {
					t.Fatalf("expected %v, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.ParticipantID != tt.wantCaller || resp.SessionID != tt.wantSession {
				t.Errorf("expected caller %q/%q, got %q/%q", tt.wantCaller, tt.wantSession, resp.ParticipantID, resp.SessionID)
			}
		})
	}
}

func TestRecoverInterceptor(t *testing.T) {
	tokens := auth.NewJWTManager("test-secret", time.Hour)
	baseURL := setupPingServer(t, tokens)
	token, _ := tokens.Generate(&models.Participant{ID: "p1", SessionID: "s1"})

	_, err := call(t, baseURL, panicProcedure, "Bearer "+token)
	if connect.CodeOf(err) != connect.CodeInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestCORS(t *testing.T) {
	handler := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/splitcheck.v1.SessionService/CreateSession", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("preflight should short-circuit with 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing allow-origin header")
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("non-preflight requests should reach the handler, got %d", rec.Code)
	}
}

func TestLoggingRecordsStatus(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := Logging(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(interface{ Unwrap() http.ResponseWriter }); !ok {
			t.Error("wrapped writer should expose Unwrap")
		}
		http.NotFound(w, r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
