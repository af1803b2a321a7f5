package realtime

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"
)

// SessionCheck reports whether a session may be followed.
type SessionCheck func(ctx context.Context, sessionID string) error

// HandleWebSocket returns an HTTP handler for GET /ws/{sessionID} that
// upgrades the connection and streams the session's change events as JSON
// text frames. check may be nil.
func HandleWebSocket(hub *Hub, check SessionCheck, logger *slog.Logger) http.HandlerFunc {
	logger = logger.With("component", "realtime")
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.PathValue("sessionID")
		if sessionID == "" {
			http.Error(w, "missing session id", http.StatusBadRequest)
			return
		}
		if check != nil {
			if err := check(r.Context(), sessionID); err != nil {
				logger.Warn("Rejected websocket subscription", "session_id", sessionID, "error", err)
				http.Error(w, "session not found", http.StatusNotFound)
				return
			}
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			InsecureSkipVerify: true, // clients are served from any origin
		})
		if err != nil {
			logger.Error("Websocket accept failed", "error", err)
			return
		}

		logger.Debug("Websocket subscribed", "session_id", sessionID)
		c := &client{conn: conn, sub: hub.Subscribe(sessionID)}
		c.run(r.Context())
		logger.Debug("Websocket closed", "session_id", sessionID)
	}
}
