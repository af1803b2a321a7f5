package replica

import (
	"context"
	"log/slog"

	"github.com/mmynk/splitcheck/internal/realtime"
)

// Follow applies events from stream to state until the session closes, the
// local participant is removed, the stream ends or ctx is done. Events that
// fail to decode are logged and skipped. The caller owns stream.
func Follow(ctx context.Context, state *State, stream realtime.Stream) (Outcome, error) {
	for {
		select {
		case <-ctx.Done():
			return Continue, ctx.Err()
		case e, ok := <-stream.C():
			if !ok {
				return Disconnected, nil
			}
			outcome, err := state.Apply(e)
			if err != nil {
				slog.Warn("Skipping malformed change event", "table", e.Table, "type", e.Type, "error", err)
				continue
			}
			if outcome != Continue {
				slog.Info("Session ended for participant", "participant_id", state.Identity(), "outcome", outcome)
				return outcome, nil
			}
		}
	}
}
