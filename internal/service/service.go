// Package service implements the splitcheck Connect services on top of the
// storage layer and publishes every row change to the realtime hub.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"unicode/utf8"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api/apiconnect"
	"github.com/mmynk/splitcheck/internal/auth"
	"github.com/mmynk/splitcheck/internal/middleware"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/realtime"
	"github.com/mmynk/splitcheck/internal/storage"
)

// Publisher receives row change events. *realtime.Hub implements it.
type Publisher interface {
	Publish(e realtime.Event)
}

const (
	maxNameLength     = 50
	maxItemNameLength = 200
	maxItemQuantity   = 10000
)

var (
	errSessionInactive    = errors.New("session is not active")
	errNotOwner           = errors.New("only the session owner can do this")
	errParticipantRemoved = errors.New("participant is no longer in the session")
)

// toConnectError maps storage errors onto Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func invalidArgument(format string, args ...any) error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// authorize loads the caller and checks that their token was issued for
// sessionID and that they are still part of it. Tokens outlive removal, so
// the participant row is checked too.
func authorize(ctx context.Context, store storage.Store, sessionID string) (*models.Participant, error) {
	claims := middleware.GetClaims(ctx)
	if claims == nil {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if err := claims.CheckSession(sessionID); err != nil {
		return nil, connect.NewError(connect.CodePermissionDenied, err)
	}
	caller, err := store.GetParticipant(ctx, claims.ParticipantID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeUnauthenticated, fmt.Errorf("%w: %v", errParticipantRemoved, err))
	}
	if err != nil {
		return nil, toConnectError(err)
	}
	if caller.SessionID != sessionID {
		return nil, connect.NewError(connect.CodePermissionDenied, auth.ErrWrongSession)
	}
	return caller, nil
}

// activeSession loads a session and fails unless it is still active.
func activeSession(ctx context.Context, store storage.Store, sessionID string) (*models.Session, error) {
	session, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, toConnectError(err)
	}
	if session.Status != models.StatusActive {
		return nil, connect.NewError(connect.CodeFailedPrecondition,
			fmt.Errorf("%w: %s", errSessionInactive, session.Status))
	}
	return session, nil
}

// requireOwner loads the caller and fails unless they own sessionID.
func requireOwner(ctx context.Context, store storage.Store, sessionID string) (*models.Participant, error) {
	caller, err := authorize(ctx, store, sessionID)
	if err != nil {
		return nil, err
	}
	if !caller.IsOwner {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotOwner)
	}
	return caller, nil
}

func cleanName(field, name string, max int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidArgument("%s is required", field)
	}
	if utf8.RuneCountInString(name) > max {
		return "", invalidArgument("%s must be at most %d characters", field, max)
	}
	return name, nil
}

func validAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalidArgument("%s must be a non-negative number", field)
	}
	return nil
}

// events publishes row changes of one session.
type events struct {
	pub    Publisher
	logger *slog.Logger
}

func (e events) publish(table realtime.Table, typ realtime.EventType, sessionID string, newRow, oldRow any) {
	if e.pub == nil {
		return
	}
	ev, err := realtime.NewEvent(table, typ, sessionID, newRow, oldRow)
	if err != nil {
		e.logger.Error("Failed to encode change event", "table", table, "type", typ, "error", err)
		return
	}
	e.pub.Publish(ev)
}

// assignmentChanges publishes deletes first so replicas never hold two
// assignments for the same participant and item.
func (e events) assignmentChanges(sessionID string, changes *storage.AssignmentChanges) {
	if changes == nil {
		return
	}
	for _, a := range changes.Deleted {
		e.publish(realtime.TableAssignments, realtime.Delete, sessionID, nil, a)
	}
	for _, a := range changes.Updated {
		e.publish(realtime.TableAssignments, realtime.Update, sessionID, a, nil)
	}
	for _, a := range changes.Inserted {
		e.publish(realtime.TableAssignments, realtime.Insert, sessionID, a, nil)
	}
	for _, item := range changes.Items {
		e.publish(realtime.TableItems, realtime.Update, sessionID, item, nil)
	}
}

// PublicProcedures may be called without a participant token.
var PublicProcedures = []string{
	apiconnect.SessionServiceCreateSessionProcedure,
	apiconnect.SessionServiceJoinSessionProcedure,
	apiconnect.SessionServiceLookupSessionProcedure,
	apiconnect.SessionServiceGetSessionStateProcedure,
	apiconnect.SessionServiceGetSettlementProcedure,
}
