package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
)

// SessionServiceName is the fully-qualified name of the SessionService.
const SessionServiceName = "splitcheck.v1.SessionService"

const (
	SessionServiceCreateSessionProcedure     = "/splitcheck.v1.SessionService/CreateSession"
	SessionServiceJoinSessionProcedure       = "/splitcheck.v1.SessionService/JoinSession"
	SessionServiceLookupSessionProcedure     = "/splitcheck.v1.SessionService/LookupSession"
	SessionServiceGetSessionStateProcedure   = "/splitcheck.v1.SessionService/GetSessionState"
	SessionServiceUpdateTaxTipProcedure      = "/splitcheck.v1.SessionService/UpdateTaxTip"
	SessionServiceRemoveParticipantProcedure = "/splitcheck.v1.SessionService/RemoveParticipant"
	SessionServiceFinalizeSessionProcedure   = "/splitcheck.v1.SessionService/FinalizeSession"
	SessionServiceGetSettlementProcedure     = "/splitcheck.v1.SessionService/GetSettlement"
)

// SessionServiceClient is a client for the SessionService.
type SessionServiceClient interface {
	CreateSession(context.Context, *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionMembership], error)
	JoinSession(context.Context, *connect.Request[api.JoinSessionRequest]) (*connect.Response[api.SessionMembership], error)
	LookupSession(context.Context, *connect.Request[api.LookupSessionRequest]) (*connect.Response[api.LookupSessionResponse], error)
	GetSessionState(context.Context, *connect.Request[api.GetSessionStateRequest]) (*connect.Response[api.SessionState], error)
	UpdateTaxTip(context.Context, *connect.Request[api.UpdateTaxTipRequest]) (*connect.Response[api.UpdateTaxTipResponse], error)
	RemoveParticipant(context.Context, *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error)
	FinalizeSession(context.Context, *connect.Request[api.FinalizeSessionRequest]) (*connect.Response[api.FinalizeSessionResponse], error)
	GetSettlement(context.Context, *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.Settlement], error)
}

// NewSessionServiceClient constructs a client for the SessionService. baseURL
// is the server root, e.g. https://splitcheck.example.com.
func NewSessionServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) SessionServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &sessionServiceClient{
		createSession:     connect.NewClient[api.CreateSessionRequest, api.SessionMembership](httpClient, baseURL+SessionServiceCreateSessionProcedure, opts...),
		joinSession:       connect.NewClient[api.JoinSessionRequest, api.SessionMembership](httpClient, baseURL+SessionServiceJoinSessionProcedure, opts...),
		lookupSession:     connect.NewClient[api.LookupSessionRequest, api.LookupSessionResponse](httpClient, baseURL+SessionServiceLookupSessionProcedure, opts...),
		getSessionState:   connect.NewClient[api.GetSessionStateRequest, api.SessionState](httpClient, baseURL+SessionServiceGetSessionStateProcedure, opts...),
		updateTaxTip:      connect.NewClient[api.UpdateTaxTipRequest, api.UpdateTaxTipResponse](httpClient, baseURL+SessionServiceUpdateTaxTipProcedure, opts...),
		removeParticipant: connect.NewClient[api.RemoveParticipantRequest, api.RemoveParticipantResponse](httpClient, baseURL+SessionServiceRemoveParticipantProcedure, opts...),
		finalizeSession:   connect.NewClient[api.FinalizeSessionRequest, api.FinalizeSessionResponse](httpClient, baseURL+SessionServiceFinalizeSessionProcedure, opts...),
		getSettlement:     connect.NewClient[api.GetSettlementRequest, api.Settlement](httpClient, baseURL+SessionServiceGetSettlementProcedure, opts...),
	}
}

type sessionServiceClient struct {
	createSession     *connect.Client[api.CreateSessionRequest, api.SessionMembership]
	joinSession       *connect.Client[api.JoinSessionRequest, api.SessionMembership]
	lookupSession     *connect.Client[api.LookupSessionRequest, api.LookupSessionResponse]
	getSessionState   *connect.Client[api.GetSessionStateRequest, api.SessionState]
	updateTaxTip      *connect.Client[api.UpdateTaxTipRequest, api.UpdateTaxTipResponse]
	removeParticipant *connect.Client[api.RemoveParticipantRequest, api.RemoveParticipantResponse]
	finalizeSession   *connect.Client[api.FinalizeSessionRequest, api.FinalizeSessionResponse]
	getSettlement     *connect.Client[api.GetSettlementRequest, api.Settlement]
}

func (c *sessionServiceClient) CreateSession(ctx context.Context, req *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionMembership], error) {
	return c.createSession.CallUnary(ctx, req)
}

func (c *sessionServiceClient) JoinSession(ctx context.Context, req *connect.Request[api.JoinSessionRequest]) (*connect.Response[api.SessionMembership], error) {
	return c.joinSession.CallUnary(ctx, req)
}

func (c *sessionServiceClient) LookupSession(ctx context.Context, req *connect.Request[api.LookupSessionRequest]) (*connect.Response[api.LookupSessionResponse], error) {
	return c.lookupSession.CallUnary(ctx, req)
}

func (c *sessionServiceClient) GetSessionState(ctx context.Context, req *connect.Request[api.GetSessionStateRequest]) (*connect.Response[api.SessionState], error) {
	return c.getSessionState.CallUnary(ctx, req)
}

func (c *sessionServiceClient) UpdateTaxTip(ctx context.Context, req *connect.Request[api.UpdateTaxTipRequest]) (*connect.Response[api.UpdateTaxTipResponse], error) {
	return c.updateTaxTip.CallUnary(ctx, req)
}

func (c *sessionServiceClient) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	return c.removeParticipant.CallUnary(ctx, req)
}

func (c *sessionServiceClient) FinalizeSession(ctx context.Context, req *connect.Request[api.FinalizeSessionRequest]) (*connect.Response[api.FinalizeSessionResponse], error) {
	return c.finalizeSession.CallUnary(ctx, req)
}

func (c *sessionServiceClient) GetSettlement(ctx context.Context, req *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.Settlement], error) {
	return c.getSettlement.CallUnary(ctx, req)
}

// SessionServiceHandler is implemented by the SessionService server.
type SessionServiceHandler interface {
	CreateSession(context.Context, *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionMembership], error)
	JoinSession(context.Context, *connect.Request[api.JoinSessionRequest]) (*connect.Response[api.SessionMembership], error)
	LookupSession(context.Context, *connect.Request[api.LookupSessionRequest]) (*connect.Response[api.LookupSessionResponse], error)
	GetSessionState(context.Context, *connect.Request[api.GetSessionStateRequest]) (*connect.Response[api.SessionState], error)
	UpdateTaxTip(context.Context, *connect.Request[api.UpdateTaxTipRequest]) (*connect.Response[api.UpdateTaxTipResponse], error)
	RemoveParticipant(context.Context, *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error)
	FinalizeSession(context.Context, *connect.Request[api.FinalizeSessionRequest]) (*connect.Response[api.FinalizeSessionResponse], error)
	GetSettlement(context.Context, *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.Settlement], error)
}

// NewSessionServiceHandler builds an HTTP handler from the service
// implementation. It returns the path on which to mount the handler and the
// handler itself.
func NewSessionServiceHandler(svc SessionServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	createSession := connect.NewUnaryHandler(SessionServiceCreateSessionProcedure, svc.CreateSession, opts...)
	joinSession := connect.NewUnaryHandler(SessionServiceJoinSessionProcedure, svc.JoinSession, opts...)
	lookupSession := connect.NewUnaryHandler(SessionServiceLookupSessionProcedure, svc.LookupSession, opts...)
	getSessionState := connect.NewUnaryHandler(SessionServiceGetSessionStateProcedure, svc.GetSessionState, opts...)
	updateTaxTip := connect.NewUnaryHandler(SessionServiceUpdateTaxTipProcedure, svc.UpdateTaxTip, opts...)
	removeParticipant := connect.NewUnaryHandler(SessionServiceRemoveParticipantProcedure, svc.RemoveParticipant, opts...)
	finalizeSession := connect.NewUnaryHandler(SessionServiceFinalizeSessionProcedure, svc.FinalizeSession, opts...)
	getSettlement := connect.NewUnaryHandler(SessionServiceGetSettlementProcedure, svc.GetSettlement, opts...)
	return "/" + SessionServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case SessionServiceCreateSessionProcedure:
			createSession.ServeHTTP(w, r)
		case SessionServiceJoinSessionProcedure:
			joinSession.ServeHTTP(w, r)
		case SessionServiceLookupSessionProcedure:
			lookupSession.ServeHTTP(w, r)
		case SessionServiceGetSessionStateProcedure:
			getSessionState.ServeHTTP(w, r)
		case SessionServiceUpdateTaxTipProcedure:
			updateTaxTip.ServeHTTP(w, r)
		case SessionServiceRemoveParticipantProcedure:
			removeParticipant.ServeHTTP(w, r)
		case SessionServiceFinalizeSessionProcedure:
			finalizeSession.ServeHTTP(w, r)
		case SessionServiceGetSettlementProcedure:
			getSettlement.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedSessionServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedSessionServiceHandler struct{}

func (UnimplementedSessionServiceHandler) CreateSession(context.Context, *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.SessionMembership], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.CreateSession is not implemented"))
}

func (UnimplementedSessionServiceHandler) JoinSession(context.Context, *connect.Request[api.JoinSessionRequest]) (*connect.Response[api.SessionMembership], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.JoinSession is not implemented"))
}

func (UnimplementedSessionServiceHandler) LookupSession(context.Context, *connect.Request[api.LookupSessionRequest]) (*connect.Response[api.LookupSessionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.LookupSession is not implemented"))
}

func (UnimplementedSessionServiceHandler) GetSessionState(context.Context, *connect.Request[api.GetSessionStateRequest]) (*connect.Response[api.SessionState], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.GetSessionState is not implemented"))
}

func (UnimplementedSessionServiceHandler) UpdateTaxTip(context.Context, *connect.Request[api.UpdateTaxTipRequest]) (*connect.Response[api.UpdateTaxTipResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.UpdateTaxTip is not implemented"))
}

func (UnimplementedSessionServiceHandler) RemoveParticipant(context.Context, *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.RemoveParticipant is not implemented"))
}

func (UnimplementedSessionServiceHandler) FinalizeSession(context.Context, *connect.Request[api.FinalizeSessionRequest]) (*connect.Response[api.FinalizeSessionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.FinalizeSession is not implemented"))
}

func (UnimplementedSessionServiceHandler) GetSettlement(context.Context, *connect.Request[api.GetSettlementRequest]) (*connect.Response[api.Settlement], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.SessionService.GetSettlement is not implemented"))
}
