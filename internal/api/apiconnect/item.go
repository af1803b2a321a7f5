package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
)

// ItemServiceName is the fully-qualified name of the ItemService.
const ItemServiceName = "splitcheck.v1.ItemService"

const (
	ItemServiceAddItemProcedure          = "/splitcheck.v1.ItemService/AddItem"
	ItemServiceUpdateItemProcedure       = "/splitcheck.v1.ItemService/UpdateItem"
	ItemServiceDeleteItemProcedure       = "/splitcheck.v1.ItemService/DeleteItem"
	ItemServiceToggleAssignmentProcedure = "/splitcheck.v1.ItemService/ToggleAssignment"
)

// ItemServiceClient is a client for the ItemService.
type ItemServiceClient interface {
	AddItem(context.Context, *connect.Request[api.AddItemRequest]) (*connect.Response[api.ItemResponse], error)
	UpdateItem(context.Context, *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.ItemResponse], error)
	DeleteItem(context.Context, *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error)
	ToggleAssignment(context.Context, *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.ToggleAssignmentResponse], error)
}

// NewItemServiceClient constructs a client for the ItemService.
func NewItemServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ItemServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = clientOptions(opts)
	return &itemServiceClient{
		addItem:          connect.NewClient[api.AddItemRequest, api.ItemResponse](httpClient, baseURL+ItemServiceAddItemProcedure, opts...),
		updateItem:       connect.NewClient[api.UpdateItemRequest, api.ItemResponse](httpClient, baseURL+ItemServiceUpdateItemProcedure, opts...),
		deleteItem:       connect.NewClient[api.DeleteItemRequest, api.DeleteItemResponse](httpClient, baseURL+ItemServiceDeleteItemProcedure, opts...),
		toggleAssignment: connect.NewClient[api.ToggleAssignmentRequest, api.ToggleAssignmentResponse](httpClient, baseURL+ItemServiceToggleAssignmentProcedure, opts...),
	}
}

type itemServiceClient struct {
	addItem          *connect.Client[api.AddItemRequest, api.ItemResponse]
	updateItem       *connect.Client[api.UpdateItemRequest, api.ItemResponse]
	deleteItem       *connect.Client[api.DeleteItemRequest, api.DeleteItemResponse]
	toggleAssignment *connect.Client[api.ToggleAssignmentRequest, api.ToggleAssignmentResponse]
}

func (c *itemServiceClient) AddItem(ctx context.Context, req *connect.Request[api.AddItemRequest]) (*connect.Response[api.ItemResponse], error) {
	return c.addItem.CallUnary(ctx, req)
}

func (c *itemServiceClient) UpdateItem(ctx context.Context, req *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.ItemResponse], error) {
	return c.updateItem.CallUnary(ctx, req)
}

func (c *itemServiceClient) DeleteItem(ctx context.Context, req *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error) {
	return c.deleteItem.CallUnary(ctx, req)
}

func (c *itemServiceClient) ToggleAssignment(ctx context.Context, req *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.ToggleAssignmentResponse], error) {
	return c.toggleAssignment.CallUnary(ctx, req)
}

// ItemServiceHandler is implemented by the ItemService server.
type ItemServiceHandler interface {
	AddItem(context.Context, *connect.Request[api.AddItemRequest]) (*connect.Response[api.ItemResponse], error)
	UpdateItem(context.Context, *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.ItemResponse], error)
	DeleteItem(context.Context, *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error)
	ToggleAssignment(context.Context, *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.ToggleAssignmentResponse], error)
}

// NewItemServiceHandler builds an HTTP handler from the service implementation.
func NewItemServiceHandler(svc ItemServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	addItem := connect.NewUnaryHandler(ItemServiceAddItemProcedure, svc.AddItem, opts...)
	updateItem := connect.NewUnaryHandler(ItemServiceUpdateItemProcedure, svc.UpdateItem, opts...)
	deleteItem := connect.NewUnaryHandler(ItemServiceDeleteItemProcedure, svc.DeleteItem, opts...)
	toggleAssignment := connect.NewUnaryHandler(ItemServiceToggleAssignmentProcedure, svc.ToggleAssignment, opts...)
	return "/" + ItemServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ItemServiceAddItemProcedure:
			addItem.ServeHTTP(w, r)
		case ItemServiceUpdateItemProcedure:
			updateItem.ServeHTTP(w, r)
		case ItemServiceDeleteItemProcedure:
			deleteItem.ServeHTTP(w, r)
		case ItemServiceToggleAssignmentProcedure:
			toggleAssignment.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedItemServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedItemServiceHandler struct{}

func (UnimplementedItemServiceHandler) AddItem(context.Context, *connect.Request[api.AddItemRequest]) (*connect.Response[api.ItemResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.ItemService.AddItem is not implemented"))
}

func (UnimplementedItemServiceHandler) UpdateItem(context.Context, *connect.Request[api.UpdateItemRequest]) (*connect.Response[api.ItemResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.ItemService.UpdateItem is not implemented"))
}

func (UnimplementedItemServiceHandler) DeleteItem(context.Context, *connect.Request[api.DeleteItemRequest]) (*connect.Response[api.DeleteItemResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.ItemService.DeleteItem is not implemented"))
}

func (UnimplementedItemServiceHandler) ToggleAssignment(context.Context, *connect.Request[api.ToggleAssignmentRequest]) (*connect.Response[api.ToggleAssignmentResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.ItemService.ToggleAssignment is not implemented"))
}
