package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitcheck/internal/api"
)

// ReceiptServiceName is the fully-qualified name of the ReceiptService.
const ReceiptServiceName = "splitcheck.v1.ReceiptService"

// ReceiptServiceScanReceiptProcedure is the path of ReceiptService.ScanReceipt.
const ReceiptServiceScanReceiptProcedure = "/splitcheck.v1.ReceiptService/ScanReceipt"

// ReceiptServiceClient is a client for the ReceiptService.
type ReceiptServiceClient interface {
	ScanReceipt(context.Context, *connect.Request[api.ScanReceiptRequest]) (*connect.Response[api.ScanReceiptResponse], error)
}

// NewReceiptServiceClient constructs a client for the ReceiptService.
func NewReceiptServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ReceiptServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	return &receiptServiceClient{
		scanReceipt: connect.NewClient[api.ScanReceiptRequest, api.ScanReceiptResponse](httpClient, baseURL+ReceiptServiceScanReceiptProcedure, clientOptions(opts)...),
	}
}

type receiptServiceClient struct {
	scanReceipt *connect.Client[api.ScanReceiptRequest, api.ScanReceiptResponse]
}

func (c *receiptServiceClient) ScanReceipt(ctx context.Context, req *connect.Request[api.ScanReceiptRequest]) (*connect.Response[api.ScanReceiptResponse], error) {
	return c.scanReceipt.CallUnary(ctx, req)
}

// ReceiptServiceHandler is implemented by the ReceiptService server.
type ReceiptServiceHandler interface {
	ScanReceipt(context.Context, *connect.Request[api.ScanReceiptRequest]) (*connect.Response[api.ScanReceiptResponse], error)
}

// NewReceiptServiceHandler builds an HTTP handler from the service implementation.
func NewReceiptServiceHandler(svc ReceiptServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	scanReceipt := connect.NewUnaryHandler(ReceiptServiceScanReceiptProcedure, svc.ScanReceipt, handlerOptions(opts)...)
	return "/" + ReceiptServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ReceiptServiceScanReceiptProcedure:
			scanReceipt.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedReceiptServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedReceiptServiceHandler struct{}

func (UnimplementedReceiptServiceHandler) ScanReceipt(context.Context, *connect.Request[api.ScanReceiptRequest]) (*connect.Response[api.ScanReceiptResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("splitcheck.v1.ReceiptService.ScanReceipt is not implemented"))
}
