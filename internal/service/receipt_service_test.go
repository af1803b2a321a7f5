package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/mmynk/splitcheck/internal/api"
	"github.com/mmynk/splitcheck/internal/ocr"
	"github.com/mmynk/splitcheck/internal/receipts"
)

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0}

// fakeExtractor returns canned items or an error.
type fakeExtractor struct {
	mu    sync.Mutex
	items []ocr.DetectedItem
	err   error
	calls int
}

func (f *fakeExtractor) ExtractItems(ctx context.Context, image []byte, mimeType string) ([]ocr.DetectedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.items, f.err
}

// cannedModel answers every prompt with the same text.
type cannedModel struct {
	text string
}

func (m cannedModel) Generate(ctx context.Context, image []byte, mimeType, prompt string) (string, error) {
	return m.text, nil
}

type failingImages struct{}

func (failingImages) Put(ctx context.Context, sessionID string, image []byte, mimeType string) (string, error) {
	return "", errors.New("bucket unreachable")
}

func scan(env *testEnv, m *api.SessionMembership) (*connect.Response[api.ScanReceiptResponse], error) {
	return env.receiptClient.ScanReceipt(context.Background(), withToken(&api.ScanReceiptRequest{
		SessionID: m.Session.ID,
		Image:     jpeg,
		MimeType:  "image/jpeg",
	}, m.Token))
}

func TestScanReceipt(t *testing.T) {
	extractor := &fakeExtractor{items: []ocr.DetectedItem{
		{Name: "Bandeja paisa", Quantity: 2, UnitPrice: 32000, Confidence: 0.95},
		{Name: "Carne al peso", Quantity: 0.5, UnitPrice: 60000, Confidence: 0.7},
	}}
	env := setupTestServerWithImages(t, extractor, mustLocalImages(t))
	owner, _ := createSession(t, env, "Ana")
	addItem(t, env, owner, "Agua", 1, 3000)

	resp, err := scan(env, owner)
	if err != nil {
		t.Fatalf("ScanReceipt failed: %v", err)
	}
	msg := resp.Msg
	if !msg.Saved || len(msg.SavedItems) != 2 || len(msg.Items) != 2 {
		t.Fatalf("unexpected response: %+v", msg)
	}
	if !strings.HasPrefix(msg.ReceiptImageURL, "/receipts/receipts/"+owner.Session.ID+"/") {
		t.Errorf("unexpected image url %q", msg.ReceiptImageURL)
	}

	first, second := msg.SavedItems[0], msg.SavedItems[1]
	if first.ManuallyAdded || first.OCRConfidence == nil || *first.OCRConfidence != 0.95 {
		t.Errorf("unexpected OCR item: %+v", first)
	}
	if first.OrderIndex != 1 || second.OrderIndex != 2 {
		t.Errorf("order index should continue after existing items, got %d and %d", first.OrderIndex, second.OrderIndex)
	}
	if first.Quantity != 2 || first.TotalPrice != 64000 {
		t.Errorf("unexpected first item: %+v", first)
	}
	if second.Quantity != 1 || second.UnitPrice != 30000 {
		t.Errorf("fractional quantity should fold into the price, got %+v", second)
	}

	state := sessionState(t, env, owner.Session.ID)
	if len(state.Items) != 3 {
		t.Errorf("expected 3 items, got %d", len(state.Items))
	}
	if state.Session.ReceiptImageURL == nil || *state.Session.ReceiptImageURL != msg.ReceiptImageURL {
		t.Errorf("receipt image not recorded on session")
	}
}

func TestDetectedToItem(t *testing.T) {
	tests := []struct {
		name      string
		quantity  float64
		wantQty   int
		wantPrice float64
	}{
		{name: "whole quantity", quantity: 3, wantQty: 3, wantPrice: 1000},
		{name: "fraction folds into price", quantity: 0.25, wantQty: 1, wantPrice: 250},
		{name: "fraction above one", quantity: 1.5, wantQty: 1, wantPrice: 1500},
		{name: "at the limit", quantity: maxItemQuantity, wantQty: maxItemQuantity, wantPrice: 1000},
		{name: "absurd quantity", quantity: 1e19, wantQty: 1, wantPrice: 1000},
		{name: "zero", quantity: 0, wantQty: 1, wantPrice: 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := detectedToItem(ocr.DetectedItem{Name: " Pan ", Quantity: tt.quantity, UnitPrice: 1000, Confidence: 0.8})
			if item.Quantity != tt.wantQty || item.UnitPrice != tt.wantPrice {
				t.Errorf("got quantity %d price %v, want %d and %v", item.Quantity, item.UnitPrice, tt.wantQty, tt.wantPrice)
			}
			if item.Name != "Pan" {
				t.Errorf("expected trimmed name, got %q", item.Name)
			}
		})
	}
}

func mustLocalImages(t *testing.T) receipts.Store {
	t.Helper()
	images, err := receipts.NewLocalStore(t.TempDir(), "/receipts")
	if err != nil {
		t.Fatal(err)
	}
	return images
}

func TestScanReceiptUploadFailureDegrades(t *testing.T) {
	extractor := &fakeExtractor{items: []ocr.DetectedItem{{Name: "Café", Quantity: 1, UnitPrice: 4000, Confidence: 0.9}}}
	env := setupTestServerWithImages(t, extractor, failingImages{})
	owner, _ := createSession(t, env, "Ana")

	resp, err := scan(env, owner)
	if err != nil {
		t.Fatalf("ScanReceipt failed: %v", err)
	}
	if !resp.Msg.Saved || resp.Msg.ReceiptImageURL != "" {
		t.Errorf("expected saved items without image url, got %+v", resp.Msg)
	}
}

func TestScanReceiptValidation(t *testing.T) {
	extractor := &fakeExtractor{}
	env := setupTestServer(t, extractor)
	owner, _ := createSession(t, env, "Ana")
	ctx := context.Background()

	tests := []struct {
		name string
		req  *api.ScanReceiptRequest
		want connect.Code
	}{
		{"no image", &api.ScanReceiptRequest{SessionID: owner.Session.ID}, connect.CodeInvalidArgument},
		{"not an image", &api.ScanReceiptRequest{SessionID: owner.Session.ID, Image: jpeg, MimeType: "application/pdf"}, connect.CodeInvalidArgument},
		{"no session", &api.ScanReceiptRequest{Image: jpeg}, connect.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.receiptClient.ScanReceipt(ctx, withToken(tt.req, owner.Token))
			assertCode(t, err, tt.want)
		})
	}
	if extractor.calls != 0 {
		t.Errorf("model should not be called for invalid requests, got %d calls", extractor.calls)
	}
}

func TestScanReceiptFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want connect.Code
	}{
		{"extraction failed", ocr.ErrExtractionFailed, connect.CodeUnavailable},
		{"rate limited", &ocr.RateLimitError{ResetIn: 30 * time.Second}, connect.CodeResourceExhausted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestServer(t, &fakeExtractor{err: tt.err})
			owner, _ := createSession(t, env, "Ana")
			_, err := scan(env, owner)
			assertCode(t, err, tt.want)
		})
	}
}

func TestScanReceiptRateLimitDetail(t *testing.T) {
	model := cannedModel{text: "```json\n{\"items\":[{\"name\":\"Arepa\",\"quantity\":1,\"unit_price\":5000,\"confidence\":0.9}]}\n```"}
	extractor := ocr.NewExtractor(model,
		ocr.WithLimiter(ocr.NewSlidingWindow(1, time.Minute)),
		ocr.WithBackoff(time.Millisecond),
		ocr.WithLogger(discardLogger()),
	)
	env := setupTestServer(t, extractor)
	owner, _ := createSession(t, env, "Ana")

	resp, err := scan(env, owner)
	if err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if len(resp.Msg.SavedItems) != 1 || resp.Msg.SavedItems[0].Name != "Arepa" {
		t.Fatalf("unexpected items: %+v", resp.Msg.SavedItems)
	}

	_, err = scan(env, owner)
	assertCode(t, err, connect.CodeResourceExhausted)

	var cerr *connect.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected connect error, got %T", err)
	}
	if !strings.Contains(cerr.Message(), "reset_in_ms=") {
		t.Errorf("expected reset_in_ms in message, got %q", cerr.Message())
	}
	if len(cerr.Details()) != 1 {
		t.Fatalf("expected 1 error detail, got %d", len(cerr.Details()))
	}
	value, err := cerr.Details()[0].Value()
	if err != nil {
		t.Fatalf("failed to decode detail: %v", err)
	}
	retry, ok := value.(*durationpb.Duration)
	if !ok {
		t.Fatalf("expected duration detail, got %T", value)
	}
	if d := retry.AsDuration(); d <= 0 || d > time.Minute {
		t.Errorf("retry-after should be within the window, got %s", d)
	}
}
