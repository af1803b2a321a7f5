package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/mmynk/splitcheck/internal/api"
	"github.com/mmynk/splitcheck/internal/api/apiconnect"
	"github.com/mmynk/splitcheck/internal/models"
	"github.com/mmynk/splitcheck/internal/ocr"
	"github.com/mmynk/splitcheck/internal/realtime"
	"github.com/mmynk/splitcheck/internal/receipts"
	"github.com/mmynk/splitcheck/internal/storage"
)

// MaxImageBytes caps the size of an uploaded receipt photo.
const MaxImageBytes = 10 << 20

// Extractor turns a receipt photo into line items. *ocr.Extractor implements it.
type Extractor interface {
	ExtractItems(ctx context.Context, image []byte, mimeType string) ([]ocr.DetectedItem, error)
}

// ReceiptService implements the Connect ReceiptService.
type ReceiptService struct {
	apiconnect.UnimplementedReceiptServiceHandler
	store     storage.Store
	extractor Extractor
	images    receipts.Store
	events    events
	logger    *slog.Logger
}

// NewReceiptService creates a ReceiptService. images and pub may be nil; with
// no image store the photo is only sent to the model.
func NewReceiptService(store storage.Store, extractor Extractor, images receipts.Store, pub Publisher, logger *slog.Logger) *ReceiptService {
	logger = logger.With("component", "receipt_service")
	return &ReceiptService{
		store:     store,
		extractor: extractor,
		images:    images,
		events:    events{pub: pub, logger: logger},
		logger:    logger,
	}
}

// ScanReceipt uploads a receipt photo, extracts its items and saves them.
//
// An upload failure is logged and the scan continues. When the items cannot
// be saved the response still carries them with Saved set to false.
func (s *ReceiptService) ScanReceipt(ctx context.Context, req *connect.Request[api.ScanReceiptRequest]) (*connect.Response[api.ScanReceiptResponse], error) {
	msg := req.Msg
	s.logger.Info("ScanReceipt request received",
		"session_id", msg.SessionID,
		"image_bytes", len(msg.Image),
		"mime_type", msg.MimeType,
	)

	if msg.SessionID == "" {
		return nil, invalidArgument("session_id is required")
	}
	if len(msg.Image) == 0 {
		return nil, invalidArgument("image is required")
	}
	if len(msg.Image) > MaxImageBytes {
		return nil, invalidArgument("image must be at most %d bytes", MaxImageBytes)
	}
	mimeType := msg.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, invalidArgument("mime_type must be an image type, got %q", mimeType)
	}
	if _, err := authorize(ctx, s.store, msg.SessionID); err != nil {
		return nil, err
	}
	if _, err := activeSession(ctx, s.store, msg.SessionID); err != nil {
		return nil, err
	}

	resp := &api.ScanReceiptResponse{}
	resp.ReceiptImageURL = s.upload(ctx, msg.SessionID, msg.Image, mimeType)

	detected, err := s.extractor.ExtractItems(ctx, msg.Image, mimeType)
	if err != nil {
		return nil, s.extractionError(msg.SessionID, err)
	}
	resp.Items = detected
	if len(detected) == 0 {
		s.logger.Info("No items detected", "session_id", msg.SessionID)
		resp.Saved = true
		return connect.NewResponse(resp), nil
	}

	items := make([]*models.Item, len(detected))
	for i, d := range detected {
		items[i] = detectedToItem(d)
	}
	if err := s.store.CreateItems(ctx, msg.SessionID, items); err != nil {
		s.logger.Error("Failed to save detected items", "session_id", msg.SessionID, "error", err)
		resp.Error = "items were detected but could not be saved"
		return connect.NewResponse(resp), nil
	}

	for _, item := range items {
		s.events.publish(realtime.TableItems, realtime.Insert, msg.SessionID, item, nil)
	}
	resp.Saved = true
	resp.SavedItems = items
	s.logger.Info("Receipt scanned", "session_id", msg.SessionID, "items", len(items))

	return connect.NewResponse(resp), nil
}

// upload stores the photo and records it on the session. It returns the
// image URL, or "" when there is no image store or the upload failed.
func (s *ReceiptService) upload(ctx context.Context, sessionID string, image []byte, mimeType string) string {
	if s.images == nil {
		return ""
	}
	url, err := s.images.Put(ctx, sessionID, image, mimeType)
	if err != nil {
		s.logger.Warn("Receipt upload failed, continuing with extraction", "session_id", sessionID, "error", err)
		return ""
	}
	if err := s.store.SetReceiptImage(ctx, sessionID, url); err != nil {
		s.logger.Warn("Failed to record receipt image", "session_id", sessionID, "error", err)
		return url
	}
	if session, err := s.store.GetSession(ctx, sessionID); err == nil {
		s.events.publish(realtime.TableSessions, realtime.Update, sessionID, session, nil)
	}
	return url
}

func (s *ReceiptService) extractionError(sessionID string, err error) error {
	var limited *ocr.RateLimitError
	switch {
	case errors.As(err, &limited):
		s.logger.Warn("Receipt scan rate limited", "session_id", sessionID, "reset_in", limited.ResetIn)
		cerr := connect.NewError(connect.CodeResourceExhausted,
			fmt.Errorf("%w (reset_in_ms=%d)", err, limited.ResetIn.Milliseconds()))
		if detail, derr := connect.NewErrorDetail(durationpb.New(limited.ResetIn)); derr == nil {
			cerr.AddDetail(detail)
		}
		return cerr
	case errors.Is(err, ocr.ErrExtractionFailed):
		s.logger.Error("Receipt extraction failed", "session_id", sessionID, "error", err)
		return connect.NewError(connect.CodeUnavailable, ocr.ErrExtractionFailed)
	default:
		s.logger.Error("Receipt extraction failed", "session_id", sessionID, "error", err)
		return toConnectError(err)
	}
}

// detectedToItem converts a model detection into an item row. Items store
// whole quantities, so a fractional quantity (e.g. 0.5 kg) is folded into
// the unit price as a single unit.
func detectedToItem(d ocr.DetectedItem) *models.Item {
	confidence := d.Confidence
	item := &models.Item{
		Name:          strings.TrimSpace(d.Name),
		Quantity:      1,
		UnitPrice:     d.UnitPrice,
		OCRConfidence: &confidence,
	}
	switch q := d.Quantity; {
	case q > maxItemQuantity:
		// A misread count; keep the line as a single unit.
	case q >= 1 && q == math.Trunc(q):
		item.Quantity = int(q)
	case q > 0:
		item.UnitPrice = d.UnitPrice * q
	}
	return item
}
