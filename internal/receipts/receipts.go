// Package receipts stores uploaded receipt photos. Objects are keyed by a
// BLAKE2b hash of their content, so uploading the same photo twice for a
// session yields the same reference.
package receipts

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// ErrEmptyImage is returned when asked to store zero bytes.
var ErrEmptyImage = errors.New("empty image")

// Store persists a receipt image and returns a URL that references it.
type Store interface {
	Put(ctx context.Context, sessionID string, image []byte, mimeType string) (string, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
	"image/heif": ".heif",
}

// ObjectKey returns the content-addressed key for an image in a session.
func ObjectKey(sessionID string, image []byte, mimeType string) string {
	sum := blake2b.Sum256(image)
	ext, ok := extensions[mimeType]
	if !ok {
		ext = ".bin"
	}
	return fmt.Sprintf("receipts/%s/%s%s", sessionID, hex.EncodeToString(sum[:16]), ext)
}
