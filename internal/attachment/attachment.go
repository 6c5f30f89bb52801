// Package attachment stores treatment attachment content and returns the
// reference kept in model.Attachment.URL.
package attachment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/denttrack/denttrack/internal/model"
)

// MaxSize is the largest attachment accepted, in bytes.
const MaxSize = 10 << 20

var (
	// ErrEmpty is returned for zero-length content.
	ErrEmpty = errors.New("attachment is empty")
	// ErrTooLarge is returned for content over MaxSize.
	ErrTooLarge = errors.New("attachment too large")
)

// Store persists attachment content.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) (model.Attachment, error)
}

// Inline encodes content as a data URI. Nothing leaves the process.
type Inline struct{}

func (Inline) Put(ctx context.Context, name, contentType string, data []byte) (model.Attachment, error) {
	if err := check(data); err != nil {
		return model.Attachment{}, err
	}
	contentType = detect(contentType, data)
	return model.Attachment{
		ID:   model.NewID(),
		Name: cleanName(name),
		URL:  "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// DecodeInline returns the content type and bytes of a data URI produced
// by Inline.
func DecodeInline(ref string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(ref, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data URI")
	}
	contentType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return contentType, data, nil
}

func check(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	if len(data) > MaxSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrTooLarge, len(data), MaxSize)
	}
	return nil
}

func detect(contentType string, data []byte) string {
	if contentType != "" {
		return contentType
	}
	return http.DetectContentType(data)
}

// cleanName strips directories and falls back to "attachment".
func cleanName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "attachment"
	}
	return name
}
