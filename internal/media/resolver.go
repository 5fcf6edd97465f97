package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"chat-app-server/internal/models"
)

// Upload is a raw media payload as received from a client: base64 content,
// usually wrapped in a data URI, plus whatever metadata the client knows.
type Upload struct {
	Data      string
	Name      string
	MimeType  string
	SizeBytes int64
}

// Resolved is the durable result of resolving an Upload: a stable URL plus
// the preserved metadata.
type Resolved struct {
	URL       string
	Name      string
	MimeType  string
	SizeBytes int64
}

// Resolver turns a raw media payload into a durable URL before a message is
// persisted. A failed resolution aborts the whole send.
type Resolver interface {
	Resolve(ctx context.Context, ownerID string, up Upload) (Resolved, error)
}

// StoreResolver persists decoded payloads as attachment rows and hands out
// URLs served back by the attachments handler.
type StoreResolver struct {
	DB      *gorm.DB
	BaseURL string
}

// NewStoreResolver creates a StoreResolver. baseURL is the externally visible
// application URL the attachment links are built from.
func NewStoreResolver(db *gorm.DB, baseURL string) *StoreResolver {
	return &StoreResolver{DB: db, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Resolve decodes the payload and stores it. The returned URL stays valid for
// the lifetime of the attachment row.
func (r *StoreResolver) Resolve(ctx context.Context, ownerID string, up Upload) (Resolved, error) {
	mimeType, data, err := DecodePayload(up.Data)
	if err != nil {
		return Resolved{}, fmt.Errorf("failed to decode media payload: %w", err)
	}
	if up.MimeType != "" {
		mimeType = up.MimeType
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	size := up.SizeBytes
	if size == 0 {
		size = int64(len(data))
	}

	attachment := models.Attachment{
		OwnerID:   ownerID,
		FileName:  up.Name,
		MimeType:  mimeType,
		SizeBytes: size,
		Data:      data,
	}
	if err := r.DB.WithContext(ctx).Create(&attachment).Error; err != nil {
		return Resolved{}, fmt.Errorf("failed to store attachment: %w", err)
	}

	return Resolved{
		URL:       fmt.Sprintf("%s/api/v1/attachments/%s", r.BaseURL, attachment.ID),
		Name:      up.Name,
		MimeType:  mimeType,
		SizeBytes: size,
	}, nil
}

// DecodePayload decodes a base64 payload, accepting both bare base64 and
// "data:<mime>;base64,<payload>" data URIs. The mime type is returned when the
// payload carries one.
func DecodePayload(payload string) (mimeType string, data []byte, err error) {
	raw := payload
	if strings.HasPrefix(payload, "data:") {
		header, rest, found := strings.Cut(payload[len("data:"):], ",")
		if !found {
			return "", nil, fmt.Errorf("malformed data URI")
		}
		mimeType = strings.TrimSuffix(header, ";base64")
		raw = rest
	}

	data, err = base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("empty media payload")
	}
	return mimeType, data, nil
}
