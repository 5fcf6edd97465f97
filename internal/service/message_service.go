package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chat-app-server/internal/media"
	"chat-app-server/internal/metrics"
	"chat-app-server/internal/models"
	"chat-app-server/internal/realtime"
)

// Notifier delivers best-effort push events to a user's live connection. A
// user without a live connection is a silent no-op.
type Notifier interface {
	Notify(userID string, event string, payload interface{})
}

// FileUpload is the raw file part of a send request.
type FileUpload struct {
	Data      string `json:"data" binding:"required"`
	Name      string `json:"name" binding:"required"`
	MimeType  string `json:"mimeType" binding:"required"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Content is the body of a new message: at most one image and one file
// alongside optional text.
type Content struct {
	Text  string      `json:"text"`
	Image string      `json:"image"`
	File  *FileUpload `json:"file"`
}

func (c Content) empty() bool {
	return c.Text == "" && c.Image == "" && c.File == nil
}

// MessageService executes the message lifecycle: it validates and authorizes
// operations, keeps the store canonical, and notifies live connections only
// after a write has committed. Push failures never surface to the caller.
type MessageService struct {
	DB       *gorm.DB
	Media    media.Resolver
	Notifier Notifier
}

// NewMessageService creates a MessageService.
func NewMessageService(db *gorm.DB, resolver media.Resolver, notifier Notifier) *MessageService {
	return &MessageService{DB: db, Media: resolver, Notifier: notifier}
}

// ListPeers returns every known user except the requester, without credential
// fields. This is the directory for starting new conversations.
func (s *MessageService) ListPeers(ctx context.Context, requesterID string) ([]models.UserSanitized, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).Where("id <> ?", requesterID).Order("full_name asc").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("%w: listing users: %v", ErrStore, err)
	}

	peers := make([]models.UserSanitized, 0, len(users))
	for i := range users {
		peers = append(peers, users[i].Sanitize())
	}
	return peers, nil
}

// ListConversation returns the full history between the requester and the
// other user, both directions, oldest first. Deleted messages are included
// with their flag set so clients keep layout positions stable.
func (s *MessageService) ListConversation(ctx context.Context, requesterID, otherUserID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			requesterID, otherUserID, otherUserID, requesterID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("%w: listing conversation: %v", ErrStore, err)
	}
	return messages, nil
}

// Send resolves any media, persists the new message and then pushes a
// message-created event to the receiver's live connection. Media resolution
// failures abort the send with nothing stored; an offline receiver is not an
// error, the message is picked up on their next fetch.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID string, content Content) (*models.Message, error) {
	if senderID == "" || receiverID == "" {
		return nil, fmt.Errorf("%w: sender and receiver are required", ErrValidation)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: cannot send a message to yourself", ErrValidation)
	}
	if content.empty() {
		return nil, fmt.Errorf("%w: message needs text, an image or a file", ErrValidation)
	}

	var receiver models.User
	if err := s.DB.WithContext(ctx).First(&receiver, "id = ?", receiverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: receiver %s", ErrNotFound, receiverID)
		}
		return nil, fmt.Errorf("%w: verifying receiver: %v", ErrStore, err)
	}

	message := models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Text:       content.Text,
	}

	// Resolve media to durable URLs before anything touches the store.
	if content.Image != "" {
		resolved, err := s.Media.Resolve(ctx, senderID, media.Upload{Data: content.Image})
		if err != nil {
			return nil, fmt.Errorf("%w: image: %v", ErrMediaUpstream, err)
		}
		message.Image = resolved.URL
	}
	if content.File != nil {
		resolved, err := s.Media.Resolve(ctx, senderID, media.Upload{
			Data:      content.File.Data,
			Name:      content.File.Name,
			MimeType:  content.File.MimeType,
			SizeBytes: content.File.SizeBytes,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: file: %v", ErrMediaUpstream, err)
		}
		message.File = models.FileAttachment{
			URL:       resolved.URL,
			Name:      resolved.Name,
			MimeType:  resolved.MimeType,
			SizeBytes: resolved.SizeBytes,
		}
	}

	if err := s.DB.WithContext(ctx).Create(&message).Error; err != nil {
		return nil, fmt.Errorf("%w: storing message: %v", ErrStore, err)
	}
	metrics.MessagesSent.Inc()

	// Write is durable, now the best-effort push.
	s.Notifier.Notify(receiverID, realtime.EventMessageCreated, message)

	return &message, nil
}

// Edit replaces the text of a message the requester sent and marks it edited.
// The edited flag is idempotent: it stays true on every subsequent edit.
func (s *MessageService) Edit(ctx context.Context, requesterID, messageID, newText string) (*models.Message, error) {
	message, err := s.loadOwned(ctx, requesterID, messageID)
	if err != nil {
		return nil, err
	}

	message.Text = newText
	message.Edited = true
	if err := s.DB.WithContext(ctx).Save(message).Error; err != nil {
		return nil, fmt.Errorf("%w: updating message: %v", ErrStore, err)
	}

	// The sender may be connected from another context, so both parties get
	// the update.
	s.Notifier.Notify(message.ReceiverID, realtime.EventMessageUpdated, message)
	s.Notifier.Notify(message.SenderID, realtime.EventMessageUpdated, message)

	return message, nil
}

// Delete soft-deletes a message the requester sent. Content columns are kept;
// only the flag flips, so history ordering and positions stay stable.
func (s *MessageService) Delete(ctx context.Context, requesterID, messageID string) error {
	message, err := s.loadOwned(ctx, requesterID, messageID)
	if err != nil {
		return err
	}

	message.Deleted = true
	if err := s.DB.WithContext(ctx).Save(message).Error; err != nil {
		return fmt.Errorf("%w: deleting message: %v", ErrStore, err)
	}

	signal := realtime.DeletedSignal{MessageID: message.ID}
	s.Notifier.Notify(message.ReceiverID, realtime.EventMessageDeleted, signal)
	s.Notifier.Notify(message.SenderID, realtime.EventMessageDeleted, signal)

	return nil
}

// loadOwned fetches a message and enforces that only the original sender may
// mutate it.
func (s *MessageService) loadOwned(ctx context.Context, requesterID, messageID string) (*models.Message, error) {
	var message models.Message
	if err := s.DB.WithContext(ctx).First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: message %s", ErrNotFound, messageID)
		}
		return nil, fmt.Errorf("%w: loading message: %v", ErrStore, err)
	}
	if message.SenderID != requesterID {
		return nil, fmt.Errorf("%w: only the sender may modify a message", ErrForbidden)
	}
	return &message, nil
}
