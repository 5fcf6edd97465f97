package chatsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"chat-app-server/internal/models"
	"chat-app-server/internal/service"
)

// API is the durable half of the protocol: everything that must survive a
// disconnect goes through these calls, never through the realtime feed.
type API interface {
	ListPeers(ctx context.Context) ([]models.UserSanitized, error)
	ListMessages(ctx context.Context, peerID string) ([]models.Message, error)
	SendMessage(ctx context.Context, peerID string, content service.Content) (models.Message, error)
	EditMessage(ctx context.Context, messageID, text string) (models.Message, error)
	DeleteMessage(ctx context.Context, messageID string) error
}

// HTTPAPI talks to the server's REST surface with a bearer token.
type HTTPAPI struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPAPI creates an HTTPAPI for the given server and access token.
func NewHTTPAPI(baseURL, token string) *HTTPAPI {
	return &HTTPAPI{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  http.DefaultClient,
	}
}

func (a *HTTPAPI) ListPeers(ctx context.Context) ([]models.UserSanitized, error) {
	var peers []models.UserSanitized
	err := a.do(ctx, http.MethodGet, "/api/v1/messages/peers", nil, &peers)
	return peers, err
}

func (a *HTTPAPI) ListMessages(ctx context.Context, peerID string) ([]models.Message, error) {
	var messages []models.Message
	err := a.do(ctx, http.MethodGet, "/api/v1/messages/"+peerID, nil, &messages)
	return messages, err
}

func (a *HTTPAPI) SendMessage(ctx context.Context, peerID string, content service.Content) (models.Message, error) {
	var message models.Message
	err := a.do(ctx, http.MethodPost, "/api/v1/messages/send/"+peerID, content, &message)
	return message, err
}

func (a *HTTPAPI) EditMessage(ctx context.Context, messageID, text string) (models.Message, error) {
	var message models.Message
	body := map[string]string{"text": text}
	err := a.do(ctx, http.MethodPatch, "/api/v1/messages/edit/"+messageID, body, &message)
	return message, err
}

func (a *HTTPAPI) DeleteMessage(ctx context.Context, messageID string) error {
	return a.do(ctx, http.MethodDelete, "/api/v1/messages/delete/"+messageID, nil, nil)
}

// do performs one JSON round trip and unwraps the server's response envelope.
func (a *HTTPAPI) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.Token)

	resp, err := a.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Status  int             `json:"status"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
	}

	if resp.StatusCode >= 300 {
		msg := envelope.Error
		if msg == "" {
			msg = envelope.Message
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, msg)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s %s: decoding data: %w", method, path, err)
		}
	}
	return nil
}

var _ API = (*HTTPAPI)(nil)
