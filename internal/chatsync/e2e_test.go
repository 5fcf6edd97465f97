package chatsync_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"chat-app-server/internal/chatsync"
	"chat-app-server/internal/config"
	"chat-app-server/internal/models"
	"chat-app-server/internal/realtime"
	"chat-app-server/internal/routes"
	"chat-app-server/internal/service"
)

// The tests below run the full protocol against a real server: REST through
// HTTPAPI, pushes through a dialed websocket feed.

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	cfg := &config.Config{
		Environment:               "development",
		JWTSecret:                 "e2e-secret",
		JWTRefreshSecret:          "e2e-refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 1,
	}

	router := gin.New()
	hub := realtime.NewHub(realtime.NewMemoryRegistry())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Attachment URLs must point back at this test server.
	cfg.AppURL = server.URL
	routes.SetupRoutes(router, db, cfg, hub)
	return server
}

func signUp(t *testing.T, serverURL, name string) (id, token string) {
	t.Helper()
	post := func(path string, body map[string]string) map[string]json.RawMessage {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(payload))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Less(t, resp.StatusCode, 300)
		var envelope struct {
			Data map[string]json.RawMessage `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
		return envelope.Data
	}

	data := post("/api/v1/auth/register", map[string]string{
		"fullName": name,
		"email":    name + "@example.com",
		"password": "password123",
	})
	require.NoError(t, json.Unmarshal(data["id"], &id))

	data = post("/api/v1/auth/login", map[string]string{
		"email":    name + "@example.com",
		"password": "password123",
	})
	require.NoError(t, json.Unmarshal(data["accessToken"], &token))
	return id, token
}

func TestLiveDeliveryAcrossClients(t *testing.T) {
	server := startServer(t)
	aliceID, aliceToken := signUp(t, server.URL, "alice")
	bobID, bobToken := signUp(t, server.URL, "bob")

	ctx := context.Background()

	// Bob is online with alice's conversation open.
	bobFeed, err := chatsync.DialFeed(ctx, server.URL, bobToken)
	require.NoError(t, err)
	defer bobFeed.Close()
	bobAPI := chatsync.NewHTTPAPI(server.URL, bobToken)
	bobView, err := chatsync.OpenConversation(ctx, bobAPI, bobFeed, aliceID)
	require.NoError(t, err)
	defer bobView.Close()

	// Alice sends over REST only.
	aliceAPI := chatsync.NewHTTPAPI(server.URL, aliceToken)
	sent, err := aliceAPI.SendMessage(ctx, bobID, service.Content{Text: "hi"})
	require.NoError(t, err)
	assert.False(t, sent.Edited)
	assert.False(t, sent.Deleted)

	// The pushed message-created folds into bob's local state.
	require.Eventually(t, func() bool {
		msgs := bobView.Messages()
		return len(msgs) == 1 && msgs[0].ID == sent.ID
	}, 2*time.Second, 10*time.Millisecond)

	// Edit propagates to both views; bob merges in place.
	edited, err := aliceAPI.EditMessage(ctx, sent.ID, "hi there")
	require.NoError(t, err)
	assert.True(t, edited.Edited)
	require.Eventually(t, func() bool {
		msgs := bobView.Messages()
		return len(msgs) == 1 && msgs[0].Text == "hi there" && msgs[0].Edited
	}, 2*time.Second, 10*time.Millisecond)

	// Delete flags without removing.
	require.NoError(t, aliceAPI.DeleteMessage(ctx, sent.ID))
	require.Eventually(t, func() bool {
		msgs := bobView.Messages()
		return len(msgs) == 1 && msgs[0].Deleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTypingIndicatorEndToEnd(t *testing.T) {
	server := startServer(t)
	aliceID, aliceToken := signUp(t, server.URL, "alice")
	bobID, bobToken := signUp(t, server.URL, "bob")

	ctx := context.Background()

	bobFeed, err := chatsync.DialFeed(ctx, server.URL, bobToken)
	require.NoError(t, err)
	defer bobFeed.Close()
	bobView, err := chatsync.OpenConversation(ctx, chatsync.NewHTTPAPI(server.URL, bobToken), bobFeed, aliceID)
	require.NoError(t, err)
	defer bobView.Close()

	aliceFeed, err := chatsync.DialFeed(ctx, server.URL, aliceToken)
	require.NoError(t, err)
	defer aliceFeed.Close()

	notifier := chatsync.NewTypingNotifier(aliceFeed, bobID)
	notifier.Keystroke()

	require.Eventually(t, bobView.PeerTyping, 2*time.Second, 10*time.Millisecond)

	// No message appeared, only the flag.
	assert.Empty(t, bobView.Messages())

	notifier.Flush()
	require.Eventually(t, func() bool { return !bobView.PeerTyping() }, 2*time.Second, 10*time.Millisecond)
}

func TestReconnectResyncsOverREST(t *testing.T) {
	server := startServer(t)
	aliceID, aliceToken := signUp(t, server.URL, "alice")
	bobID, bobToken := signUp(t, server.URL, "bob")

	ctx := context.Background()
	aliceAPI := chatsync.NewHTTPAPI(server.URL, aliceToken)

	// Alice sends while bob is offline; no replay will ever happen.
	_, err := aliceAPI.SendMessage(ctx, bobID, service.Content{Text: "while you were away"})
	require.NoError(t, err)

	bobFeed, err := chatsync.DialFeed(ctx, server.URL, bobToken)
	require.NoError(t, err)
	defer bobFeed.Close()
	bobView, err := chatsync.OpenConversation(ctx, chatsync.NewHTTPAPI(server.URL, bobToken), bobFeed, aliceID)
	require.NoError(t, err)
	defer bobView.Close()

	// Open fetched the missed message through the history snapshot.
	msgs := bobView.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "while you were away", msgs[0].Text)
}
