package handlers

import (
	"github.com/gin-gonic/gin"

	"chat-app-server/internal/config"
	"chat-app-server/internal/realtime"
	"chat-app-server/internal/utils"
)

// WSHandler upgrades authenticated clients onto the realtime hub.
type WSHandler struct {
	Hub *realtime.Hub
	Cfg *config.Config
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *realtime.Hub, cfg *config.Config) *WSHandler {
	return &WSHandler{Hub: hub, Cfg: cfg}
}

// Connect authenticates the handshake via the token query parameter (browser
// websocket clients cannot set an Authorization header) and hands the
// connection to the hub.
func (h *WSHandler) Connect(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		utils.Unauthorized(c, "token query parameter required")
		return
	}

	claims, err := utils.ValidateToken(tokenString, h.Cfg.JWTSecret)
	if err != nil {
		utils.Unauthorized(c, "Invalid token: "+err.Error())
		return
	}

	if err := h.Hub.Connect(c.Writer, c.Request, claims.UserID); err != nil {
		// Upgrade failures write their own response; nothing more to send.
		return
	}
}
