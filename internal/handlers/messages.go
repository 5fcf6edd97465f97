package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"chat-app-server/internal/middleware"
	"chat-app-server/internal/service"
	"chat-app-server/internal/utils"
)

// MessageHandler exposes the message lifecycle over REST. All protocol rules
// live in the MessageService; this layer binds requests and translates the
// service's sentinel errors to HTTP responses.
type MessageHandler struct {
	Service *service.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{Service: svc}
}

// GetPeers handles fetching the directory of users available to chat with.
func (h *MessageHandler) GetPeers(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	peers, err := h.Service.ListPeers(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Peers fetched successfully", peers)
}

// GetMessages handles fetching the conversation with the user in the path.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	messages, err := h.Service.ListConversation(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Messages fetched successfully", messages)
}

// SendMessage handles sending a new message to the user in the path.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var content service.Content
	if err := c.ShouldBindJSON(&content); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	message, err := h.Service.Send(c.Request.Context(), userID, c.Param("id"), content)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Created(c, "Message sent successfully", message)
}

// EditMessageRequest represents the request body for editing a message.
type EditMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// EditMessage handles replacing the text of a previously sent message.
func (h *MessageHandler) EditMessage(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var req EditMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	message, err := h.Service.Edit(c.Request.Context(), userID, c.Param("messageId"), req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Message updated successfully", message)
}

// DeleteMessage handles soft-deleting a previously sent message.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	if err := h.Service.Delete(c.Request.Context(), userID, c.Param("messageId")); err != nil {
		h.fail(c, err)
		return
	}
	utils.Success(c, "Message deleted successfully", gin.H{"success": true})
}

// fail maps service errors onto the response helpers.
func (h *MessageHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrForbidden):
		utils.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrMediaUpstream):
		utils.BadGateway(c, err.Error())
	default:
		utils.InternalServerError(c, err.Error())
	}
}
