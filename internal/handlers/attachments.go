package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chat-app-server/internal/models"
	"chat-app-server/internal/utils"
)

// AttachmentHandler serves the binary content behind resolved media URLs.
type AttachmentHandler struct {
	DB *gorm.DB
}

// NewAttachmentHandler creates a new AttachmentHandler.
func NewAttachmentHandler(db *gorm.DB) *AttachmentHandler {
	return &AttachmentHandler{DB: db}
}

// GetAttachment handles retrieving an attachment by ID and serving its data
// with the stored content type.
func (h *AttachmentHandler) GetAttachment(c *gin.Context) {
	var attachment models.Attachment
	if err := h.DB.First(&attachment, "id = ?", c.Param("id")).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.NotFound(c, "Attachment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if attachment.FileName != "" {
		c.Header("Content-Disposition", `inline; filename="`+attachment.FileName+`"`)
	}
	c.Data(http.StatusOK, attachment.MimeType, attachment.Data)
}
