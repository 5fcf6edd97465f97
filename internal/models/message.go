package models

// FileAttachment describes a resolved file attached to a message.
type FileAttachment struct {
	URL       string `gorm:"size:512" json:"url,omitempty"`
	Name      string `gorm:"size:255" json:"name,omitempty"`
	MimeType  string `gorm:"size:100" json:"mimeType,omitempty"`
	SizeBytes int64  `json:"sizeBytes,omitempty"`
}

// Message represents a direct message between two users. A message carries at
// least one of Text, Image or File. Delete is logical: Deleted is flipped and
// the content columns are left in place.
type Message struct {
	BaseModel
	SenderID   string         `gorm:"size:36;index;not null" json:"senderId"`
	ReceiverID string         `gorm:"size:36;index;not null" json:"receiverId"`
	Text       string         `gorm:"type:text" json:"text,omitempty"`
	Image      string         `gorm:"size:512" json:"image,omitempty"`
	File       FileAttachment `gorm:"embedded;embeddedPrefix:file_" json:"file"`
	Edited     bool           `gorm:"default:false" json:"edited"`
	Deleted    bool           `gorm:"default:false" json:"deleted"`

	// Relations
	Sender   User `gorm:"foreignKey:SenderID" json:"-"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"-"`
}

// HasFile reports whether the message carries a file attachment.
func (m *Message) HasFile() bool {
	return m.File.URL != ""
}
