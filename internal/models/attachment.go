package models

// Attachment holds the binary content behind a resolved media URL. Messages
// never embed the bytes themselves; they reference the attachment by the URL
// the media resolver returned.
type Attachment struct {
	BaseModel
	OwnerID   string `gorm:"size:36;index" json:"ownerId"`
	FileName  string `json:"fileName" gorm:"size:255"`
	MimeType  string `json:"mimeType" gorm:"size:100;not null"`
	SizeBytes int64  `json:"sizeBytes"`
	Data      []byte `json:"-" gorm:"type:longblob;not null"` // File content as binary data (longblob for MySQL)
}
