package models

import "time"

// AudioUpload records an answer recording stored with the audio provider.
type AudioUpload struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SessionKey string    `gorm:"size:128;index" json:"session_key"`
	PublicID   string    `gorm:"size:255;uniqueIndex;not null" json:"public_id"`
	FileName   string    `gorm:"size:255;not null" json:"file_name"`
	URL        string    `gorm:"size:512;not null" json:"url"`
	MimeType   string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes  int64     `gorm:"not null" json:"size_bytes"`
	Checksum   string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
}
