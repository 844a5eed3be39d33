package dto

// AudioUploadResponse describes a stored answer recording.
type AudioUploadResponse struct {
	AudioURL      string `json:"audio_url"`
	CloudinaryURL string `json:"cloudinary_url"`
	PublicID      string `json:"public_id"`
	MimeType      string `json:"mime_type"`
	SizeBytes     int64  `json:"size_bytes"`
}
