package dto

import "strings"

// StartInterviewRequest selects the interview mode. Empty means text.
type StartInterviewRequest struct {
	InterviewMode string `json:"interview_mode" validate:"omitempty,oneof=text voice"`
}

// ContinueInterviewRequest carries either a text answer or a reference to an uploaded recording.
type ContinueInterviewRequest struct {
	Message        string `json:"message"`
	AudioURL       string `json:"audio_url" validate:"omitempty,url"`
	CloudinaryURL  string `json:"cloudinary_url" validate:"omitempty,url"`
	IsAudioMessage bool   `json:"is_audio_message"`
}

// AudioReference returns the recording URL, preferring cloudinary_url.
func (r ContinueInterviewRequest) AudioReference() string {
	if ref := strings.TrimSpace(r.CloudinaryURL); ref != "" {
		return ref
	}
	return strings.TrimSpace(r.AudioURL)
}

// CodeReviewRequest submits code for review as an interview turn.
type CodeReviewRequest struct {
	Code     string `json:"code" validate:"required,max=100000"`
	Language string `json:"language" validate:"omitempty,max=32"`
}

// InterviewScoreResponse reports the session counters.
type InterviewScoreResponse struct {
	Mode          string `json:"mode"`
	TotalScore    int    `json:"total_score"`
	QuestionCount int    `json:"question_count"`
}
