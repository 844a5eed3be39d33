package interview

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	// ErrEmptyTurnInput indicates neither a message nor an audio reference was supplied.
	ErrEmptyTurnInput = errors.New("turn requires a text message or an audio reference")
	// ErrMixedTurnInput indicates more than one input shape was supplied.
	ErrMixedTurnInput = errors.New("turn must carry exactly one of text message or audio reference")
	// ErrAudioRequiresVoiceMode indicates audio was sent to a text interview.
	ErrAudioRequiresVoiceMode = errors.New("audio input is only allowed in voice mode")
	// ErrEmptyCode indicates a code submission without code.
	ErrEmptyCode = errors.New("code submission requires code")
)

// InputKind tags the shape of a turn input.
type InputKind string

const (
	InputText  InputKind = "text"
	InputAudio InputKind = "audio"
	InputCode  InputKind = "code"
)

// TurnInput is exactly one of a text message, an audio reference or a code submission.
type TurnInput struct {
	Kind     InputKind
	Text     string
	AudioURL string
	Code     string
	Language string
}

// NewConversationInput picks the text or audio shape, rejecting mixes and blanks.
func NewConversationInput(text, audioURL string) (TurnInput, error) {
	text = strings.TrimSpace(text)
	audioURL = strings.TrimSpace(audioURL)

	switch {
	case text != "" && audioURL != "":
		return TurnInput{}, ErrMixedTurnInput
	case audioURL != "":
		return TurnInput{Kind: InputAudio, AudioURL: audioURL}, nil
	case text != "":
		return TurnInput{Kind: InputText, Text: text}, nil
	default:
		return TurnInput{}, ErrEmptyTurnInput
	}
}

// NewCodeInput builds a code submission; language defaults to python.
func NewCodeInput(code, language string) (TurnInput, error) {
	if strings.TrimSpace(code) == "" {
		return TurnInput{}, ErrEmptyCode
	}
	language = strings.ToLower(strings.TrimSpace(language))
	if language == "" {
		language = "python"
	}
	return TurnInput{Kind: InputCode, Code: code, Language: language}, nil
}

// ValidateFor checks the input against the session mode.
func (in TurnInput) ValidateFor(mode Mode) error {
	if in.Kind == InputAudio && mode != ModeVoice {
		return ErrAudioRequiresVoiceMode
	}
	return nil
}

// ScoreSummary is attached to every text-mode turn result.
type ScoreSummary struct {
	QuestionScore int `json:"question_score"`
	TotalScore    int `json:"total_score"`
}

// CompletionStatus is the interview_status block of a text-mode turn result.
type CompletionStatus struct {
	Complete           bool   `json:"complete"`
	Status             string `json:"status,omitempty"`
	TotalScore         *int   `json:"total_score,omitempty"`
	Threshold          *int   `json:"threshold,omitempty"`
	QuestionsAnswered  int    `json:"questions_answered"`
	QuestionsRemaining *int   `json:"questions_remaining,omitempty"`
}

// NewCompletionStatus renders an evaluation in the wire shape.
func NewCompletionStatus(eval Evaluation) *CompletionStatus {
	status := &CompletionStatus{
		Complete:          eval.Complete,
		QuestionsAnswered: eval.QuestionsAnswered,
	}
	if eval.Complete {
		total := eval.TotalScore
		threshold := PassThreshold
		status.Status = eval.Status()
		status.TotalScore = &total
		status.Threshold = &threshold
		return status
	}
	remaining := eval.QuestionsRemaining
	status.QuestionsRemaining = &remaining
	return status
}

// TurnResult is the upstream payload augmented with session information.
// Text-mode results carry Score and Status; voice-mode results may carry AudioURL.
type TurnResult struct {
	Payload           map[string]any
	Score             *ScoreSummary
	Status            *CompletionStatus
	EvaluationMessage string
	AudioURL          string
}

// MarshalJSON merges the augmentation fields into the upstream payload.
func (r TurnResult) MarshalJSON() ([]byte, error) {
	merged := make(map[string]any, len(r.Payload)+4)
	for key, value := range r.Payload {
		merged[key] = value
	}
	if r.Score != nil {
		merged["user_score"] = r.Score
	}
	if r.Status != nil {
		merged["interview_status"] = r.Status
	}
	if r.EvaluationMessage != "" {
		merged["evaluation_message"] = r.EvaluationMessage
	}
	if r.AudioURL != "" {
		merged["audio_url"] = r.AudioURL
	}
	return json.Marshal(merged)
}
