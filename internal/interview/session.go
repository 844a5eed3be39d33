package interview

import (
	"errors"
	"fmt"
	"strings"
)

// Scoring rules for text interviews.
const (
	QuestionLimit = 5
	PassThreshold = 30
	MaxTotalScore = QuestionLimit * 10
)

// Verdicts reported once a text interview completes.
const (
	StatusPassed = "passed"
	StatusFailed = "failed"
)

// ErrUnknownMode is returned for modes other than text and voice.
var ErrUnknownMode = errors.New("interview mode must be text or voice")

// Mode selects the persona and whether turns are scored.
type Mode string

const (
	ModeText  Mode = "text"
	ModeVoice Mode = "voice"
)

// ParseMode accepts "text" or "voice" (case-insensitive); empty means text.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", ModeText:
		return ModeText, nil
	case ModeVoice:
		return ModeVoice, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, raw)
	}
}

// State is the lifecycle position derived from the question count.
type State string

const (
	StateFresh      State = "fresh"
	StateInProgress State = "in_progress"
	StateComplete   State = "complete"
)

// Session holds the per-interview counters. Callers serialise turns per session.
type Session struct {
	Mode          Mode `json:"mode"`
	QuestionCount int  `json:"question_count"`
	TotalScore    int  `json:"total_score"`
}

// NewSession returns zeroed counters for mode.
func NewSession(mode Mode) Session {
	if mode == "" {
		mode = ModeText
	}
	return Session{Mode: mode}
}

// State reports the lifecycle position. Complete is terminal for scoring only;
// further turns are still accepted.
func (s Session) State() State {
	switch {
	case s.QuestionCount <= 0:
		return StateFresh
	case s.QuestionCount < QuestionLimit:
		return StateInProgress
	default:
		return StateComplete
	}
}

// Scored reports whether turns in this session accumulate score.
func (s Session) Scored() bool {
	return s.Mode != ModeVoice
}

// ReserveTurn claims the ordinal slot for a turn about to be dispatched.
func (s *Session) ReserveTurn() {
	s.QuestionCount++
}

// ReleaseTurn gives back a slot whose remote call never produced a response.
func (s *Session) ReleaseTurn() {
	if s.QuestionCount > 0 {
		s.QuestionCount--
	}
}

// RecordScore adds a text-mode turn's score. Misses add nothing.
func (s *Session) RecordScore(match ScoreMatch) {
	if match.Found {
		s.TotalScore += match.Value
	}
}

// Evaluation is the completion verdict for a text session.
type Evaluation struct {
	Complete           bool
	Passed             bool
	QuestionsAnswered  int
	QuestionsRemaining int
	TotalScore         int
}

// Evaluate applies the completion and pass/fail rules to the current counters.
func (s Session) Evaluate() Evaluation {
	eval := Evaluation{
		QuestionsAnswered: s.QuestionCount,
		TotalScore:        s.TotalScore,
	}
	if s.QuestionCount >= QuestionLimit {
		eval.Complete = true
		eval.Passed = s.TotalScore >= PassThreshold
		return eval
	}
	eval.QuestionsRemaining = QuestionLimit - s.QuestionCount
	return eval
}

// Status is "passed" or "failed" for complete evaluations, empty otherwise.
func (e Evaluation) Status() string {
	if !e.Complete {
		return ""
	}
	if e.Passed {
		return StatusPassed
	}
	return StatusFailed
}

// Message is the human-readable verdict shown once the interview completes.
func (e Evaluation) Message() string {
	if !e.Complete {
		return ""
	}
	if e.Passed {
		return fmt.Sprintf("Congratulations! You've completed %d questions with a total score of %d/%d. You've passed the interview!", QuestionLimit, e.TotalScore, MaxTotalScore)
	}
	return fmt.Sprintf("You've completed %d questions with a total score of %d/%d. The passing threshold is %d points. Keep practicing and try again!", QuestionLimit, e.TotalScore, MaxTotalScore, PassThreshold)
}
