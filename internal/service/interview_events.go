package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/interview-sim-api/internal/interview"
)

// Interview lifecycle event types, also used as subject suffixes.
const (
	EventInterviewStarted   = "started"
	EventInterviewCompleted = "completed"
)

// InterviewEvent describes a lifecycle transition of one interview session.
type InterviewEvent struct {
	Type          string         `json:"type"`
	Session       string         `json:"session"`
	Mode          interview.Mode `json:"mode"`
	QuestionCount int            `json:"question_count"`
	TotalScore    int            `json:"total_score"`
	Status        string         `json:"status,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

// InterviewEventPublisher fans out lifecycle events. Publishing is best-effort.
type InterviewEventPublisher interface {
	Publish(ctx context.Context, event InterviewEvent)
}

type subjectPublisher interface {
	Publish(subject string, data []byte) error
}

type natsEventPublisher struct {
	conn    subjectPublisher
	subject string
	logger  zerolog.Logger
}

// NewNATSEventPublisher publishes events on "<subject>.<type>". A nil connection disables publishing.
func NewNATSEventPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) InterviewEventPublisher {
	if conn == nil {
		return noopEventPublisher{}
	}
	return newEventPublisher(conn, subject, logger)
}

func newEventPublisher(conn subjectPublisher, subject string, logger zerolog.Logger) *natsEventPublisher {
	subject = strings.Trim(strings.TrimSpace(subject), ".")
	if subject == "" {
		subject = "interview"
	}
	return &natsEventPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "interview_events").Logger(),
	}
}

func (p *natsEventPublisher) Publish(_ context.Context, event InterviewEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to encode interview event")
		return
	}

	subject := p.subject + "." + event.Type
	if err := p.conn.Publish(subject, payload); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish interview event")
	}
}

type noopEventPublisher struct{}

func (noopEventPublisher) Publish(context.Context, InterviewEvent) {}

// sessionFingerprint keeps raw session ids off the event bus.
func sessionFingerprint(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}
