package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/interview-sim-api/internal/dto"
	"github.com/noah-isme/interview-sim-api/internal/interview"
	"github.com/noah-isme/interview-sim-api/internal/middleware"
	"github.com/noah-isme/interview-sim-api/internal/observability"
	"github.com/noah-isme/interview-sim-api/internal/repository"
	"github.com/noah-isme/interview-sim-api/pkg/shapes"
)

// Default personas for each interview mode.
const (
	DefaultVoiceModel = "shapesinc/carmack"
	DefaultTextModel  = "shapesinc/linus-i7wn"
)

// ErrChatNotConfigured indicates no chat API key is available.
var ErrChatNotConfigured = errors.New("shapes api key not configured")

// ChatCompleter performs one chat completion call.
type ChatCompleter interface {
	Configured() bool
	Complete(ctx context.Context, req shapes.Request) (*shapes.Response, error)
}

// MemoryResetter clears remote conversational memory for the given personas. It never fails.
type MemoryResetter interface {
	Reset(ctx context.Context, models ...string)
}

// InterviewServiceConfig selects the personas used per mode.
type InterviewServiceConfig struct {
	VoiceModel string
	TextModel  string
}

// InterviewService coordinates interview turns for one session key at a time.
// Callers must not run two turns for the same key concurrently.
type InterviewService interface {
	Start(ctx context.Context, sessionKey string, mode interview.Mode) (interview.TurnResult, error)
	Continue(ctx context.Context, sessionKey string, input interview.TurnInput) (interview.TurnResult, error)
	ReviewCode(ctx context.Context, sessionKey, code, language string) (interview.TurnResult, error)
	Score(ctx context.Context, sessionKey string) (dto.InterviewScoreResponse, error)
}

type interviewService struct {
	chat     ChatCompleter
	resetter MemoryResetter
	store    repository.SessionStore
	events   InterviewEventPublisher
	models   map[interview.Mode]string
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// NewInterviewService constructs the interview orchestrator. resetter and events may be nil.
func NewInterviewService(chat ChatCompleter, resetter MemoryResetter, store repository.SessionStore, events InterviewEventPublisher, cfg InterviewServiceConfig, logger zerolog.Logger) InterviewService {
	voiceModel := strings.TrimSpace(cfg.VoiceModel)
	if voiceModel == "" {
		voiceModel = DefaultVoiceModel
	}
	textModel := strings.TrimSpace(cfg.TextModel)
	if textModel == "" {
		textModel = DefaultTextModel
	}
	if events == nil {
		events = noopEventPublisher{}
	}

	return &interviewService{
		chat:     chat,
		resetter: resetter,
		store:    store,
		events:   events,
		models: map[interview.Mode]string{
			interview.ModeVoice: voiceModel,
			interview.ModeText:  textModel,
		},
		logger: logger.With().Str("component", "interview_service").Logger(),
		tracer: otel.Tracer("github.com/noah-isme/interview-sim-api/internal/service/interview"),
	}
}

func (s *interviewService) Start(ctx context.Context, sessionKey string, mode interview.Mode) (interview.TurnResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.start", trace.WithAttributes(attribute.String("interview.mode", string(mode))))
	defer span.End()

	if mode != interview.ModeText && mode != interview.ModeVoice {
		return interview.TurnResult{}, s.fail(span, interview.ErrUnknownMode, "validation failed")
	}
	if !s.chat.Configured() {
		return interview.TurnResult{}, s.fail(span, ErrChatNotConfigured, "chat not configured")
	}

	session := interview.NewSession(mode)
	if err := s.store.Save(ctx, sessionKey, session); err != nil {
		return interview.TurnResult{}, s.fail(span, fmt.Errorf("reset session: %w", err), "session store failed")
	}

	if s.resetter != nil {
		s.resetter.Reset(ctx, s.models[interview.ModeVoice], s.models[interview.ModeText])
	}

	resp, err := s.chat.Complete(ctx, shapes.Request{
		Model: s.models[mode],
		Messages: []shapes.Message{
			shapes.TextMessage(shapes.RoleSystem, startPrompt(mode)),
			shapes.TextMessage(shapes.RoleUser, openingMessage),
		},
		Headers: requestHeaders(ctx),
	})
	if err != nil {
		observability.InterviewTurns().WithLabelValues("start", string(mode), "upstream_error").Inc()
		return interview.TurnResult{}, s.fail(span, err, "chat completion failed")
	}
	observability.InterviewTurns().WithLabelValues("start", string(mode), "ok").Inc()

	s.events.Publish(ctx, InterviewEvent{
		Type:    EventInterviewStarted,
		Session: sessionFingerprint(sessionKey),
		Mode:    mode,
	})

	result := interview.TurnResult{Payload: resp.Payload}
	if mode == interview.ModeVoice {
		result.AudioURL = s.resolveAudio(resp)
	}
	span.SetStatus(codes.Ok, "started")
	return result, nil
}

func (s *interviewService) Continue(ctx context.Context, sessionKey string, input interview.TurnInput) (interview.TurnResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.continue", trace.WithAttributes(attribute.String("interview.input_kind", string(input.Kind))))
	defer span.End()

	session, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return interview.TurnResult{}, s.fail(span, fmt.Errorf("load session: %w", err), "session store failed")
	}

	var message shapes.Message
	switch input.Kind {
	case interview.InputText:
		message = shapes.TextMessage(shapes.RoleUser, input.Text)
	case interview.InputAudio:
		message = shapes.AudioMessage(input.AudioURL)
	default:
		return interview.TurnResult{}, s.fail(span, interview.ErrEmptyTurnInput, "validation failed")
	}
	if err := input.ValidateFor(session.Mode); err != nil {
		return interview.TurnResult{}, s.fail(span, err, "validation failed")
	}

	return s.runTurn(ctx, span, sessionKey, session, "continue", []shapes.Message{message})
}

func (s *interviewService) ReviewCode(ctx context.Context, sessionKey, code, language string) (interview.TurnResult, error) {
	ctx, span := s.tracer.Start(ctx, "interview.review_code")
	defer span.End()

	input, err := interview.NewCodeInput(code, language)
	if err != nil {
		return interview.TurnResult{}, s.fail(span, err, "validation failed")
	}
	span.SetAttributes(attribute.String("interview.language", input.Language))

	session, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return interview.TurnResult{}, s.fail(span, fmt.Errorf("load session: %w", err), "session store failed")
	}

	messages := []shapes.Message{
		shapes.TextMessage(shapes.RoleSystem, codeReviewPrompt(session.Mode, input.Language)),
		shapes.TextMessage(shapes.RoleUser, codeReviewMessage(input.Code, input.Language)),
	}
	return s.runTurn(ctx, span, sessionKey, session, "code", messages)
}

func (s *interviewService) Score(ctx context.Context, sessionKey string) (dto.InterviewScoreResponse, error) {
	session, err := s.store.Load(ctx, sessionKey)
	if err != nil {
		return dto.InterviewScoreResponse{}, fmt.Errorf("load session: %w", err)
	}
	return dto.InterviewScoreResponse{
		Mode:          string(session.Mode),
		TotalScore:    session.TotalScore,
		QuestionCount: session.QuestionCount,
	}, nil
}

// runTurn reserves the turn slot, dispatches the request and folds the response into the session.
func (s *interviewService) runTurn(ctx context.Context, span trace.Span, sessionKey string, session interview.Session, kind string, messages []shapes.Message) (interview.TurnResult, error) {
	mode := session.Mode
	span.SetAttributes(attribute.String("interview.mode", string(mode)))

	if !s.chat.Configured() {
		return interview.TurnResult{}, s.fail(span, ErrChatNotConfigured, "chat not configured")
	}

	session.ReserveTurn()
	if err := s.store.Save(ctx, sessionKey, session); err != nil {
		return interview.TurnResult{}, s.fail(span, fmt.Errorf("reserve turn: %w", err), "session store failed")
	}
	span.SetAttributes(attribute.Int("interview.question_count", session.QuestionCount))

	resp, err := s.chat.Complete(ctx, shapes.Request{
		Model:     s.models[mode],
		Messages:  messages,
		VoiceMode: mode == interview.ModeVoice,
		Headers:   requestHeaders(ctx),
	})
	if err != nil {
		observability.InterviewTurns().WithLabelValues(kind, string(mode), "upstream_error").Inc()
		session.ReleaseTurn()
		if saveErr := s.store.Save(context.WithoutCancel(ctx), sessionKey, session); saveErr != nil {
			s.logger.Warn().Err(saveErr).Msg("failed to release reserved turn")
		}
		return interview.TurnResult{}, s.fail(span, err, "chat completion failed")
	}
	observability.InterviewTurns().WithLabelValues(kind, string(mode), "ok").Inc()

	if !session.Scored() {
		span.SetStatus(codes.Ok, "voice turn")
		return interview.TurnResult{Payload: resp.Payload, AudioURL: s.resolveAudio(resp)}, nil
	}

	var text string
	if message, ok := resp.FirstMessage(); ok {
		text = message.Content.PlainText()
	}
	match := interview.ExtractScore(text)
	s.recordExtraction(match)
	session.RecordScore(match)

	if err := s.store.Save(context.WithoutCancel(ctx), sessionKey, session); err != nil {
		return interview.TurnResult{}, s.fail(span, fmt.Errorf("record score: %w", err), "session store failed")
	}

	eval := session.Evaluate()
	result := interview.TurnResult{
		Payload: resp.Payload,
		Score:   &interview.ScoreSummary{QuestionScore: match.Value, TotalScore: session.TotalScore},
		Status:  interview.NewCompletionStatus(eval),
	}
	if eval.Complete {
		result.EvaluationMessage = eval.Message()
		if session.QuestionCount == interview.QuestionLimit {
			observability.InterviewsCompleted().WithLabelValues(eval.Status()).Inc()
			s.events.Publish(ctx, InterviewEvent{
				Type:          EventInterviewCompleted,
				Session:       sessionFingerprint(sessionKey),
				Mode:          mode,
				QuestionCount: session.QuestionCount,
				TotalScore:    session.TotalScore,
				Status:        eval.Status(),
			})
		}
	}

	span.SetAttributes(
		attribute.Int("interview.question_score", match.Value),
		attribute.Int("interview.total_score", session.TotalScore),
	)
	span.SetStatus(codes.Ok, "text turn")
	return result, nil
}

func (s *interviewService) resolveAudio(resp *shapes.Response) string {
	url, strategy := interview.ResolveAudio(resp)
	if strategy == "" {
		strategy = "none"
	}
	observability.AudioResolutions().WithLabelValues(strategy).Inc()
	s.logger.Debug().Str("strategy", strategy).Bool("found", url != "").Msg("audio resolution")
	return url
}

func (s *interviewService) recordExtraction(match interview.ScoreMatch) {
	pattern := match.Pattern
	if !match.Found {
		pattern = "none"
	}
	observability.ScoreExtractions().WithLabelValues(pattern).Inc()
	s.logger.Debug().Str("pattern", pattern).Int("score", match.Value).Msg("score extraction")
}

func (s *interviewService) fail(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}

func requestHeaders(ctx context.Context) map[string]string {
	correlationID := middleware.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		return nil
	}
	return map[string]string{"X-Correlation-ID": correlationID}
}
