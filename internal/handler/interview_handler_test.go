package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/interview-sim-api/internal/dto"
	"github.com/noah-isme/interview-sim-api/internal/handler"
	"github.com/noah-isme/interview-sim-api/internal/interview"
	"github.com/noah-isme/interview-sim-api/internal/middleware"
	"github.com/noah-isme/interview-sim-api/internal/service"
	"github.com/noah-isme/interview-sim-api/pkg/shapes"
)

type mockInterviewService struct {
	sessionKey string
	mode       interview.Mode
	input      interview.TurnInput
	code       string
	language   string
	result     interview.TurnResult
	score      dto.InterviewScoreResponse
	err        error
	calls      int
}

func (m *mockInterviewService) Start(_ context.Context, key string, mode interview.Mode) (interview.TurnResult, error) {
	m.calls++
	m.sessionKey, m.mode = key, mode
	return m.result, m.err
}

func (m *mockInterviewService) Continue(_ context.Context, key string, input interview.TurnInput) (interview.TurnResult, error) {
	m.calls++
	m.sessionKey, m.input = key, input
	return m.result, m.err
}

func (m *mockInterviewService) ReviewCode(_ context.Context, key, code, language string) (interview.TurnResult, error) {
	m.calls++
	m.sessionKey, m.code, m.language = key, code, language
	return m.result, m.err
}

func (m *mockInterviewService) Score(_ context.Context, key string) (dto.InterviewScoreResponse, error) {
	m.calls++
	m.sessionKey = key
	return m.score, m.err
}

func newInterviewApp(svc service.InterviewService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/interview", middleware.WithSessionKey("sess-9"))
	handler.NewInterviewHandler(svc, validator.New(), zerolog.New(io.Discard)).Register(group)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestInterviewHandlerStart(t *testing.T) {
	svc := &mockInterviewService{result: interview.TurnResult{Payload: map[string]any{"id": "cmpl-1"}}}
	app := newInterviewApp(svc)

	resp := postJSON(t, app, "/api/v1/interview/start", map[string]string{"interview_mode": "voice"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)
	require.JSONEq(t, `{"id":"cmpl-1"}`, string(body.Data))
	require.Equal(t, interview.ModeVoice, svc.mode)
	require.Equal(t, "sess-9", svc.sessionKey)
}

func TestInterviewHandlerStartRejectsUnknownMode(t *testing.T) {
	svc := &mockInterviewService{}
	app := newInterviewApp(svc)

	resp := postJSON(t, app, "/api/v1/interview/start", map[string]string{"interview_mode": "video"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.calls)
}

func TestInterviewHandlerContinueText(t *testing.T) {
	eval := interview.Session{QuestionCount: 1, TotalScore: 7}.Evaluate()
	svc := &mockInterviewService{result: interview.TurnResult{
		Payload: map[string]any{"id": "cmpl-2"},
		Score:   &interview.ScoreSummary{QuestionScore: 7, TotalScore: 7},
		Status:  interview.NewCompletionStatus(eval),
	}}
	app := newInterviewApp(svc)

	resp := postJSON(t, app, "/api/v1/interview/continue", map[string]any{"message": "my answer"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	var data map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, map[string]any{"question_score": float64(7), "total_score": float64(7)}, data["user_score"])
	require.Equal(t, interview.InputText, svc.input.Kind)
	require.Equal(t, "my answer", svc.input.Text)
}

func TestInterviewHandlerContinueAudio(t *testing.T) {
	svc := &mockInterviewService{result: interview.TurnResult{Payload: map[string]any{}, AudioURL: "https://files.shapes.inc/a.mp3"}}
	app := newInterviewApp(svc)

	resp := postJSON(t, app, "/api/v1/interview/continue", map[string]any{
		"is_audio_message": true,
		"cloudinary_url":   "https://res.cloudinary.com/demo/answer.mp3",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, interview.InputAudio, svc.input.Kind)
	require.Equal(t, "https://res.cloudinary.com/demo/answer.mp3", svc.input.AudioURL)
}

func TestInterviewHandlerContinueValidation(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "empty", body: map[string]any{}},
		{name: "mixed", body: map[string]any{"message": "hi", "audio_url": "https://res.cloudinary.com/a.mp3"}},
		{name: "audio_flag_without_url", body: map[string]any{"is_audio_message": true}},
		{name: "audio_flag_with_text", body: map[string]any{"is_audio_message": true, "message": "hi"}},
		{name: "bad_url", body: map[string]any{"audio_url": "not a url"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockInterviewService{}
			app := newInterviewApp(svc)

			resp := postJSON(t, app, "/api/v1/interview/continue", tc.body)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
			require.Zero(t, svc.calls)
		})
	}
}

func TestInterviewHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "audio_in_text_mode", err: interview.ErrAudioRequiresVoiceMode, status: fiber.StatusBadRequest},
		{name: "not_configured", err: service.ErrChatNotConfigured, status: fiber.StatusInternalServerError},
		{name: "upstream_status", err: &shapes.APIError{StatusCode: 429, Body: "rate limited"}, status: fiber.StatusTooManyRequests},
		{name: "upstream_down", err: shapes.ErrUnavailable, status: fiber.StatusBadGateway},
		{name: "unexpected", err: errors.New("boom"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newInterviewApp(&mockInterviewService{err: tc.err})

			resp := postJSON(t, app, "/api/v1/interview/continue", map[string]any{"message": "hello"})
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
			require.NotEmpty(t, body.Message)
		})
	}
}

func TestInterviewHandlerUpstreamBodyInMessage(t *testing.T) {
	app := newInterviewApp(&mockInterviewService{err: &shapes.APIError{StatusCode: 401, Body: "bad key"}})

	resp := postJSON(t, app, "/api/v1/interview/start", map[string]string{})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.Equal(t, "Shapes API error: bad key", body.Message)
}

func TestInterviewHandlerReviewCode(t *testing.T) {
	svc := &mockInterviewService{result: interview.TurnResult{Payload: map[string]any{}}}
	app := newInterviewApp(svc)

	resp := postJSON(t, app, "/api/v1/interview/code", map[string]string{"code": "print(1)", "language": "python"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "print(1)", svc.code)
	require.Equal(t, "python", svc.language)

	resp = postJSON(t, app, "/api/v1/interview/code", map[string]string{"language": "python"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestInterviewHandlerScore(t *testing.T) {
	svc := &mockInterviewService{score: dto.InterviewScoreResponse{Mode: "text", TotalScore: 13, QuestionCount: 2}}
	app := newInterviewApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/interview/score", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.JSONEq(t, `{"mode":"text","total_score":13,"question_count":2}`, string(body.Data))
}

func TestInterviewHandlerContinueAcceptsLongAnswers(t *testing.T) {
	svc := &mockInterviewService{result: interview.TurnResult{Payload: map[string]any{}}}
	app := newInterviewApp(svc)

	answer := strings.Repeat("a", 20000)
	resp := postJSON(t, app, "/api/v1/interview/continue", map[string]any{"message": answer})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, answer, svc.input.Text)
}
