package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/interview-sim-api/internal/dto"
	"github.com/noah-isme/interview-sim-api/internal/handler"
	"github.com/noah-isme/interview-sim-api/internal/middleware"
	"github.com/noah-isme/interview-sim-api/internal/service"
)

type mockUploadService struct {
	response   dto.AudioUploadResponse
	err        error
	fileName   string
	sessionKey string
}

func (m *mockUploadService) Upload(_ context.Context, file *multipart.FileHeader, sessionKey string) (dto.AudioUploadResponse, error) {
	m.fileName = file.Filename
	m.sessionKey = sessionKey
	return m.response, m.err
}

type mockRelayService struct {
	audio  *service.RelayedAudio
	err    error
	target string
}

func (m *mockRelayService) Relay(_ context.Context, rawURL string) (*service.RelayedAudio, error) {
	m.target = rawURL
	return m.audio, m.err
}

func newAudioApp(uploads service.AudioUploadService, relay service.AudioRelayService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1/audio", middleware.WithSessionKey("sess-audio"))
	handler.NewAudioHandler(uploads, relay, zerolog.New(io.Discard)).Register(group)
	return app
}

func uploadRequest(t *testing.T, field string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, "answer.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("recording"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/audio/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestAudioHandlerUpload(t *testing.T) {
	uploads := &mockUploadService{response: dto.AudioUploadResponse{
		AudioURL:      "https://res.cloudinary.com/demo/video/upload/user_audio_1.mp3",
		CloudinaryURL: "https://res.cloudinary.com/demo/video/upload/user_audio_1.mp3",
		PublicID:      "user_audio_1",
		MimeType:      "audio/webm",
		SizeBytes:     9,
	}}
	app := newAudioApp(uploads, &mockRelayService{})

	resp, err := app.Test(uploadRequest(t, "audio"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body envelope
	decodeResponse(t, resp, &body)
	require.True(t, body.Success)

	var data dto.AudioUploadResponse
	require.NoError(t, json.Unmarshal(body.Data, &data))
	require.Equal(t, "user_audio_1", data.PublicID)
	require.Equal(t, data.AudioURL, data.CloudinaryURL)
	require.Equal(t, "answer.webm", uploads.fileName)
	require.Equal(t, "sess-audio", uploads.sessionKey)
}

func TestAudioHandlerUploadMissingFile(t *testing.T) {
	app := newAudioApp(&mockUploadService{}, &mockRelayService{})

	resp, err := app.Test(uploadRequest(t, "file"))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAudioHandlerUploadErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "too_large", err: service.ErrUploadTooLarge, status: fiber.StatusRequestEntityTooLarge},
		{name: "not_audio", err: service.ErrAudioTypeNotAllowed, status: fiber.StatusUnsupportedMediaType},
		{name: "storage", err: fmt.Errorf("%w: quota", service.ErrAudioStorageFailed), status: fiber.StatusBadGateway},
		{name: "not_configured", err: service.ErrAudioStorageNotConfigured, status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAudioApp(&mockUploadService{err: tc.err}, &mockRelayService{})

			resp, err := app.Test(uploadRequest(t, "audio"))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			decodeResponse(t, resp, &body)
			require.False(t, body.Success)
		})
	}
}

func TestAudioHandlerProxyStreams(t *testing.T) {
	relay := &mockRelayService{audio: &service.RelayedAudio{
		Body:          io.NopCloser(bytes.NewReader([]byte("ID3audio"))),
		ContentType:   "audio/mpeg",
		ContentLength: 8,
	}}
	app := newAudioApp(&mockUploadService{}, relay)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audio/proxy?url=https%3A%2F%2Ffiles.shapes.inc%2Fa.mp3", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, "audio/mpeg", resp.Header.Get("Content-Type"))
	require.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "https://files.shapes.inc/a.mp3", relay.target)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "ID3audio", string(payload))
}

func TestAudioHandlerProxyErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{name: "host", err: service.ErrRelayHostRejected, status: fiber.StatusBadRequest, body: "Invalid audio URL"},
		{name: "timeout", err: service.ErrRelayTimeout, status: fiber.StatusGatewayTimeout, body: "Timeout fetching audio"},
		{name: "upstream", err: fmt.Errorf("%w: upstream returned 404", service.ErrRelayUpstream), status: fiber.StatusBadGateway, body: "Could not proxy audio: upstream returned 404"},
		{name: "not_audio", err: service.ErrRelayNotAudio, status: fiber.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newAudioApp(&mockUploadService{}, &mockRelayService{err: tc.err})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/audio/proxy?url=https://evil.example/a.mp3", nil))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Contains(t, resp.Header.Get("Content-Type"), "text/plain")

			payload, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			if tc.body != "" {
				require.Equal(t, tc.body, string(payload))
			} else {
				require.NotEmpty(t, payload)
			}
		})
	}
}
