package shapes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestClientCompleteSendsVoiceRequest(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.Equal(t, "trace-1", r.Header.Get("X-Trace"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":[{"type":"text","text":"hi"},{"type":"audio_url","audio_url":{"url":"https://files.shapes.inc/a.mp3"}}]}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL + "/v1/", Logger: zerolog.Nop()})
	resp, err := client.Complete(context.Background(), Request{
		Model:     "shapesinc/carmack",
		Messages:  []Message{AudioMessage("https://res.cloudinary.com/x/audio.mp3")},
		VoiceMode: true,
		Headers:   map[string]string{"X-Trace": "trace-1"},
	})
	require.NoError(t, err)

	require.Equal(t, "shapesinc/carmack", captured["model"])
	require.Equal(t, true, captured["voice_mode"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 1)
	content := messages[0].(map[string]any)["content"].([]any)
	part := content[0].(map[string]any)
	require.Equal(t, "audio_url", part["type"])
	require.Equal(t, "https://res.cloudinary.com/x/audio.mp3", part["audio_url"].(map[string]any)["url"])

	require.Equal(t, "cmpl-1", resp.Payload["id"])
	message, ok := resp.FirstMessage()
	require.True(t, ok)
	require.True(t, message.Content.IsParts)
	require.Len(t, message.Content.Parts, 2)
	require.Equal(t, "https://files.shapes.inc/a.mp3", message.Content.Parts[1].AudioURL)
	require.Equal(t, "hi", message.Content.PlainText())
}

func TestClientCompleteOmitsVoiceFlagForText(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Score: 7/10"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Logger: zerolog.Nop()})
	resp, err := client.Complete(context.Background(), Request{
		Model:    "shapesinc/linus-i7wn",
		Messages: []Message{TextMessage(RoleSystem, "prompt"), TextMessage(RoleUser, "hello")},
	})
	require.NoError(t, err)

	_, hasFlag := captured["voice_mode"]
	require.False(t, hasFlag)
	messages := captured["messages"].([]any)
	require.Equal(t, "prompt", messages[0].(map[string]any)["content"])

	message, ok := resp.FirstMessage()
	require.True(t, ok)
	require.False(t, message.Content.IsParts)
	require.Equal(t, "Score: 7/10", message.Content.PlainText())
}

func TestClientCompleteReturnsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Logger: zerolog.Nop()})
	_, err := client.Complete(context.Background(), Request{Model: "m"})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	require.Equal(t, "slow down", apiErr.Body)
	require.Equal(t, "Shapes API error: slow down", apiErr.Error())
}

func TestClientCompleteWithoutKeySkipsNetwork(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Logger: zerolog.Nop()})
	require.False(t, client.Configured())

	_, err := client.Complete(context.Background(), Request{Model: "m"})
	require.ErrorIs(t, err, ErrMissingAPIKey)
	require.Zero(t, atomic.LoadInt32(&calls))
}

func TestMessageDecodingToleratesDrift(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		text     string
		audioURL string
		parts    int
	}{
		{name: "string_audio_field", raw: `{"role":"assistant","content":"hello","audio_url":"https://files.shapes.inc/x.mp3"}`, text: "hello", audioURL: "https://files.shapes.inc/x.mp3"},
		{name: "object_audio_field", raw: `{"role":"assistant","content":null,"audio_url":{"url":"https://files.shapes.inc/y.wav"}}`, audioURL: "https://files.shapes.inc/y.wav"},
		{name: "numeric_content", raw: `{"role":"assistant","content":42}`},
		{name: "junk_parts", raw: `{"role":"assistant","content":[1,{"type":"text","text":"a"},{"type":"image_url"},{"type":"text","text":"b"}]}`, text: "a b", parts: 4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var message Message
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &message))
			require.Equal(t, tc.text, message.Content.PlainText())
			require.Equal(t, tc.audioURL, message.AudioURL)
			require.Len(t, message.Content.Parts, tc.parts)
		})
	}
}

func TestDecodeResponseKeepsPayloadWhenChoicesMalformed(t *testing.T) {
	resp, err := decodeResponse([]byte(`{"id":"x","choices":"nope"}`))
	require.NoError(t, err)
	require.Equal(t, "x", resp.Payload["id"])
	_, ok := resp.FirstMessage()
	require.False(t, ok)
}

func TestClientCompleteWrapsTransportFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "secret", BaseURL: server.URL, Logger: zerolog.Nop()})
	_, err := client.Complete(context.Background(), Request{Model: "m"})
	require.ErrorIs(t, err, ErrUnavailable)

	server.Close()
	_, err = client.Complete(context.Background(), Request{Model: "m"})
	require.ErrorIs(t, err, ErrUnavailable)

	var apiErr *APIError
	require.False(t, errors.As(err, &apiErr))
}
