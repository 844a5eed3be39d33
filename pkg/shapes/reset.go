package shapes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// ResetCommands clear long-term and short-term memory of a shape.
var ResetCommands = []string{"!reset", "!wack"}

// DefaultResetTimeout bounds the whole reset round before a start request.
const DefaultResetTimeout = 5 * time.Second

// ResetConfig configures the memory resetter.
type ResetConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// MemoryResetter sends the reset commands to shapes. Replies are plain text,
// so the OpenAI SDK is enough here.
type MemoryResetter struct {
	client  *openai.Client
	timeout time.Duration
	logger  zerolog.Logger
	enabled bool
}

// NewMemoryResetter builds a resetter against the Shapes base URL.
func NewMemoryResetter(cfg ResetConfig) *MemoryResetter {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultResetTimeout
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = baseURL
	if cfg.HTTPClient != nil {
		config.HTTPClient = cfg.HTTPClient
	}

	return &MemoryResetter{
		client:  openai.NewClientWithConfig(config),
		timeout: timeout,
		logger:  cfg.Logger.With().Str("component", "shapes_memory_reset").Logger(),
		enabled: strings.TrimSpace(cfg.APIKey) != "",
	}
}

// Reset sends every reset command to every model. It is advisory: failures are
// logged and never returned.
func (r *MemoryResetter) Reset(parent context.Context, models ...string) {
	if r == nil || !r.enabled {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), r.timeout)
	defer cancel()

	for _, model := range models {
		for _, command := range ResetCommands {
			_, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
				Model: model,
				Messages: []openai.ChatCompletionMessage{
					{Role: openai.ChatMessageRoleUser, Content: command},
				},
			})
			if err != nil {
				r.logger.Warn().Err(err).Str("model", model).Str("command", command).Msg("memory reset failed")
				continue
			}
			r.logger.Debug().Str("model", model).Str("command", command).Msg("memory reset sent")
		}
	}
}
