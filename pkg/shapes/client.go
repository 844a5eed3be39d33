package shapes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultBaseURL is the public Shapes API root.
const DefaultBaseURL = "https://api.shapes.inc/v1"

const chatCompletionsPath = "/chat/completions"

var (
	chatDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "interview",
		Subsystem: "shapes",
		Name:      "chat_duration_seconds",
		Help:      "Duration of Shapes chat completion requests",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
	}, []string{"model"})

	chatFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "interview",
		Subsystem: "shapes",
		Name:      "chat_failures_total",
		Help:      "Number of failed Shapes chat completion requests",
	}, []string{"model"})
)

// Config defines the connection settings for the Shapes API.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client calls the OpenAI-compatible chat completions endpoint and keeps the
// raw payload, which the typed SDKs cannot do for audio_url parts.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewClient builds a client. An empty API key is allowed; Configured reports it.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		tracer:     otel.Tracer("github.com/noah-isme/interview-sim-api/pkg/shapes"),
		logger:     cfg.Logger.With().Str("component", "shapes_client").Logger(),
	}
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.apiKey) != ""
}

// Complete sends the request and returns the decoded payload. Non-2xx answers
// come back as *APIError carrying the upstream status and body.
func (c *Client) Complete(parent context.Context, req Request) (*Response, error) {
	if !c.Configured() {
		return nil, ErrMissingAPIKey
	}

	ctx, span := c.tracer.Start(parent, "shapes.chat_completion", trace.WithAttributes(
		attribute.String("shapes.model", req.Model),
		attribute.Int("shapes.messages", len(req.Messages)),
		attribute.Bool("shapes.voice_mode", req.VoiceMode),
	))
	defer span.End()

	start := time.Now()
	resp, err := c.do(ctx, req)
	chatDuration.WithLabelValues(req.Model).Observe(time.Since(start).Seconds())
	if err != nil {
		chatFailures.WithLabelValues(req.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("shapes.choices", len(resp.Choices)))
	return resp, nil
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(wireRequest{
		Model:     req.Model,
		Messages:  req.Messages,
		VoiceMode: req.VoiceMode,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %v", ErrUnavailable, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		c.logger.Warn().
			Str("model", req.Model).
			Int("status", httpResp.StatusCode).
			Msg("shapes api returned non-2xx")
		return nil, &APIError{StatusCode: httpResp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	resp, err := decodeResponse(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return resp, nil
}
