package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/interview-sim-api/internal/observability"
)

// DefaultTrustedAudioHost is the only host the relay fetches from unless configured otherwise.
const DefaultTrustedAudioHost = "shapes.inc"

const (
	defaultRelayTimeout = 10 * time.Second
	mp3ContentType      = "audio/mpeg"
	maxRelayRedirects   = 10
)

var (
	// ErrRelayHostRejected indicates the URL does not point at the trusted audio host.
	ErrRelayHostRejected = errors.New("invalid audio URL")
	// ErrRelayTimeout indicates the audio host did not answer in time.
	ErrRelayTimeout = errors.New("timeout fetching audio")
	// ErrRelayUpstream indicates the audio host failed or answered with an error status.
	ErrRelayUpstream = errors.New("could not proxy audio")
	// ErrRelayNotAudio indicates the audio host answered with something other than audio.
	ErrRelayNotAudio = errors.New("proxied content was not audio")
)

// RelayedAudio is an open upstream audio stream. Callers must close Body.
type RelayedAudio struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// AudioRelayService streams audio hosted on the trusted host.
type AudioRelayService interface {
	Relay(ctx context.Context, rawURL string) (*RelayedAudio, error)
}

// AudioRelayConfig tunes the relay.
type AudioRelayConfig struct {
	TrustedHost string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

type audioRelayService struct {
	trustedHost string
	timeout     time.Duration
	client      *http.Client
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAudioRelayService constructs the relay. The timeout bounds connecting,
// waiting for response headers and every gap between body reads. Redirects are
// followed only while they stay on the trusted host.
func NewAudioRelayService(cfg AudioRelayConfig, logger zerolog.Logger) AudioRelayService {
	host := strings.ToLower(strings.Trim(strings.TrimSpace(cfg.TrustedHost), "."))
	if host == "" {
		host = DefaultTrustedAudioHost
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRelayTimeout
	}

	var client http.Client
	if cfg.HTTPClient != nil {
		client = *cfg.HTTPClient
	} else {
		client.Transport = &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			DialContext:           (&net.Dialer{Timeout: timeout}).DialContext,
			TLSHandshakeTimeout:   timeout,
			ResponseHeaderTimeout: timeout,
		}
	}

	s := &audioRelayService{
		trustedHost: host,
		timeout:     timeout,
		logger:      logger.With().Str("component", "audio_relay_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/interview-sim-api/internal/service/audio_relay"),
	}
	client.CheckRedirect = s.checkRedirect
	s.client = &client
	return s
}

func (s *audioRelayService) Relay(ctx context.Context, rawURL string) (*RelayedAudio, error) {
	ctx, span := s.tracer.Start(ctx, "audio.relay")
	defer span.End()

	target, err := s.validate(rawURL)
	if err != nil {
		observability.RelayRequests().WithLabelValues("rejected").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "host rejected")
		return nil, err
	}
	span.SetAttributes(attribute.String("relay.host", target.Host))

	fetchCtx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target.String(), nil)
	if err != nil {
		cancel()
		observability.RelayRequests().WithLabelValues("internal").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "request build failed")
		return nil, fmt.Errorf("build relay request: %w", err)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	observability.RelayLatency().Observe(time.Since(start).Seconds())
	if err != nil {
		cancel()
		if errors.Is(err, ErrRelayHostRejected) {
			s.logger.Warn().Str("url", target.String()).Msg("relay redirect left the trusted host")
			observability.RelayRequests().WithLabelValues("rejected").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "redirect rejected")
			return nil, ErrRelayHostRejected
		}
		if isTimeout(err) {
			s.logger.Warn().Str("url", target.String()).Msg("timeout when relaying audio")
			observability.RelayRequests().WithLabelValues("timeout").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "timeout")
			return nil, ErrRelayTimeout
		}
		observability.RelayRequests().WithLabelValues("upstream_error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, fmt.Errorf("%w: %v", ErrRelayUpstream, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		cancel()
		observability.RelayRequests().WithLabelValues("upstream_error").Inc()
		span.SetStatus(codes.Error, "upstream status")
		return nil, fmt.Errorf("%w: upstream returned %d", ErrRelayUpstream, resp.StatusCode)
	}

	contentType, err := correctContentType(target, resp.Header.Get("Content-Type"))
	if err != nil {
		resp.Body.Close()
		cancel()
		s.logger.Warn().Str("url", target.String()).Str("content_type", resp.Header.Get("Content-Type")).Msg("relayed content is not audio")
		observability.RelayRequests().WithLabelValues("not_audio").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "not audio")
		return nil, err
	}

	observability.RelayRequests().WithLabelValues("ok").Inc()
	span.SetAttributes(attribute.String("relay.content_type", contentType))
	span.SetStatus(codes.Ok, "streaming")
	return &RelayedAudio{
		Body:          newIdleTimeoutBody(resp.Body, s.timeout, cancel),
		ContentType:   contentType,
		ContentLength: resp.ContentLength,
	}, nil
}

func (s *audioRelayService) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRelayRedirects {
		return fmt.Errorf("%w: stopped after %d redirects", ErrRelayUpstream, maxRelayRedirects)
	}
	if _, err := s.validate(req.URL.String()); err != nil {
		return err
	}
	return nil
}

// validate accepts http(s) URLs whose host is the trusted host or one of its subdomains.
func (s *audioRelayService) validate(rawURL string) (*url.URL, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, ErrRelayHostRejected
	}
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, ErrRelayHostRejected
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, ErrRelayHostRejected
	}
	host := strings.ToLower(strings.TrimSuffix(target.Hostname(), "."))
	if host != s.trustedHost && !strings.HasSuffix(host, "."+s.trustedHost) {
		return nil, ErrRelayHostRejected
	}
	return target, nil
}

// correctContentType defaults a missing type to MP3 and relabels generic binary .mp3 files.
func correctContentType(target *url.URL, contentType string) (string, error) {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return mp3ContentType, nil
	}
	lower := strings.ToLower(contentType)
	if strings.Contains(lower, "audio") {
		return contentType, nil
	}
	if strings.HasSuffix(strings.ToLower(target.Path), ".mp3") && strings.HasPrefix(lower, "application/octet-stream") {
		return mp3ContentType, nil
	}
	return "", fmt.Errorf("%w: content-type %s", ErrRelayNotAudio, contentType)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// idleTimeoutBody cancels the upstream request once no bytes arrive for the
// configured idle period, so a stalled host cannot hold the stream open.
type idleTimeoutBody struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	cancel  context.CancelFunc
	expired atomic.Bool
}

func newIdleTimeoutBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutBody {
	b := &idleTimeoutBody{body: body, timeout: timeout, cancel: cancel}
	b.timer = time.AfterFunc(timeout, func() {
		b.expired.Store(true)
		cancel()
	})
	return b
}

func (b *idleTimeoutBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if b.expired.Load() {
		return n, ErrRelayTimeout
	}
	if n > 0 {
		b.timer.Reset(b.timeout)
	}
	return n, err
}

func (b *idleTimeoutBody) Close() error {
	b.timer.Stop()
	b.cancel()
	return b.body.Close()
}
