package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/interview-sim-api/internal/middleware"
	"github.com/noah-isme/interview-sim-api/internal/service"
	"github.com/noah-isme/interview-sim-api/internal/utils"
)

// AudioHandler serves answer uploads and the interviewer audio relay.
type AudioHandler struct {
	uploads service.AudioUploadService
	relay   service.AudioRelayService
	logger  zerolog.Logger
}

// NewAudioHandler constructs an audio handler.
func NewAudioHandler(uploads service.AudioUploadService, relay service.AudioRelayService, logger zerolog.Logger) *AudioHandler {
	return &AudioHandler{
		uploads: uploads,
		relay:   relay,
		logger:  logger.With().Str("component", "audio_handler").Logger(),
	}
}

// Register wires audio routes.
func (h *AudioHandler) Register(router fiber.Router) {
	router.Post("/upload", h.upload)
	router.Get("/proxy", h.proxy)
}

func (h *AudioHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("audio")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, service.ErrAudioFileMissing.Error())
	}

	result, err := h.uploads.Upload(c.UserContext(), file, middleware.SessionKey(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAudioFileMissing):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrUploadTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrAudioTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, service.ErrAudioStorageFailed):
			requestLogger(h.logger, c).Error().Err(err).Msg("audio storage failed")
			return utils.SendError(c, fiber.StatusBadGateway, service.ErrAudioStorageFailed.Error())
		case errors.Is(err, service.ErrAudioStorageNotConfigured):
			return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("audio upload failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "upload failed")
		}
	}

	return utils.SendSuccess(c, "audio uploaded", result)
}

func (h *AudioHandler) proxy(c *fiber.Ctx) error {
	target := c.Query("url")

	audio, err := h.relay.Relay(c.UserContext(), target)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRelayHostRejected):
			return utils.SendPlainError(c, fiber.StatusBadRequest, "Invalid audio URL")
		case errors.Is(err, service.ErrRelayTimeout):
			return utils.SendPlainError(c, fiber.StatusGatewayTimeout, "Timeout fetching audio")
		case errors.Is(err, service.ErrRelayNotAudio):
			return utils.SendPlainError(c, fiber.StatusBadGateway, "Proxied content from "+target+" was not audio")
		case errors.Is(err, service.ErrRelayUpstream):
			return utils.SendPlainError(c, fiber.StatusBadGateway, "Could not proxy audio: "+relayFailureCause(err))
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("audio relay failed")
			return utils.SendPlainError(c, fiber.StatusInternalServerError, "Internal server error")
		}
	}

	c.Set(fiber.HeaderContentType, audio.ContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache, no-store, must-revalidate")
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	if audio.ContentLength >= 0 {
		return c.SendStream(audio.Body, int(audio.ContentLength))
	}
	return c.SendStream(audio.Body)
}

// relayFailureCause strips the sentinel text so the body names only the upstream cause.
func relayFailureCause(err error) string {
	cause := strings.TrimPrefix(err.Error(), service.ErrRelayUpstream.Error())
	cause = strings.TrimSpace(strings.TrimPrefix(cause, ":"))
	if cause == "" {
		return "upstream request failed"
	}
	return cause
}
