package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/interview-sim-api/internal/dto"
	"github.com/noah-isme/interview-sim-api/internal/interview"
	"github.com/noah-isme/interview-sim-api/internal/middleware"
	"github.com/noah-isme/interview-sim-api/internal/service"
	"github.com/noah-isme/interview-sim-api/internal/utils"
	"github.com/noah-isme/interview-sim-api/pkg/shapes"
)

var errMissingAudioReference = errors.New("missing audio URL for audio message")

// InterviewHandler exposes the interview session endpoints.
type InterviewHandler struct {
	service   service.InterviewService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewInterviewHandler constructs an interview handler.
func NewInterviewHandler(service service.InterviewService, validate *validator.Validate, logger zerolog.Logger) *InterviewHandler {
	return &InterviewHandler{
		service:   service,
		validator: validate,
		logger:    logger.With().Str("component", "interview_handler").Logger(),
	}
}

// Register wires interview routes.
func (h *InterviewHandler) Register(router fiber.Router) {
	router.Post("/start", h.start)
	router.Post("/continue", h.continueTurn)
	router.Post("/code", h.reviewCode)
	router.Get("/score", h.score)
}

func (h *InterviewHandler) start(c *fiber.Ctx) error {
	var req dto.StartInterviewRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
		}
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "interview_mode must be text or voice")
	}

	mode, err := interview.ParseMode(req.InterviewMode)
	if err != nil {
		return h.handleError(c, err)
	}

	result, err := h.service.Start(c.UserContext(), middleware.SessionKey(c), mode)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "interview started", result)
}

func (h *InterviewHandler) continueTurn(c *fiber.Ctx) error {
	var req dto.ContinueInterviewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return h.handleError(c, err)
	}

	input, err := interview.NewConversationInput(req.Message, req.AudioReference())
	if err != nil {
		if req.IsAudioMessage && errors.Is(err, interview.ErrEmptyTurnInput) {
			err = errMissingAudioReference
		}
		return h.handleError(c, err)
	}
	if req.IsAudioMessage && input.Kind != interview.InputAudio {
		return h.handleError(c, errMissingAudioReference)
	}

	result, err := h.service.Continue(c.UserContext(), middleware.SessionKey(c), input)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "turn completed", result)
}

func (h *InterviewHandler) reviewCode(c *fiber.Ctx) error {
	var req dto.CodeReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return h.handleError(c, err)
	}

	result, err := h.service.ReviewCode(c.UserContext(), middleware.SessionKey(c), req.Code, req.Language)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "code reviewed", result)
}

func (h *InterviewHandler) score(c *fiber.Ctx) error {
	result, err := h.service.Score(c.UserContext(), middleware.SessionKey(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "score retrieved", result)
}

func (h *InterviewHandler) handleError(c *fiber.Ctx, err error) error {
	var apiErr *shapes.APIError

	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, interview.ErrEmptyTurnInput),
		errors.Is(err, interview.ErrMixedTurnInput),
		errors.Is(err, interview.ErrAudioRequiresVoiceMode),
		errors.Is(err, interview.ErrUnknownMode),
		errors.Is(err, interview.ErrEmptyCode),
		errors.Is(err, errMissingAudioReference):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrChatNotConfigured):
		return utils.SendError(c, fiber.StatusInternalServerError, err.Error())
	case errors.As(err, &apiErr):
		status := apiErr.StatusCode
		if status < fiber.StatusBadRequest || status > 599 {
			status = fiber.StatusBadGateway
		}
		requestLogger(h.logger, c).Warn().Int("upstream_status", apiErr.StatusCode).Msg("chat api rejected turn")
		return utils.SendError(c, status, apiErr.Error())
	case errors.Is(err, shapes.ErrUnavailable):
		requestLogger(h.logger, c).Error().Err(err).Msg("chat api unavailable")
		return utils.SendError(c, fiber.StatusBadGateway, "chat service unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("interview request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
