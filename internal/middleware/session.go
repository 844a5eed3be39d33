package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/rs/zerolog"
)

// SessionCookieName is the cookie carrying the interview session id.
const SessionCookieName = "interview_session"

const (
	sessionKeyLocal   = "session_key"
	sessionFreshLocal = "session_fresh"
)

// InterviewSession issues a session cookie and exposes its id as the interview session key.
func InterviewSession(ttl time.Duration, secure bool, logger zerolog.Logger) fiber.Handler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	store := session.New(session.Config{
		Expiration:     ttl,
		KeyLookup:      "cookie:" + SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: "Lax",
		KeyGenerator:   utils.UUIDv4,
	})
	log := logger.With().Str("component", "session_middleware").Logger()

	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			log.Error().Err(err).Str("correlation_id", GetCorrelationID(c)).Msg("failed to load session")
			return fiber.NewError(fiber.StatusInternalServerError, "session unavailable")
		}

		c.Locals(sessionKeyLocal, utils.CopyString(sess.ID()))
		if sess.Fresh() {
			c.Locals(sessionFreshLocal, true)
			if err := sess.Save(); err != nil {
				log.Error().Err(err).Msg("failed to persist session cookie")
				return fiber.NewError(fiber.StatusInternalServerError, "session unavailable")
			}
		}

		return c.Next()
	}
}

// SessionKey returns the interview session key bound to the request.
func SessionKey(c *fiber.Ctx) string {
	if c == nil {
		return ""
	}
	if key, ok := c.Locals(sessionKeyLocal).(string); ok {
		return key
	}
	return ""
}

// sessionIssued reports whether the session id was minted for this request
// because the client sent no cookie.
func sessionIssued(c *fiber.Ctx) bool {
	fresh, _ := c.Locals(sessionFreshLocal).(bool)
	return fresh
}

// WithSessionKey binds a fixed session key. Used by tests and internal callers.
func WithSessionKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(sessionKeyLocal, key)
		return c.Next()
	}
}
