package server

import (
	"strings"
	"unicode"

	"campusfeed/internal/middleware"
	"campusfeed/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 envelope; callers should return nil.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, bool) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, models.NewValidationError("invalid "+humanizeParam(param)))
		return 0, false
	}
	return uint(id), true
}

// humanizeParam converts a route param name into a readable label.
// "id" -> "id", "userId" -> "user id".
func humanizeParam(param string) string {
	if !strings.HasSuffix(param, "Id") {
		return param
	}
	prefix := param[:len(param)-2]
	var words []string
	start := 0
	for i, r := range prefix {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, prefix[start:i])
			start = i
		}
	}
	words = append(words, prefix[start:])
	return strings.ToLower(strings.Join(words, " ")) + " id"
}

// currentUserID returns the id stored by the auth middleware.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

// respondError writes the failure envelope for err and logs system failures with the
// request context attached.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	appErr := models.AsAppError(err)
	if appErr.Internal() {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed",
			"method", c.Method(),
			"path", c.Path(),
			"error_type", appErr.Code,
			"error", appErr.Error(),
		)
	}
	return models.RespondWithError(c, appErr)
}

// bindJSON parses the request body into dst, writing a 400 envelope on failure.
func bindJSON(c *fiber.Ctx, dst any) bool {
	if err := c.BodyParser(dst); err != nil {
		_ = models.RespondWithError(c, models.NewValidationError("invalid request body"))
		return false
	}
	return true
}
