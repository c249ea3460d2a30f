package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	applog "libdesk/internal/log"
	"libdesk/internal/services"
)

const sessionCookie = "sid"

// LoadSession puts the caller's session, if any, into Locals("session").
func LoadSession(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sid := c.Cookies(sessionCookie); sid != "" {
			if s, err := auth.Current(sid); err == nil && s != nil {
				c.Locals("session", s)
			}
		}
		return c.Next()
	}
}

// RequireAdmin lets librarians with admin rights through. Pages redirect to
// the login screen; JSON endpoints answer 401.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		s := currentSession(c)
		if s == nil || !s.Authenticated {
			if strings.HasPrefix(c.Path(), "/api/") {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Vui lòng đăng nhập"})
			}
			return c.Redirect("/admin/login")
		}
		if !s.Admin {
			applog.Security(c, "access.denied.admin", map[string]any{"username": s.Username})
			return fail(c, fiber.StatusForbidden, "Bạn không có quyền truy cập trang này")
		}
		return c.Next()
	}
}
