package handlers

import (
	"errors"
	"maps"
	"slices"
	"time"

	"github.com/gofiber/fiber/v2"

	"libdesk/internal/log"
	"libdesk/internal/repos"
	"libdesk/internal/services"
	"libdesk/internal/validate"
)

type AuthHandler struct {
	Auth         *services.AuthService
	CookieSecure bool
}

func (h *AuthHandler) setSID(c *fiber.Ctx, sid string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   h.CookieSecure,
		Expires:  expires,
	})
}

// GET /admin/login
func (h *AuthHandler) LoginForm(c *fiber.Ctx) error {
	if s := currentSession(c); s != nil && s.Authenticated {
		return c.Redirect("/admin/overview")
	}
	return render(c, "login", fiber.Map{"Err": ""})
}

// POST /admin/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	pass := c.FormValue("password")

	sid, _, err := h.Auth.Login(c.UserContext(), username, pass)
	if errors.Is(err, services.ErrBadCreds) {
		log.Security(c, "auth.login.fail", map[string]any{"username": username})
		c.Status(fiber.StatusUnauthorized)
		return render(c, "login", fiber.Map{"Err": "Tên đăng nhập hoặc mật khẩu không đúng", "Username": username})
	}
	if err != nil {
		log.Error(c, "auth.login.error", err, map[string]any{"username": username})
		c.Status(fiber.StatusBadGateway)
		return render(c, "login", fiber.Map{"Err": "Không thể kết nối tới máy chủ, vui lòng thử lại", "Username": username})
	}

	if old := c.Cookies(sessionCookie); old != "" {
		_ = h.Auth.Logout(old)
	}
	h.setSID(c, sid, time.Time{})
	log.Audit(c, "auth.login.success", map[string]any{"username": username})
	return c.Redirect("/admin/overview")
}

// POST /admin/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies(sessionCookie); sid != "" {
		if err := h.Auth.Logout(sid); err != nil {
			log.Error(c, "auth.logout.fail", err, nil)
		}
	}
	h.setSID(c, "", time.Now().Add(-time.Hour))
	log.Audit(c, "auth.logout", nil)
	return c.Redirect("/admin/login")
}

// GET /admin/login/forgot-password
func (h *AuthHandler) ForgotForm(c *fiber.Ctx) error {
	return render(c, "forgot_password", fiber.Map{"Step": "otp"})
}

// POST /admin/login/forgot-password
//
// step=otp sends the code, step=reset sets the new password.
func (h *AuthHandler) Forgot(c *fiber.Ctx) error {
	ctx := c.UserContext()
	if c.FormValue("step") != "reset" {
		username, ok := validate.Required(c.FormValue("username"))
		if !ok {
			c.Status(fiber.StatusBadRequest)
			return render(c, "forgot_password", fiber.Map{"Step": "otp", "Errors": validate.Errors{"username": "Vui lòng nhập tên đăng nhập"}})
		}
		if err := h.Auth.SendOTP(ctx, username); err != nil {
			log.Error(c, "auth.otp.fail", err, map[string]any{"username": username})
			c.Status(fiber.StatusBadRequest)
			return render(c, "forgot_password", fiber.Map{"Step": "otp", "Username": username, "Err": backendMessage(err, "Không gửi được mã OTP")})
		}
		log.Audit(c, "auth.otp.sent", map[string]any{"username": username})
		return render(c, "forgot_password", fiber.Map{"Step": "reset", "Username": username})
	}

	var in validate.ResetInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadForm)
	}
	in, errs := validate.Reset(in)
	if !errs.OK() {
		log.Security(c, "validation.fail", map[string]any{"form": "reset", "fields": fieldNames(errs)})
		c.Status(fiber.StatusBadRequest)
		return render(c, "forgot_password", fiber.Map{"Step": "reset", "Username": in.Username, "Errors": errs})
	}
	if err := h.Auth.ResetPassword(ctx, in); err != nil {
		log.Error(c, "auth.reset.fail", err, map[string]any{"username": in.Username})
		c.Status(fiber.StatusBadRequest)
		return render(c, "forgot_password", fiber.Map{"Step": "reset", "Username": in.Username, "Err": backendMessage(err, "Đặt lại mật khẩu thất bại")})
	}
	log.Audit(c, "auth.reset", map[string]any{"username": in.Username})
	return c.Redirect("/admin/login?done=reset")
}

// GET /admin/password
func (h *AuthHandler) PasswordForm(c *fiber.Ctx) error {
	return render(c, "password", fiber.Map{})
}

// POST /admin/password
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	s := currentSession(c)
	var in validate.PasswordInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadForm)
	}
	if errs := validate.ChangePassword(in); !errs.OK() {
		log.Security(c, "validation.fail", map[string]any{"form": "password", "fields": fieldNames(errs)})
		c.Status(fiber.StatusBadRequest)
		return render(c, "password", fiber.Map{"Errors": errs})
	}
	msg, err := h.Auth.ChangePassword(c.UserContext(), s.Username, in)
	if err != nil {
		log.Error(c, "auth.password.fail", err, nil)
		c.Status(fiber.StatusBadRequest)
		return render(c, "password", fiber.Map{"Err": backendMessage(err, "Đổi mật khẩu thất bại")})
	}
	log.Audit(c, "auth.password.change", map[string]any{"message": msg})
	return c.Redirect("/admin/password?done=password")
}

// backendMessage prefers the backend's own reason over fallback.
func backendMessage(err error, fallback string) string {
	if m := repos.Message(err); m != "" {
		return m
	}
	return fallback
}

func fieldNames(errs validate.Errors) []string {
	return slices.Sorted(maps.Keys(errs))
}
