package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"
	jsoniter "github.com/json-iterator/go"

	"libdesk/internal/config"
	"libdesk/internal/domain"
	applog "libdesk/internal/log"
	"libdesk/internal/services"
)

var statusLabels = map[domain.Status]string{
	domain.StatusBorrowed: "Đang mượn",
	domain.StatusReturned: "Đã trả",
	domain.StatusRenewed:  "Đã gia hạn",
}

// NewEngine loads the templates under dir with the helpers they use.
func NewEngine(dir string) *html.Engine {
	engine := html.New(dir, ".html")
	engine.AddFunc("add", func(a, b int) int { return a + b })
	engine.AddFunc("join", strings.Join)
	engine.AddFunc("categoryPath", services.Path)
	engine.AddFunc("statusLabel", func(s domain.Status) string { return statusLabels[s] })
	engine.AddFunc("pct", func(n, peak int) int {
		if peak <= 0 {
			return 0
		}
		return n * 100 / peak
	})
	engine.AddFunc("date", func(s string) string {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.Format("02/01/2006")
			}
		}
		return s
	})
	return engine
}

// NewApp builds the fiber app with middleware and every route.
func NewApp(cfg config.Config, d *Deps) *fiber.App {
	json := jsoniter.ConfigCompatibleWithStandardLibrary
	app := fiber.New(fiber.Config{
		Views:       NewEngine(cfg.TemplatesDir),
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code, msg := fiber.StatusInternalServerError, msgServerError
			var fe *fiber.Error
			if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
				code, msg = fe.Code, fe.Message
			} else {
				applog.Error(c, "server.error", err, nil)
			}
			if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}, "layouts/public"); rerr != nil {
				return c.Status(code).SendString(msg)
			}
			return nil
		},
	})
	app.Server().MaxRequestBodySize = 1 << 20

	// ---------- Middlewares ----------
	app.Use(requestid.New())
	app.Use(logger.New())
	// book covers are hot-linked from other hosts
	app.Use(helmet.New(helmet.Config{CrossOriginEmbedderPolicy: "unsafe-none"}))
	app.Use(LoadSession(d.Auth))
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return strings.HasPrefix(c.Path(), "/static/")
			},
		}))
	}
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		CookieSecure:   cfg.CookieSecure,
		ContextKey:     "csrf",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", map[string]any{"err": err.Error()})
			return fail(c, fiber.StatusForbidden, "Phiên làm việc không hợp lệ, vui lòng tải lại trang và thử lại.")
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	app.Static("/static", cfg.StaticDir)

	// ---------- Public ----------
	app.Get("/", d.CatalogHandler.Home)
	app.Get("/category/:category", d.CatalogHandler.Category)
	app.Get("/category/:category/:sub", d.CatalogHandler.Category)
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	// ---------- Account ----------
	auth := d.AuthHandler
	app.Get("/admin/login", auth.LoginForm)
	app.Post("/admin/login", limiter.New(limiter.Config{
		Max:        10,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.login.hit", nil)
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "login", fiber.Map{"Err": msgTooMany})
		},
	}), auth.Login)
	app.Get("/admin/login/forgot-password", auth.ForgotForm)
	app.Post("/admin/login/forgot-password", limiter.New(limiter.Config{
		Max:        5,
		Expiration: 10 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.forgot.hit", nil)
			c.Status(fiber.StatusTooManyRequests)
			return render(c, "forgot_password", fiber.Map{"Step": "otp", "Err": msgTooMany})
		},
	}), auth.Forgot)
	app.Post("/admin/logout", auth.Logout)

	// ---------- API ----------
	api := app.Group("/api/v1", RequireAdmin())
	api.Get("/books/suggest", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 30 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP() + "|suggest"
		},
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.suggest.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": msgTooMany})
		},
	}), d.BookHandler.Suggest)

	// ---------- Admin ----------
	admin := app.Group("/admin", RequireAdmin())
	admin.Get("/", d.AdminHandler.Home)
	admin.Get("/overview", d.OverviewHandler.Overview)
	admin.Get("/password", auth.PasswordForm)
	admin.Post("/password", auth.ChangePassword)

	admin.Post("/books/add", d.BookHandler.Add)
	admin.Get("/books/:id/edit", d.BookHandler.EditForm)
	admin.Post("/books/:id/edit", d.BookHandler.Edit)
	admin.Get("/books/:id/delete", d.BookHandler.DeleteForm)
	admin.Post("/books/:id/delete", d.BookHandler.Delete)

	admin.Post("/readers/add", d.ReaderHandler.Add)
	admin.Get("/readers/:id/edit", d.ReaderHandler.EditForm)
	admin.Post("/readers/:id/edit", d.ReaderHandler.Edit)
	admin.Get("/readers/:id/delete", d.ReaderHandler.DeleteForm)
	admin.Post("/readers/:id/delete", d.ReaderHandler.Delete)

	admin.Get("/categories", d.CategoryHandler.List)
	admin.Post("/categories", d.CategoryHandler.Rename)

	admin.Post("/borrows/add", d.BorrowHandler.Add)
	admin.Get("/borrows/:id/return", d.BorrowHandler.ReturnForm)
	admin.Post("/borrows/:id/return", d.BorrowHandler.Return)
	admin.Get("/borrows/:id/renew", d.BorrowHandler.RenewForm)
	admin.Post("/borrows/:id/renew", d.BorrowHandler.Renew)

	admin.Get("/:entity/:action", d.AdminHandler.Dispatch)

	// 404
	app.Use(func(c *fiber.Ctx) error {
		return fail(c, fiber.StatusNotFound, msgNotFound)
	})
	return app
}
