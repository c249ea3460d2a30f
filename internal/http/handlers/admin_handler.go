package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "libdesk/internal/log"
)

// AdminHandler routes the generic /admin/:entity/:action pages.
type AdminHandler struct {
	pages map[string]map[string]fiber.Handler
}

func NewAdminHandler(books *BookHandler, readers *ReaderHandler, borrows *BorrowHandler) *AdminHandler {
	return &AdminHandler{pages: map[string]map[string]fiber.Handler{
		"books": {
			"list": books.List,
			"add":  books.AddForm,
		},
		"readers": {
			"list": readers.List,
			"add":  readers.AddForm,
		},
		"borrows": {
			"add":     borrows.AddForm,
			"history": borrows.History,
			"list":    borrows.History,
		},
	}}
}

// GET /admin
func (h *AdminHandler) Home(c *fiber.Ctx) error {
	return c.Redirect("/admin/overview")
}

// GET /admin/:entity/:action
func (h *AdminHandler) Dispatch(c *fiber.Ctx) error {
	entity, action := c.Params("entity"), c.Params("action")
	if page, ok := h.pages[entity][action]; ok {
		return page(c)
	}
	applog.Security(c, "admin.page.unknown", map[string]any{"entity": entity, "action": action})
	return fail(c, fiber.StatusNotFound, msgNotFound)
}
