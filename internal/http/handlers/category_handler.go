package handlers

import (
	"github.com/gofiber/fiber/v2"

	"libdesk/internal/domain"
	"libdesk/internal/log"
	"libdesk/internal/services"
	"libdesk/internal/validate"
)

type CategoryHandler struct {
	Cats *services.CategoryService
}

func (h *CategoryHandler) page(c *fiber.Ctx, status int, data fiber.Map) error {
	cats, err := h.Cats.Load(c.UserContext())
	if err != nil {
		log.Error(c, "admin.categories.load.fail", err, nil)
	}
	rows := services.Rows(cats)
	if rows == nil {
		rows = []domain.CategoryRow{}
	}
	data["Rows"] = rows
	data["Failed"] = err != nil && len(cats) == 0
	c.Status(status)
	return render(c, "admin_categories", data)
}

// GET /admin/categories
func (h *CategoryHandler) List(c *fiber.Ctx) error {
	return h.page(c, fiber.StatusOK, fiber.Map{"Editing": c.Query("edit")})
}

// POST /admin/categories
func (h *CategoryHandler) Rename(c *fiber.Ctx) error {
	oldName, okOld := validate.Required(c.FormValue("oldName"))
	newName, okNew := validate.Required(c.FormValue("newName"))
	if !okOld || !okNew {
		log.Security(c, "validation.fail", map[string]any{"form": "category.rename"})
		return h.page(c, fiber.StatusBadRequest, fiber.Map{"Editing": oldName, "Err": "Tên danh mục không được để trống"})
	}
	if err := h.Cats.Rename(c.UserContext(), oldName, newName); err != nil {
		log.Error(c, "admin.categories.rename.fail", err, map[string]any{"old": oldName, "new": newName})
		return h.page(c, fiber.StatusBadGateway, fiber.Map{"Editing": oldName, "Err": backendMessage(err, "Đổi tên danh mục thất bại")})
	}
	log.Audit(c, "admin.categories.rename", map[string]any{"old": oldName, "new": newName})
	return c.Redirect("/admin/categories?done=renamed")
}
