package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"libdesk/internal/domain"
	"libdesk/internal/log"
	"libdesk/internal/services"
)

type CatalogHandler struct {
	Catalog *services.CatalogService
}

// GET /
func (h *CatalogHandler) Home(c *fiber.Ctx) error {
	return render(c, "home", fiber.Map{"Categories": h.Catalog.ListCategories()})
}

// GET /category/:category and /category/:category/:sub
func (h *CatalogHandler) Category(c *fiber.Ctx) error {
	b, err := h.Catalog.Resolve(c.Params("category"), c.Params("sub"))
	switch {
	case errors.Is(err, services.ErrCategoryNotFound):
		return fail(c, fiber.StatusNotFound, "Không tìm thấy danh mục")
	case errors.Is(err, services.ErrSubcategoryNotFound):
		return fail(c, fiber.StatusNotFound, "Không tìm thấy danh mục con")
	}

	data := fiber.Map{"Categories": h.Catalog.ListCategories(), "Category": b.Category, "Sub": b.Sub}
	if b.Sub != "" {
		books, err := h.Catalog.BooksIn(c.UserContext(), b.Sub)
		if err != nil {
			log.Error(c, "catalog.books.fail", err, map[string]any{"sub": b.Sub})
			books = []domain.Book{}
		}
		data["Books"] = books
	}
	return render(c, "category", data)
}
