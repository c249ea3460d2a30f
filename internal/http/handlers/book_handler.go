package handlers

import (
	"context"
	"errors"
	"maps"
	"slices"

	"github.com/gofiber/fiber/v2"

	"libdesk/internal/domain"
	"libdesk/internal/log"
	"libdesk/internal/services"
	"libdesk/internal/validate"
)

const suggestLimit = 8

type BookHandler struct {
	Books *services.BookService
	Cats  *services.CategoryService
}

func bookQuery(c *fiber.Ctx) services.BookQuery {
	q := services.BookQuery{
		Field: c.Query("field"),
		Term:  validate.Q(c.Query("q")),
		Sort:  c.Query("sort"),
		Page:  validate.Page(c.Query("page")),
	}
	if !slices.Contains(services.BookFields, q.Field) {
		q.Field = "name"
	}
	if !slices.Contains(services.BookSorts, q.Sort) {
		q.Sort = ""
	}
	return q
}

// GET /admin/books/list
func (h *BookHandler) List(c *fiber.Ctx) error {
	q := bookQuery(c)
	page, err := h.Books.List(c.UserContext(), q)
	if err != nil {
		log.Error(c, "admin.books.list.fail", err, nil)
	}
	return render(c, "admin_books", fiber.Map{
		"Page":   page,
		"Query":  q,
		"Fields": services.BookFields,
		"Sorts":  services.BookSorts,
		"Failed": err != nil,
	})
}

func (h *BookHandler) categories(c *fiber.Ctx) []domain.Category {
	cats, err := h.Cats.Load(c.UserContext())
	if err != nil {
		log.Error(c, "admin.categories.load.fail", err, nil)
	}
	return cats
}

func (h *BookHandler) form(c *fiber.Ctx, status int, data fiber.Map) error {
	data["Categories"] = h.categories(c)
	data["Custom"] = validate.Custom
	c.Status(status)
	return render(c, "admin_book_form", data)
}

// GET /admin/books/add
func (h *BookHandler) AddForm(c *fiber.Ctx) error {
	return h.form(c, fiber.StatusOK, fiber.Map{"Form": validate.BookInput{}, "Action": "/admin/books/add"})
}

// parseBook reads the form and fills a missing main category from the
// chosen subcategory when exactly one main category owns it.
func (h *BookHandler) parseBook(ctx context.Context, c *fiber.Ctx) (validate.BookInput, error) {
	var in validate.BookInput
	if err := c.BodyParser(&in); err != nil {
		return in, err
	}
	if in.BigCategory == "" && in.SmallCategory != "" && in.SmallCategory != validate.Custom {
		cats, err := h.Cats.Load(ctx)
		if err != nil {
			log.Error(c, "admin.categories.load.fail", err, nil)
		}
		if main, err := services.InferMain(cats, in.SmallCategory); err == nil {
			in.BigCategory = main
		}
	}
	return in, nil
}

// POST /admin/books/add
func (h *BookHandler) Add(c *fiber.Ctx) error {
	in, err := h.parseBook(c.UserContext(), c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadForm)
	}
	book, errs := validate.Book(in)
	if !errs.OK() {
		log.Security(c, "validation.fail", map[string]any{"form": "book.add", "fields": fieldNames(errs)})
		return h.form(c, fiber.StatusBadRequest, fiber.Map{"Form": in, "Errors": errs, "Action": "/admin/books/add"})
	}
	created, err := h.Books.Create(c.UserContext(), book)
	if err != nil {
		log.Error(c, "admin.books.add.fail", err, map[string]any{"title": book.Title})
		return h.form(c, fiber.StatusBadGateway, fiber.Map{"Form": in, "Err": backendMessage(err, "Có lỗi xảy ra khi thêm sách"), "Action": "/admin/books/add"})
	}
	log.Audit(c, "admin.books.add", map[string]any{"book_id": created.Key(), "title": book.Title})
	return c.Redirect("/admin/books/list?done=added")
}

// load fetches the book named by :id. When ok is false the response has
// already been written and err is what the handler returns.
func (h *BookHandler) load(c *fiber.Ctx) (b domain.Book, ok bool, err error) {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return b, false, fail(c, fiber.StatusNotFound, "Không tìm thấy sách")
	}
	b, err = h.Books.Get(c.UserContext(), id)
	if errors.Is(err, services.ErrBookNotFound) {
		return b, false, fail(c, fiber.StatusNotFound, "Không tìm thấy sách")
	}
	if err != nil {
		log.Error(c, "admin.books.get.fail", err, map[string]any{"book_id": id})
		return b, false, fail(c, fiber.StatusBadGateway, "Không tải được dữ liệu sách, vui lòng thử lại")
	}
	return b, true, nil
}

// GET /admin/books/:id/edit
func (h *BookHandler) EditForm(c *fiber.Ctx) error {
	b, ok, err := h.load(c)
	if !ok {
		return err
	}
	return h.form(c, fiber.StatusOK, fiber.Map{"Form": validate.BookFromBook(b), "Book": b, "Action": "/admin/books/" + b.Key() + "/edit"})
}

// POST /admin/books/:id/edit
func (h *BookHandler) Edit(c *fiber.Ctx) error {
	cur, ok, err := h.load(c)
	if !ok {
		return err
	}
	action := "/admin/books/" + cur.Key() + "/edit"
	in, err := h.parseBook(c.UserContext(), c)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadForm)
	}
	next, errs := validate.Book(in)
	if !errs.OK() {
		log.Security(c, "validation.fail", map[string]any{"form": "book.edit", "fields": fieldNames(errs)})
		return h.form(c, fiber.StatusBadRequest, fiber.Map{"Form": in, "Book": cur, "Errors": errs, "Action": action})
	}
	if _, err := h.Books.Update(c.UserContext(), cur, next); err != nil {
		log.Error(c, "admin.books.update.fail", err, map[string]any{"book_id": cur.Key()})
		return h.form(c, fiber.StatusBadGateway, fiber.Map{"Form": in, "Book": cur, "Err": backendMessage(err, "Cập nhật sách thất bại"), "Action": action})
	}
	log.Audit(c, "admin.books.update", map[string]any{"book_id": cur.Key(), "fields": fieldNamesAny(services.BookPatch(cur, next))})
	return c.Redirect("/admin/books/list?done=updated")
}

// GET /admin/books/:id/delete
func (h *BookHandler) DeleteForm(c *fiber.Ctx) error {
	b, ok, err := h.load(c)
	if !ok {
		return err
	}
	return render(c, "admin_confirm_delete", fiber.Map{
		"Kind":   "sách",
		"Name":   b.Title,
		"Action": "/admin/books/" + b.Key() + "/delete",
		"Cancel": "/admin/books/list",
	})
}

// POST /admin/books/:id/delete
func (h *BookHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "Không tìm thấy sách")
	}
	if err := h.Books.Delete(c.UserContext(), id); err != nil {
		log.Error(c, "admin.books.delete.fail", err, map[string]any{"book_id": id})
		c.Status(fiber.StatusBadGateway)
		return render(c, "admin_confirm_delete", fiber.Map{
			"Kind":   "sách",
			"Name":   id,
			"Err":    backendMessage(err, "Xóa sách thất bại"),
			"Action": "/admin/books/" + id + "/delete",
			"Cancel": "/admin/books/list",
		})
	}
	log.Audit(c, "admin.books.delete", map[string]any{"book_id": id})
	return c.Redirect("/admin/books/list?done=deleted")
}

// GET /api/v1/books/suggest?q=
func (h *BookHandler) Suggest(c *fiber.Ctx) error {
	titles, err := h.Books.Suggest(c.UserContext(), validate.Q(c.Query("q")), suggestLimit)
	if err != nil {
		log.Error(c, "api.books.suggest.fail", err, nil)
		titles = []string{}
	}
	return c.JSON(fiber.Map{"titles": titles})
}

func fieldNamesAny(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
