package handlers

import (
	"errors"
	"slices"

	"github.com/gofiber/fiber/v2"

	"libdesk/internal/domain"
	"libdesk/internal/log"
	"libdesk/internal/services"
	"libdesk/internal/validate"
)

type ReaderHandler struct {
	Members *services.MemberService
}

// GET /admin/readers/list
func (h *ReaderHandler) List(c *fiber.Ctx) error {
	q := services.ReaderQuery{
		Term: validate.Q(c.Query("q")),
		Sort: c.Query("sort"),
		Page: validate.Page(c.Query("page")),
	}
	if !slices.Contains(services.ReaderSorts, q.Sort) {
		q.Sort = services.DefaultReaderSort
	}
	page, err := h.Members.List(c.UserContext(), q)
	if err != nil {
		log.Error(c, "admin.readers.list.fail", err, nil)
	}
	return render(c, "admin_readers", fiber.Map{
		"Page":   page,
		"Query":  q,
		"Sorts":  services.ReaderSorts,
		"Failed": err != nil,
	})
}

// GET /admin/readers/add
func (h *ReaderHandler) AddForm(c *fiber.Ctx) error {
	return render(c, "admin_reader_form", fiber.Map{"Form": validate.ReaderInput{}})
}

// POST /admin/readers/add
func (h *ReaderHandler) Add(c *fiber.Ctx) error {
	var in validate.ReaderInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadForm)
	}
	m, errs := validate.Reader(in)
	if !errs.OK() {
		log.Security(c, "validation.fail", map[string]any{"form": "reader.add", "fields": fieldNames(errs)})
		c.Status(fiber.StatusBadRequest)
		return render(c, "admin_reader_form", fiber.Map{"Form": in, "Errors": errs})
	}
	created, err := h.Members.Create(c.UserContext(), m)
	if err != nil {
		log.Error(c, "admin.readers.add.fail", err, nil)
		c.Status(fiber.StatusBadGateway)
		return render(c, "admin_reader_form", fiber.Map{"Form": in, "Err": backendMessage(err, "Có lỗi xảy ra khi thêm người đọc")})
	}
	log.Audit(c, "admin.readers.add", map[string]any{"member_id": created.MemberID})
	return c.Redirect("/admin/readers/list?done=added")
}

func (h *ReaderHandler) load(c *fiber.Ctx) (m domain.Member, ok bool, err error) {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return m, false, fail(c, fiber.StatusNotFound, "Không tìm thấy người đọc")
	}
	m, err = h.Members.Get(c.UserContext(), id)
	if errors.Is(err, services.ErrMemberNotFound) {
		return m, false, fail(c, fiber.StatusNotFound, "Không tìm thấy người đọc")
	}
	if err != nil {
		log.Error(c, "admin.readers.get.fail", err, map[string]any{"member_id": id})
		return m, false, fail(c, fiber.StatusBadGateway, "Không tải được dữ liệu người đọc, vui lòng thử lại")
	}
	return m, true, nil
}

// GET /admin/readers/:id/edit
func (h *ReaderHandler) EditForm(c *fiber.Ctx) error {
	m, ok, err := h.load(c)
	if !ok {
		return err
	}
	return render(c, "admin_reader_edit", fiber.Map{"Form": validate.MemberEditFromMember(m), "Member": m})
}

// POST /admin/readers/:id/edit
func (h *ReaderHandler) Edit(c *fiber.Ctx) error {
	cur, ok, err := h.load(c)
	if !ok {
		return err
	}
	var in validate.MemberEditInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadForm)
	}
	next, errs := validate.MemberEdit(in)
	if !errs.OK() {
		log.Security(c, "validation.fail", map[string]any{"form": "reader.edit", "fields": fieldNames(errs)})
		c.Status(fiber.StatusBadRequest)
		return render(c, "admin_reader_edit", fiber.Map{"Form": in, "Member": cur, "Errors": errs})
	}
	if _, err := h.Members.Update(c.UserContext(), cur, next); err != nil {
		log.Error(c, "admin.readers.update.fail", err, map[string]any{"member_id": cur.MemberID})
		c.Status(fiber.StatusBadGateway)
		return render(c, "admin_reader_edit", fiber.Map{"Form": in, "Member": cur, "Err": backendMessage(err, "Cập nhật người đọc thất bại")})
	}
	log.Audit(c, "admin.readers.update", map[string]any{"member_id": cur.MemberID})
	return c.Redirect("/admin/readers/list?done=updated")
}

// GET /admin/readers/:id/delete
func (h *ReaderHandler) DeleteForm(c *fiber.Ctx) error {
	m, ok, err := h.load(c)
	if !ok {
		return err
	}
	return render(c, "admin_confirm_delete", fiber.Map{
		"Kind":   "người đọc",
		"Name":   m.Name,
		"Action": "/admin/readers/" + m.MemberID + "/delete",
		"Cancel": "/admin/readers/list",
	})
}

// POST /admin/readers/:id/delete
func (h *ReaderHandler) Delete(c *fiber.Ctx) error {
	id, ok := validate.ID(c.Params("id"))
	if !ok {
		return fail(c, fiber.StatusNotFound, "Không tìm thấy người đọc")
	}
	if err := h.Members.Delete(c.UserContext(), id); err != nil {
		log.Error(c, "admin.readers.delete.fail", err, map[string]any{"member_id": id})
		c.Status(fiber.StatusBadGateway)
		return render(c, "admin_confirm_delete", fiber.Map{
			"Kind":   "người đọc",
			"Name":   id,
			"Err":    backendMessage(err, "Xóa người đọc thất bại"),
			"Action": "/admin/readers/" + id + "/delete",
			"Cancel": "/admin/readers/list",
		})
	}
	log.Audit(c, "admin.readers.delete", map[string]any{"member_id": id})
	return c.Redirect("/admin/readers/list?done=deleted")
}
