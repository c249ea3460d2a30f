package handlers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"libdesk/internal/domain"
	"libdesk/internal/log"
	"libdesk/internal/services"
	"libdesk/internal/validate"
)

type BorrowHandler struct {
	Txs *services.TransactionService
}

// GET /admin/borrows/add
func (h *BorrowHandler) AddForm(c *fiber.Ctx) error {
	return render(c, "admin_borrow_form", fiber.Map{"Form": validate.BorrowInput{}})
}

// POST /admin/borrows/add
func (h *BorrowHandler) Add(c *fiber.Ctx) error {
	var in validate.BorrowInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgBadForm)
	}
	clean, errs := validate.Borrow(in)
	if !errs.OK() {
		log.Security(c, "validation.fail", map[string]any{"form": "borrow", "fields": fieldNames(errs)})
		c.Status(fiber.StatusBadRequest)
		return render(c, "admin_borrow_form", fiber.Map{"Form": in, "Errors": errs})
	}
	if err := h.Txs.Borrow(c.UserContext(), clean); err != nil {
		log.Error(c, "admin.borrows.add.fail", err, map[string]any{"title": clean.Title})
		c.Status(fiber.StatusBadGateway)
		return render(c, "admin_borrow_form", fiber.Map{"Form": in, "Err": backendMessage(err, "Tạo phiếu mượn thất bại")})
	}
	log.Audit(c, "admin.borrows.add", map[string]any{"title": clean.Title, "phone": clean.Phone})
	return c.Redirect("/admin/borrows/history?done=borrowed")
}

func historyURL(tab domain.Status, done string) string {
	q := url.Values{}
	q.Set("tab", string(tab))
	if done != "" {
		q.Set("done", done)
	}
	return "/admin/borrows/history?" + q.Encode()
}

// GET /admin/borrows/history?tab=&q=&page=
func (h *BorrowHandler) History(c *fiber.Ctx) error {
	q := services.HistoryQuery{
		Tab:  domain.ParseStatus(c.Query("tab")),
		Q:    validate.Q(c.Query("q")),
		Page: validate.Page(c.Query("page")),
	}
	page, err := h.Txs.History(c.UserContext(), q)
	if err != nil {
		// the tab simply shows no rows
		log.Error(c, "admin.borrows.history.fail", err, map[string]any{"tab": q.Tab})
	}
	return render(c, "admin_borrow_history", fiber.Map{
		"Page":  page,
		"Query": q,
		"Tabs":  services.HistoryTabs,
	})
}

// load finds the borrowed transaction named by :id. When ok is false the
// response has been written.
func (h *BorrowHandler) load(c *fiber.Ctx) (t domain.Transaction, ok bool, err error) {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return t, false, fail(c, fiber.StatusNotFound, "Không tìm thấy giao dịch")
	}
	t, err = h.Txs.Find(c.UserContext(), id)
	switch {
	case err == nil:
		return t, true, nil
	case errors.Is(err, services.ErrNotBorrowed):
		log.Security(c, "admin.borrows.action.refused", map[string]any{"tx_id": id, "status": t.Status})
		return t, false, fail(c, fiber.StatusConflict, "Chỉ có thể thao tác với sách đang mượn")
	case errors.Is(err, services.ErrTransactionNotFound):
		return t, false, fail(c, fiber.StatusNotFound, "Không tìm thấy giao dịch")
	default:
		log.Error(c, "admin.borrows.get.fail", err, map[string]any{"tx_id": id})
		return t, false, fail(c, fiber.StatusBadGateway, "Không tải được giao dịch, vui lòng thử lại")
	}
}

// GET /admin/borrows/:id/return
func (h *BorrowHandler) ReturnForm(c *fiber.Ctx) error {
	t, ok, err := h.load(c)
	if !ok {
		return err
	}
	return render(c, "admin_borrow_action", fiber.Map{"Tx": t, "Kind": "return", "Phone": t.Phone})
}

// POST /admin/borrows/:id/return
func (h *BorrowHandler) Return(c *fiber.Ctx) error {
	t, ok, err := h.load(c)
	if !ok {
		return err
	}
	if err := h.Txs.Return(c.UserContext(), t); err != nil {
		log.Error(c, "admin.borrows.return.fail", err, map[string]any{"tx_id": t.ID})
		c.Status(fiber.StatusBadGateway)
		return render(c, "admin_borrow_action", fiber.Map{"Tx": t, "Kind": "return", "Phone": t.Phone, "Err": backendMessage(err, "Trả sách thất bại")})
	}
	log.Audit(c, "admin.borrows.return", map[string]any{"tx_id": t.ID, "member_id": t.MemberID, "book_id": t.BookID})
	return c.Redirect(historyURL(domain.StatusBorrowed, "returned"))
}

// GET /admin/borrows/:id/renew
func (h *BorrowHandler) RenewForm(c *fiber.Ctx) error {
	t, ok, err := h.load(c)
	if !ok {
		return err
	}
	data := fiber.Map{"Tx": t, "Kind": "renew"}
	m, err := h.Txs.RenewFor(c.UserContext(), t)
	switch {
	case err == nil:
		data["Phone"] = m.Phone
	case errors.Is(err, services.ErrMemberNotFound):
		data["Blocked"] = "Không tìm thấy người đọc " + t.MemberName
	default:
		log.Error(c, "admin.borrows.renew.members.fail", err, map[string]any{"tx_id": t.ID})
		data["Blocked"] = "Không tải được danh sách người đọc"
	}
	return render(c, "admin_borrow_action", data)
}

// POST /admin/borrows/:id/renew
func (h *BorrowHandler) Renew(c *fiber.Ctx) error {
	t, ok, err := h.load(c)
	if !ok {
		return err
	}
	if err := h.Txs.Renew(c.UserContext(), t); err != nil {
		data := fiber.Map{"Tx": t, "Kind": "renew"}
		if errors.Is(err, services.ErrMemberNotFound) {
			log.Security(c, "admin.borrows.renew.no_member", map[string]any{"tx_id": t.ID, "member": t.MemberName})
			data["Blocked"] = "Không tìm thấy người đọc " + t.MemberName
			c.Status(fiber.StatusUnprocessableEntity)
		} else {
			log.Error(c, "admin.borrows.renew.fail", err, map[string]any{"tx_id": t.ID})
			data["Err"] = backendMessage(err, "Gia hạn thất bại")
			c.Status(fiber.StatusBadGateway)
		}
		return render(c, "admin_borrow_action", data)
	}
	log.Audit(c, "admin.borrows.renew", map[string]any{"tx_id": t.ID, "member_id": t.MemberID})
	return c.Redirect(historyURL(domain.StatusBorrowed, "renewed"))
}
