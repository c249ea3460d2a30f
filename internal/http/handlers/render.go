package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"libdesk/internal/domain"
)

// Notices shown after a redirect, keyed by the "done" query value.
var notices = map[string]string{
	"added":    "Thêm mới thành công",
	"updated":  "Cập nhật thành công",
	"deleted":  "Xóa thành công",
	"returned": "Trả sách thành công",
	"renewed":  "Gia hạn thành công",
	"borrowed": "Tạo phiếu mượn thành công",
	"renamed":  "Đổi tên danh mục thành công",
	"password": "Đổi mật khẩu thành công",
	"reset":    "Đặt lại mật khẩu thành công, vui lòng đăng nhập",
}

const (
	msgNotFound    = "Không tìm thấy trang"
	msgServerError = "Có lỗi xảy ra, vui lòng thử lại."
	msgBadForm     = "Dữ liệu gửi lên không hợp lệ"
	msgTooMany     = "Bạn thao tác quá nhiều lần, vui lòng thử lại sau."
)

func render(c *fiber.Ctx, tmpl string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	sess := currentSession(c)
	if sess != nil {
		data["Session"] = sess
	}
	if tok, _ := c.Locals("CSRFToken").(string); tok != "" {
		data["CSRFToken"] = tok
	} else if tok = c.Cookies("csrf_"); tok != "" {
		data["CSRFToken"] = tok
	}
	if n, ok := notices[c.Query("done")]; ok {
		data["Notice"] = n
	}
	data["Path"] = c.Path()

	layout := "layouts/public"
	if sess != nil && strings.HasPrefix(c.Path(), "/admin") {
		layout = "layouts/admin"
	}
	return c.Render(tmpl, data, layout)
}

// fail renders the message page with status.
func fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).Render("notfound", fiber.Map{"Message": msg}, "layouts/public")
}

func currentSession(c *fiber.Ctx) *domain.Session {
	s, _ := c.Locals("session").(*domain.Session)
	return s
}
