package handlers

import (
	"github.com/gofiber/fiber/v2"

	"libdesk/internal/log"
	"libdesk/internal/services"
)

type OverviewHandler struct {
	Stats *services.StatsService
}

// GET /admin/overview
func (h *OverviewHandler) Overview(c *fiber.Ctx) error {
	ov, err := h.Stats.Overview(c.UserContext())
	if err != nil {
		log.Error(c, "admin.overview.partial", err, nil)
	}
	return render(c, "admin_overview", fiber.Map{
		"Overview":     ov,
		"BorrowedPeak": services.Peak(ov.Borrowed),
		"ReturnedPeak": services.Peak(ov.Returned),
		"Degraded":     err != nil,
	})
}
