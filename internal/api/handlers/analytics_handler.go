package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/publora/publora/internal/service"
)

type AnalyticsHandler struct {
	s service.AnalyticsService
}

func NewAnalyticsHandler(service service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{s: service}
}

func (h *AnalyticsHandler) LatestMetrics(c *fiber.Ctx) error {
	userID := GetUserID(c)

	snapshots, err := h.s.Latest(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list metrics",
		})
	}

	return c.Status(fiber.StatusOK).JSON(snapshots)
}

func (h *AnalyticsHandler) MetricsHistory(c *fiber.Ctx) error {
	userID := GetUserID(c)
	jobId := c.QueryInt("job_id", 0)

	snapshots, err := h.s.History(c.Context(), userID, int64(jobId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to get metrics history",
		})
	}

	return c.Status(fiber.StatusOK).JSON(snapshots)
}
