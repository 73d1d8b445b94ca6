package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/publora/publora/internal/service"
	"github.com/publora/publora/internal/transfer"
)

type PublishHandler struct {
	s service.PublishService
}

func NewPublishHandler(service service.PublishService) *PublishHandler {
	return &PublishHandler{s: service}
}

func (h *PublishHandler) CreateJobs(c *fiber.Ctx) error {
	userID := GetUserID(c)

	var req transfer.CreatePublishRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	jobs, err := h.s.Create(c.Context(), userID, &req)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(jobs)
}

func (h *PublishHandler) ListJobs(c *fiber.Ctx) error {
	userID := GetUserID(c)
	jobId := c.QueryInt("id", 0)

	if jobId != 0 {
		job, err := h.s.Get(c.Context(), userID, int64(jobId))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to get publish job",
			})
		}

		return c.Status(fiber.StatusOK).JSON(job)
	}

	jobs, err := h.s.List(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list publish jobs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(jobs)
}

func (h *PublishHandler) RetryJob(c *fiber.Ctx) error {
	userID := GetUserID(c)
	jobId := c.QueryInt("id", 0)

	if err := h.s.Retry(c.Context(), userID, int64(jobId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PublishHandler) RescheduleJob(c *fiber.Ctx) error {
	userID := GetUserID(c)
	jobId := c.QueryInt("id", 0)

	var req transfer.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if err := h.s.Reschedule(c.Context(), userID, int64(jobId), req.ScheduledFor); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PublishHandler) CancelJob(c *fiber.Ctx) error {
	userID := GetUserID(c)
	jobId := c.QueryInt("id", 0)

	if err := h.s.Cancel(c.Context(), userID, int64(jobId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *PublishHandler) NextSlot(c *fiber.Ctx) error {
	userID := GetUserID(c)
	connectionId := c.QueryInt("connection_id", 0)

	slot, err := h.s.NextSlot(c.Context(), userID, int64(connectionId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"next_slot": slot,
	})
}
