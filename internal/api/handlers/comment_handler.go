package handlers

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/publora/publora/internal/service"
	"github.com/publora/publora/internal/transfer"
)

type CommentHandler struct {
	s service.CommentService
}

func NewCommentHandler(service service.CommentService) *CommentHandler {
	return &CommentHandler{s: service}
}

func (h *CommentHandler) ListComments(c *fiber.Ctx) error {
	userID := GetUserID(c)
	postId := c.QueryInt("post_id", 0)

	comments, err := h.s.ListByPost(c.Context(), userID, int64(postId))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list comments",
		})
	}

	return c.Status(fiber.StatusOK).JSON(comments)
}

func (h *CommentHandler) ReplyComment(c *fiber.Ctx) error {
	userID := GetUserID(c)
	commentId := c.QueryInt("id", 0)

	var req transfer.CommentReplyRequest
	if err := c.BodyParser(&req); err != nil {
		slog.Info(err.Error())
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if err := h.s.Reply(c.Context(), userID, int64(commentId), req.Text); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *CommentHandler) ResolveComment(c *fiber.Ctx) error {
	userID := GetUserID(c)
	commentId := c.QueryInt("id", 0)
	resolved := c.QueryBool("resolved", true)

	if err := h.s.Resolve(c.Context(), userID, int64(commentId), resolved); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to update comment",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *CommentHandler) HideComment(c *fiber.Ctx) error {
	userID := GetUserID(c)
	commentId := c.QueryInt("id", 0)
	hidden := c.QueryBool("hidden", true)

	if err := h.s.Hide(c.Context(), userID, int64(commentId), hidden); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to update comment",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *CommentHandler) SyncComments(c *fiber.Ctx) error {
	userID := GetUserID(c)
	connectionId := c.QueryInt("connection_id", 0)

	if err := h.s.RequestSync(c.Context(), userID, int64(connectionId)); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *CommentHandler) RemoveComment(c *fiber.Ctx) error {
	userID := GetUserID(c)
	commentId := c.QueryInt("id", 0)

	if err := h.s.Delete(c.Context(), userID, int64(commentId)); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove comment",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
