package server

import (
	"errors"
	"log/slog"
	"strconv"

	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ListNotifications handles GET /api/notifications. The unread total rides
// along in the X-Unread-Count header.
// @Summary The caller's notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Only unread"
// @Success 200 {object} models.Response{data=[]models.Notification}
// @Router /notifications [get]
func (s *Server) ListNotifications(c *fiber.Ctx) error {
	page, err := s.notificationService.List(c.UserContext(), middleware.IdentityFrom(c),
		c.QueryBool("unread", false), parsePagination(c))
	if err != nil {
		return respondError(c, err)
	}
	c.Set("X-Unread-Count", strconv.FormatInt(page.Unread, 10))
	return models.RespondWithPage(c, page.Items, models.NewPagination(page.Limit, page.Offset, page.Total))
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notificationService.MarkRead(c.UserContext(), middleware.IdentityFrom(c), id); err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Notification read", nil)
}

// MarkAllNotificationsRead handles POST /api/notifications/read-all
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notificationService.MarkAllRead(c.UserContext(), middleware.IdentityFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return respondOK(c, "Notifications read", fiber.Map{"updated": n})
}

// WebsocketHandler streams the caller's live notifications. Inbound frames
// are ignored.
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || uid == 0 || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			reason := "connection limit reached"
			if errors.Is(err, notifications.ErrUserFull) {
				reason = "too many connections for this user"
			}
			middleware.Logger.Warn("notification socket rejected",
				slog.Uint64("user_id", uint64(uid)),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
			_ = conn.Close()
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return models.RespondWithError(c, fiber.StatusUpgradeRequired,
				models.NewValidationError("Websocket upgrade required"))
		}
		return upgrade(c)
	}
}
