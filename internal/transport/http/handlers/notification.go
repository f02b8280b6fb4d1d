package handlers

import (
	"net/http"

	"shop-service/internal/transport/http/dto"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	notifications NotificationService
	log           *zap.Logger
}

func NewNotificationHandler(notifications NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

// List godoc
// @Summary Уведомления пользователя
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param unread query bool false "Только непрочитанные"
// @Param limit query int false "Лимит" default(20)
// @Success 200 {array} dto.NotificationResponse
// @Failure 401 {object} dto.UnauthorizedErrorResponse
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	list, err := h.notifications.List(c.Request.Context(), c.Query("unread") == "true", queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, dto.Notifications(list))
}

// MarkRead godoc
// @Summary Отметить уведомление прочитанным
// @Tags notifications
// @Security BearerAuth
// @Param id path string true "ID уведомления"
// @Success 204
// @Failure 404 {object} dto.NotFoundErrorResponse
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), id); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
