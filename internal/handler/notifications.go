package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicops/internal/model"
)

// ---------- Notifications ----------

// ListNotifications serves the dashboard poll of the caller.
func (h *Handler) ListNotifications(c *gin.Context) {
	cl := caller(c)
	unread := c.Query("unread") == "true"
	var (
		rows []model.Notification
		err  error
	)
	if cl.Staff() {
		rows, err = h.svc.Notifications.ForDirector(c.Request.Context(), cl.ID, unread)
	} else {
		rows, err = h.svc.Notifications.ForStudent(c.Request.Context(), cl.ID, unread)
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *Handler) UnreadCount(c *gin.Context) {
	n, err := h.svc.Notifications.UnreadCount(c.Request.Context(), caller(c).ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.svc.Notifications.MarkRead(c.Request.Context(), caller(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
