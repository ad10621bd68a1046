package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"biblioteca/internal/auth"
)

// listNotifications returns the caller's notifications. Staff may pass
// userId to read another user's inbox.
func (h *Handlers) listNotifications(c *gin.Context) {
	userID := auth.UserID(c)
	if v := c.Query("userId"); v != "" && auth.HasRole(c, auth.RoleStaff) {
		parsed, err := uuid.Parse(v)
		if err != nil {
			respondBadRequest(c, "invalid userId")
			return
		}
		userID = parsed
	}

	notifications, err := h.notifications.ListForUser(userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "", notifications)
}

func (h *Handlers) markNotificationRead(c *gin.Context) {
	notificationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid notification id")
		return
	}
	if err := h.notifications.MarkRead(auth.UserID(c), notificationID); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "notification marked as read", nil)
}

func (h *Handlers) markAllNotificationsRead(c *gin.Context) {
	updated, err := h.notifications.MarkAllRead(auth.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "notifications marked as read", gin.H{"updated": updated})
}
