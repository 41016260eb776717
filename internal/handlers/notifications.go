package handlers

import (
	"context"
	"net/http"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// notify records a notification for recipientID and pushes it to them over
// the realtime feed. Self-notifications and muted types are skipped. Errors
// are logged: the action that triggered the notification already succeeded.
func (h *Handlers) notify(ctx context.Context, recipientID, actorID, kind, targetType, targetID string) {
	if recipientID == "" || recipientID == actorID {
		return
	}

	recipient, err := h.store.Users().GetUser(ctx, recipientID)
	if err != nil {
		logger.WarnWithFields("Failed to load notification recipient", err)
		return
	}
	if !wantsNotification(recipient, kind) {
		return
	}

	n := &models.Notification{
		UserID:     recipientID,
		ActorID:    actorID,
		Type:       kind,
		TargetType: targetType,
		TargetID:   targetID,
	}
	if err := h.store.Notifications().CreateNotification(ctx, n); err != nil {
		logger.Log.Warn("Failed to create notification",
			logger.WithUserID(recipientID),
			zap.String("type", kind),
			zap.Error(err),
		)
		return
	}
	h.publish(ctx, realtime.TableNotifications, realtime.Insert, n, recipientID)
}

func wantsNotification(u *models.User, kind string) bool {
	switch kind {
	case models.NotificationComment, models.NotificationReply:
		return u.NotifyComments
	case models.NotificationReaction:
		return u.NotifyReactions
	case models.NotificationFollow:
		return u.NotifyFollows
	}
	return true
}

// GetNotifications lists the caller's notifications, newest first
// GET /api/v1/notifications?unread=true
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	unreadOnly := c.Query("unread") == "true"

	items, err := h.store.Notifications().ListNotifications(c.Request.Context(), userID, unreadOnly, limit, offset)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	unread, err := h.store.Notifications().UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"unread":        unread,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetUnreadCount returns how many notifications are unread
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	unread, err := h.store.Notifications().UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

// MarkNotificationsRead marks the listed notifications read, or all of them
// when ids is empty
// POST /api/v1/notifications/read
func (h *Handlers) MarkNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		IDs []string `json:"ids"`
	}
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}

	updated, err := h.store.Notifications().MarkRead(c.Request.Context(), userID, req.IDs)
	if err != nil {
		respondError(c, err, "notification")
		return
	}
	c.JSON(http.StatusOK, gin.H{"marked": updated})
}
