package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

// NotificationHandlers provides HTTP handlers for notification endpoints.
type NotificationHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewNotificationHandlers creates a new notification handlers instance.
func NewNotificationHandlers(st store.Store, logger *zerolog.Logger) *NotificationHandlers {
	return &NotificationHandlers{
		store: st,
		log:   logger,
	}
}

// NotificationResponse represents a notification in API responses.
type NotificationResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	ActorID   string `json:"actor_id"`
	SubjectID string `json:"subject_id,omitempty"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"created_at"`
}

// ListNotifications handles listing the user's notifications, newest first.
// GET /api/notifications?unread=true
func (h *NotificationHandlers) ListNotifications(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	unreadOnly := c.Query("unread") == "true"
	notifications, err := h.store.ListNotifications(c.Request.Context(), uid, unreadOnly)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to list notifications")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, NotificationResponse{
			ID:        n.ID,
			Kind:      string(n.Kind),
			ActorID:   n.ActorID,
			SubjectID: n.SubjectID,
			Read:      n.ReadAt != nil,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}

// MarkRead handles marking one notification as read.
// POST /api/notifications/:notificationId/read
func (h *NotificationHandlers) MarkRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	id := c.Param("notificationId")
	if err := h.store.MarkNotificationRead(c.Request.Context(), id, uid); err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "notification not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification marked read"})
}

// MarkAllRead handles marking all of the user's notifications as read.
// POST /api/notifications/read-all
func (h *NotificationHandlers) MarkAllRead(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.store.MarkAllNotificationsRead(c.Request.Context(), uid); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to mark notifications read")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notifications marked read"})
}
