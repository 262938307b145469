package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

// UserHandlers provides HTTP handlers for profile, search and settings.
type UserHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// UpdateProfileRequest represents the profile update request body.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name" binding:"max=64"`
	Bio         string `json:"bio" binding:"max=500"`
	AvatarURL   string `json:"avatar_url" binding:"max=500"`
}

// SettingsResponse represents account settings in API responses.
type SettingsResponse struct {
	ProfileVisibility   string `json:"profile_visibility"`
	AllowFriendRequests bool   `json:"allow_friend_requests"`
	EmailNotifications  bool   `json:"email_notifications"`
}

// UpdateSettingsRequest represents the settings update request body.
type UpdateSettingsRequest struct {
	ProfileVisibility   string `json:"profile_visibility" binding:"required,oneof=public friends circle private"`
	AllowFriendRequests *bool  `json:"allow_friend_requests" binding:"required"`
	EmailNotifications  *bool  `json:"email_notifications" binding:"required"`
}

// GetProfile handles fetching a user's public profile.
// GET /api/users/:userId
func (h *UserHandlers) GetProfile(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

// UpdateProfile handles updating the authenticated user's profile.
// PUT /api/me/profile
func (h *UserHandlers) UpdateProfile(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update profile request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.store.UpdateProfile(c.Request.Context(), uid, strings.TrimSpace(req.DisplayName), strings.TrimSpace(req.Bio), strings.TrimSpace(req.AvatarURL))
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to update profile")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, userToResponse(user))
}

// SearchUsers handles searching for users.
// GET /api/users/search?q=query
func (h *UserHandlers) SearchUsers(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	trimmed := strings.TrimSpace(c.Query("q"))
	if len(trimmed) < 3 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "search query must be at least 3 characters"})
		return
	}

	users, err := h.store.SearchUsers(c.Request.Context(), trimmed)
	if err != nil {
		h.log.Error().Err(err).Str("query", trimmed).Msg("failed to search users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0)
	for _, u := range users {
		// don't show self
		if u.ID == uid {
			continue
		}
		response = append(response, userToResponse(u))
	}

	c.JSON(http.StatusOK, response)
}

// GetSettings handles fetching the authenticated user's settings.
// GET /api/me/settings
func (h *UserHandlers) GetSettings(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	settings, err := h.store.GetSettings(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to get settings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{
		ProfileVisibility:   string(settings.ProfileVisibility),
		AllowFriendRequests: settings.AllowFriendRequests,
		EmailNotifications:  settings.EmailNotifications,
	})
}

// UpdateSettings handles replacing the authenticated user's settings.
// PUT /api/me/settings
func (h *UserHandlers) UpdateSettings(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update settings request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	settings := &store.Settings{
		UserID:              uid,
		ProfileVisibility:   store.Visibility(req.ProfileVisibility),
		AllowFriendRequests: *req.AllowFriendRequests,
		EmailNotifications:  *req.EmailNotifications,
	}
	if err := h.store.UpdateSettings(c.Request.Context(), settings); err != nil {
		h.log.Error().Err(err).Str("user_id", uid).Msg("failed to update settings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, SettingsResponse{
		ProfileVisibility:   string(settings.ProfileVisibility),
		AllowFriendRequests: settings.AllowFriendRequests,
		EmailNotifications:  settings.EmailNotifications,
	})
}
