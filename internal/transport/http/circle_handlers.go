package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

// CircleHandlers provides HTTP handlers for friend-group endpoints.
type CircleHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewCircleHandlers creates a new circle handlers instance.
func NewCircleHandlers(st store.Store, logger *zerolog.Logger) *CircleHandlers {
	return &CircleHandlers{
		store: st,
		log:   logger,
	}
}

// CircleRequest represents the create/rename circle request body.
type CircleRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// CircleMemberRequest represents the add member request body.
type CircleMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// CircleResponse represents a circle in API responses.
type CircleResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func circleToResponse(circle *store.Circle) CircleResponse {
	return CircleResponse{
		ID:        circle.ID,
		OwnerID:   circle.OwnerID,
		Name:      circle.Name,
		CreatedAt: circle.CreatedAt.Format(time.RFC3339),
	}
}

// ownedCircle loads the circle and verifies ownership, writing the error
// response on failure.
func (h *CircleHandlers) ownedCircle(c *gin.Context, uid string) (*store.Circle, bool) {
	circle, err := h.store.GetCircleByID(c.Request.Context(), c.Param("circleId"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "circle not found"})
		return nil, false
	}
	if circle.OwnerID != uid {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the circle owner"})
		return nil, false
	}
	return circle, true
}

// CreateCircle handles circle creation.
// POST /api/circles
func (h *CircleHandlers) CreateCircle(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CircleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create circle request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	circle, err := h.store.CreateCircle(c.Request.Context(), uid, req.Name)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", uid).Msg("failed to create circle")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("circle_id", circle.ID).Str("owner_id", uid).Msg("circle created")
	c.JSON(http.StatusCreated, circleToResponse(circle))
}

// ListCircles handles listing the authenticated user's circles.
// GET /api/circles
func (h *CircleHandlers) ListCircles(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	circles, err := h.store.ListCircles(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Str("owner_id", uid).Msg("failed to list circles")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]CircleResponse, 0, len(circles))
	for _, circle := range circles {
		response = append(response, circleToResponse(circle))
	}

	c.JSON(http.StatusOK, response)
}

// RenameCircle handles renaming a circle.
// PUT /api/circles/:circleId
func (h *CircleHandlers) RenameCircle(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	circle, ok := h.ownedCircle(c, uid)
	if !ok {
		return
	}

	var req CircleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid rename circle request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.RenameCircle(c.Request.Context(), circle.ID, req.Name); err != nil {
		h.log.Error().Err(err).Str("circle_id", circle.ID).Msg("failed to rename circle")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	circle.Name = req.Name
	c.JSON(http.StatusOK, circleToResponse(circle))
}

// DeleteCircle handles deleting a circle and its memberships.
// DELETE /api/circles/:circleId
func (h *CircleHandlers) DeleteCircle(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	circle, ok := h.ownedCircle(c, uid)
	if !ok {
		return
	}

	if err := h.store.DeleteCircle(c.Request.Context(), circle.ID); err != nil {
		h.log.Error().Err(err).Str("circle_id", circle.ID).Msg("failed to delete circle")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("circle_id", circle.ID).Msg("circle deleted")
	c.JSON(http.StatusOK, gin.H{"message": "circle deleted"})
}

// AddMember handles adding a friend to a circle.
// POST /api/circles/:circleId/members
func (h *CircleHandlers) AddMember(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	circle, ok := h.ownedCircle(c, uid)
	if !ok {
		return
	}

	var req CircleMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid add member request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	// Circle members must be accepted friends of the owner.
	isFriend, err := h.store.IsFriend(c.Request.Context(), uid, req.UserID)
	if err != nil {
		h.log.Error().Err(err).Str("circle_id", circle.ID).Msg("failed to check friendship")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !isFriend {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only friends can be added to circles"})
		return
	}

	if err := h.store.AddCircleMember(c.Request.Context(), circle.ID, req.UserID); err != nil {
		h.log.Error().Err(err).Str("circle_id", circle.ID).Str("member_id", req.UserID).Msg("failed to add circle member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "member added"})
}

// RemoveMember handles removing a member from a circle.
// DELETE /api/circles/:circleId/members/:userId
func (h *CircleHandlers) RemoveMember(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	circle, ok := h.ownedCircle(c, uid)
	if !ok {
		return
	}

	memberID := c.Param("userId")
	if err := h.store.RemoveCircleMember(c.Request.Context(), circle.ID, memberID); err != nil {
		h.log.Error().Err(err).Str("circle_id", circle.ID).Str("member_id", memberID).Msg("failed to remove circle member")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "member removed"})
}

// ListMembers handles listing circle member ids.
// GET /api/circles/:circleId/members
func (h *CircleHandlers) ListMembers(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}
	circle, ok := h.ownedCircle(c, uid)
	if !ok {
		return
	}

	members, err := h.store.ListCircleMembers(c.Request.Context(), circle.ID)
	if err != nil {
		h.log.Error().Err(err).Str("circle_id", circle.ID).Msg("failed to list circle members")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if members == nil {
		members = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
