package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/service/sessions"
	"github.com/usersaynoso/shadowme-server/internal/store"
)

const defaultHistoryLimit = 50

// SessionHandlers provides HTTP handlers for shadow-session endpoints.
type SessionHandlers struct {
	service *sessions.Service
	log     *zerolog.Logger
}

// NewSessionHandlers creates a new session handlers instance.
func NewSessionHandlers(svc *sessions.Service, logger *zerolog.Logger) *SessionHandlers {
	return &SessionHandlers{
		service: svc,
		log:     logger,
	}
}

// SessionRequest represents the create/update session request body.
type SessionRequest struct {
	Title       string    `json:"title" binding:"required,min=1,max=128"`
	Description string    `json:"description" binding:"max=1000"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at" binding:"required"`
}

// InviteRequest represents the session invite request body.
type InviteRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// SessionResponse represents a session in API responses.
type SessionResponse struct {
	ID          string `json:"id"`
	HostID      string `json:"host_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartsAt    string `json:"starts_at"`
	EndsAt      string `json:"ends_at"`
	CreatedAt   string `json:"created_at"`
}

// MessageResponse represents a persisted chat message in API responses.
type MessageResponse struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Body      string `json:"body"`
	CreatedAt string `json:"created_at"`
}

func sessionToResponse(s *store.Session) SessionResponse {
	return SessionResponse{
		ID:          s.ID,
		HostID:      s.HostID,
		Title:       s.Title,
		Description: s.Description,
		StartsAt:    s.StartsAt.Format(time.RFC3339),
		EndsAt:      s.EndsAt.Format(time.RFC3339),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

func (h *SessionHandlers) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, sessions.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
	case errors.Is(err, sessions.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "user not found"})
	case errors.Is(err, sessions.ErrNotHost):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "only the host can modify the session"})
	case errors.Is(err, sessions.ErrAlreadyParticipant):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already a participant"})
	case errors.Is(err, sessions.ErrNotParticipant):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a participant"})
	case errors.Is(err, sessions.ErrHostCannotLeave):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "the host cannot leave their own session"})
	case errors.Is(err, sessions.ErrEmptyTitle), errors.Is(err, sessions.ErrInvalidSchedule):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		h.log.Error().Err(err).Msg("session operation failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
	}
}

// CreateSession handles shadow-session creation.
// POST /api/sessions
func (h *SessionHandlers) CreateSession(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create session request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.service.Create(c.Request.Context(), uid, req.Title, req.Description, req.StartsAt, req.EndsAt)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.log.Info().Str("session_id", session.ID).Str("host_id", uid).Msg("session created")
	c.JSON(http.StatusCreated, sessionToResponse(session))
}

// GetSession handles fetching session metadata.
// GET /api/sessions/:sessionId
func (h *SessionHandlers) GetSession(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	session, err := h.service.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, sessionToResponse(session))
}

// UpdateSession handles updating session metadata.
// PUT /api/sessions/:sessionId
func (h *SessionHandlers) UpdateSession(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid update session request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.service.Update(c.Request.Context(), uid, c.Param("sessionId"), req.Title, req.Description, req.StartsAt, req.EndsAt)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.log.Info().Str("session_id", session.ID).Msg("session updated")
	c.JSON(http.StatusOK, sessionToResponse(session))
}

// ListUpcoming handles listing the user's upcoming sessions.
// GET /api/sessions
func (h *SessionHandlers) ListUpcoming(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	list, err := h.service.ListUpcoming(c.Request.Context(), uid)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response := make([]SessionResponse, 0, len(list))
	for _, s := range list {
		response = append(response, sessionToResponse(s))
	}

	c.JSON(http.StatusOK, response)
}

// JoinSession handles joining a session's participant list.
// POST /api/sessions/:sessionId/join
func (h *SessionHandlers) JoinSession(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("sessionId")
	if err := h.service.Join(c.Request.Context(), sessionID, uid); err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.log.Info().Str("session_id", sessionID).Str("user_id", uid).Msg("joined session")
	c.JSON(http.StatusOK, gin.H{"message": "joined session"})
}

// LeaveSession handles leaving a session's participant list.
// POST /api/sessions/:sessionId/leave
func (h *SessionHandlers) LeaveSession(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("sessionId")
	if err := h.service.Leave(c.Request.Context(), sessionID, uid); err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.log.Info().Str("session_id", sessionID).Str("user_id", uid).Msg("left session")
	c.JSON(http.StatusOK, gin.H{"message": "left session"})
}

// Invite handles inviting another user to a session.
// POST /api/sessions/:sessionId/invite
func (h *SessionHandlers) Invite(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid invite request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	sessionID := c.Param("sessionId")
	if err := h.service.Invite(c.Request.Context(), sessionID, uid, req.UserID); err != nil {
		h.writeServiceError(c, err)
		return
	}

	h.log.Info().Str("session_id", sessionID).Str("invitee_id", req.UserID).Msg("user invited to session")
	c.JSON(http.StatusCreated, gin.H{"message": "user invited"})
}

// ListParticipants handles listing a session's participants.
// GET /api/sessions/:sessionId/participants
func (h *SessionHandlers) ListParticipants(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	participants, err := h.service.Participants(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	if participants == nil {
		participants = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

// History handles fetching persisted chat messages, oldest first.
// GET /api/sessions/:sessionId/messages?limit=50&before=<messageId>
func (h *SessionHandlers) History(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 200"})
			return
		}
		limit = parsed
	}

	var beforeID *int64
	if raw := c.Query("before"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid before cursor"})
			return
		}
		beforeID = &parsed
	}

	messages, err := h.service.History(c.Request.Context(), c.Param("sessionId"), uid, limit, beforeID)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}

	response := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		response = append(response, MessageResponse{
			ID:        m.ID,
			SessionID: m.SessionID,
			UserID:    m.UserID,
			Body:      m.Body,
			CreatedAt: m.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, response)
}
