package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/store"
)

const defaultFeedLimit = 20

// PostHandlers provides HTTP handlers for posts, the feed and the emotion
// catalogue.
type PostHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewPostHandlers creates a new post handlers instance.
func NewPostHandlers(st store.Store, logger *zerolog.Logger) *PostHandlers {
	return &PostHandlers{
		store: st,
		log:   logger,
	}
}

// CreatePostRequest represents the create post request body.
type CreatePostRequest struct {
	Body       string  `json:"body" binding:"required,min=1,max=2000"`
	EmotionID  *int64  `json:"emotion_id"`
	Visibility string  `json:"visibility" binding:"required,oneof=public friends circle private"`
	CircleID   *string `json:"circle_id"`
}

// PostResponse represents a post in API responses.
type PostResponse struct {
	ID         string  `json:"id"`
	AuthorID   string  `json:"author_id"`
	Body       string  `json:"body"`
	EmotionID  *int64  `json:"emotion_id,omitempty"`
	Visibility string  `json:"visibility"`
	CircleID   *string `json:"circle_id,omitempty"`
	CreatedAt  string  `json:"created_at"`
}

// EmotionResponse represents an emotion catalogue entry.
type EmotionResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

func postToResponse(p *store.Post) PostResponse {
	return PostResponse{
		ID:         p.ID,
		AuthorID:   p.AuthorID,
		Body:       p.Body,
		EmotionID:  p.EmotionID,
		Visibility: string(p.Visibility),
		CircleID:   p.CircleID,
		CreatedAt:  p.CreatedAt.Format(time.RFC3339),
	}
}

// CreatePost handles post creation.
// POST /api/posts
func (h *PostHandlers) CreatePost(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create post request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	visibility := store.Visibility(req.Visibility)
	if visibility == store.VisibilityCircle {
		if req.CircleID == nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "circle_id is required for circle posts"})
			return
		}
		circle, err := h.store.GetCircleByID(c.Request.Context(), *req.CircleID)
		if err != nil || circle.OwnerID != uid {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the circle owner"})
			return
		}
	} else {
		req.CircleID = nil
	}

	post, err := h.store.CreatePost(c.Request.Context(), &store.Post{
		AuthorID:   uid,
		Body:       strings.TrimSpace(req.Body),
		EmotionID:  req.EmotionID,
		Visibility: visibility,
		CircleID:   req.CircleID,
	})
	if err != nil {
		h.log.Error().Err(err).Str("author_id", uid).Msg("failed to create post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("post_id", post.ID).Str("author_id", uid).Msg("post created")
	c.JSON(http.StatusCreated, postToResponse(post))
}

// DeletePost handles deleting one of the author's own posts.
// DELETE /api/posts/:postId
func (h *PostHandlers) DeletePost(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	post, err := h.store.GetPostByID(c.Request.Context(), c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "post not found"})
		return
	}
	if post.AuthorID != uid {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not the post author"})
		return
	}

	if err := h.store.DeletePost(c.Request.Context(), post.ID); err != nil {
		h.log.Error().Err(err).Str("post_id", post.ID).Msg("failed to delete post")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "post deleted"})
}

// Feed handles the personalized feed.
// GET /api/feed?limit=20&before=<postId>
func (h *PostHandlers) Feed(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	limit := defaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 100 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 100"})
			return
		}
		limit = parsed
	}

	var beforeID *string
	if raw := c.Query("before"); raw != "" {
		beforeID = &raw
	}

	posts, err := h.store.ListFeed(c.Request.Context(), uid, limit, beforeID)
	if err != nil {
		h.log.Error().Err(err).Str("viewer_id", uid).Msg("failed to load feed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		response = append(response, postToResponse(p))
	}

	c.JSON(http.StatusOK, response)
}

// ListByAuthor handles listing one user's posts.
// GET /api/users/:userId/posts
func (h *PostHandlers) ListByAuthor(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	authorID := c.Param("userId")
	posts, err := h.store.ListPostsByAuthor(c.Request.Context(), authorID, defaultFeedLimit)
	if err != nil {
		h.log.Error().Err(err).Str("author_id", authorID).Msg("failed to list posts")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		response = append(response, postToResponse(p))
	}

	c.JSON(http.StatusOK, response)
}

// ListEmotions handles listing the emotion catalogue.
// GET /api/emotions
func (h *PostHandlers) ListEmotions(c *gin.Context) {
	emotions, err := h.store.ListEmotions(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list emotions")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]EmotionResponse, 0, len(emotions))
	for _, e := range emotions {
		response = append(response, EmotionResponse{ID: e.ID, Name: e.Name, Color: e.Color})
	}

	c.JSON(http.StatusOK, response)
}
