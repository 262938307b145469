package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/usersaynoso/shadowme-server/internal/auth"
	"github.com/usersaynoso/shadowme-server/internal/config"
	"github.com/usersaynoso/shadowme-server/internal/core"
	"github.com/usersaynoso/shadowme-server/internal/service/friends"
	"github.com/usersaynoso/shadowme-server/internal/service/sessions"
	"github.com/usersaynoso/shadowme-server/internal/store"
)

// Services groups the business-logic dependencies of the HTTP layer.
type Services struct {
	Auth     *auth.Service
	Friends  *friends.Service
	Sessions *sessions.Service
}

// NewServer builds the HTTP server with all REST routes and the realtime
// endpoint.
func NewServer(hub *core.Hub, svcs Services, st store.Store, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	apiHandlers := NewAPIHandlers(svcs.Auth, logger)
	userHandlers := NewUserHandlers(st, logger)
	friendsHandlers := NewFriendsHandlers(svcs.Friends, st, logger)
	circleHandlers := NewCircleHandlers(st, logger)
	postHandlers := NewPostHandlers(st, logger)
	sessionHandlers := NewSessionHandlers(svcs.Sessions, logger)
	notificationHandlers := NewNotificationHandlers(st, logger)

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	api := router.Group("/api")
	api.POST("/register", apiHandlers.Register)
	api.POST("/login", apiHandlers.Login)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(svcs.Auth, logger))
	{
		authorized.GET("/users/search", userHandlers.SearchUsers)
		authorized.GET("/users/:userId", userHandlers.GetProfile)
		authorized.GET("/users/:userId/posts", postHandlers.ListByAuthor)
		authorized.PUT("/me/profile", userHandlers.UpdateProfile)
		authorized.GET("/me/settings", userHandlers.GetSettings)
		authorized.PUT("/me/settings", userHandlers.UpdateSettings)

		authorized.GET("/friends", friendsHandlers.ListFriends)
		authorized.POST("/friends/requests", friendsHandlers.SendRequest)
		authorized.GET("/friends/requests/incoming", friendsHandlers.ListPendingRequests)
		authorized.POST("/friends/:userId/accept", friendsHandlers.AcceptRequest)
		authorized.DELETE("/friends/:userId/decline", friendsHandlers.DeclineRequest)
		authorized.POST("/friends/:userId/block", friendsHandlers.BlockUser)
		authorized.DELETE("/friends/:userId/unblock", friendsHandlers.UnblockUser)
		authorized.DELETE("/friends/:userId", friendsHandlers.RemoveFriend)

		authorized.POST("/circles", circleHandlers.CreateCircle)
		authorized.GET("/circles", circleHandlers.ListCircles)
		authorized.PUT("/circles/:circleId", circleHandlers.RenameCircle)
		authorized.DELETE("/circles/:circleId", circleHandlers.DeleteCircle)
		authorized.POST("/circles/:circleId/members", circleHandlers.AddMember)
		authorized.GET("/circles/:circleId/members", circleHandlers.ListMembers)
		authorized.DELETE("/circles/:circleId/members/:userId", circleHandlers.RemoveMember)

		authorized.GET("/emotions", postHandlers.ListEmotions)
		authorized.POST("/posts", postHandlers.CreatePost)
		authorized.DELETE("/posts/:postId", postHandlers.DeletePost)
		authorized.GET("/feed", postHandlers.Feed)

		authorized.POST("/sessions", sessionHandlers.CreateSession)
		authorized.GET("/sessions", sessionHandlers.ListUpcoming)
		authorized.GET("/sessions/:sessionId", sessionHandlers.GetSession)
		authorized.PUT("/sessions/:sessionId", sessionHandlers.UpdateSession)
		authorized.POST("/sessions/:sessionId/join", sessionHandlers.JoinSession)
		authorized.POST("/sessions/:sessionId/leave", sessionHandlers.LeaveSession)
		authorized.POST("/sessions/:sessionId/invite", sessionHandlers.Invite)
		authorized.GET("/sessions/:sessionId/participants", sessionHandlers.ListParticipants)
		authorized.GET("/sessions/:sessionId/messages", sessionHandlers.History)

		authorized.GET("/notifications", notificationHandlers.ListNotifications)
		authorized.POST("/notifications/read-all", notificationHandlers.MarkAllRead)
		authorized.POST("/notifications/:notificationId/read", notificationHandlers.MarkRead)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, svcs.Auth, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
