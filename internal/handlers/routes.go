package handlers

import (
	"github.com/communehq/commune/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RouteOptions carries the route-specific middleware. Nil limiters are
// skipped.
type RouteOptions struct {
	// Realtime serves GET /realtime. Omitted when nil.
	Realtime gin.HandlerFunc

	AuthLimiter   gin.HandlerFunc
	UploadLimiter gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes mounts every API endpoint on api, normally /api/v1
func (h *Handlers) RegisterRoutes(api *gin.RouterGroup, opts RouteOptions) {
	requireAuth := middleware.RequireAuth(h.auth)
	optionalAuth := middleware.OptionalAuth(h.auth)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", chain(opts.AuthLimiter, h.Register)...)
		authGroup.POST("/login", chain(opts.AuthLimiter, h.Login)...)
		authGroup.GET("/google", h.GoogleLogin)
		authGroup.GET("/google/callback", h.GoogleCallback)

		authGroup.GET("/me", requireAuth, h.Me)
		authGroup.POST("/2fa/enable", requireAuth, h.EnableTwoFactor)
		authGroup.POST("/2fa/verify", chain(opts.AuthLimiter, requireAuth, h.VerifyTwoFactor)...)
		authGroup.POST("/2fa/disable", chain(opts.AuthLimiter, requireAuth, h.DisableTwoFactor)...)
	}

	users := api.Group("/users")
	{
		users.PUT("/me", requireAuth, h.UpdateProfile)
		users.GET("/me/settings", requireAuth, h.GetSettings)
		users.PUT("/me/settings", requireAuth, h.UpdateSettings)
		users.POST("/me/avatar", chain(requireAuth, opts.UploadLimiter, h.UploadAvatar)...)
		users.GET("/me/communities", requireAuth, h.MyCommunities)

		users.GET("/:id", optionalAuth, h.GetProfile)
		users.GET("/:id/posts", optionalAuth, h.GetUserPosts)
		users.GET("/:id/followers", h.GetFollowers)
		users.GET("/:id/following", h.GetFollowing)
		users.GET("/:id/is-following", requireAuth, h.IsFollowing)
		users.POST("/:id/follow", requireAuth, h.FollowUser)
		users.DELETE("/:id/follow", requireAuth, h.UnfollowUser)
	}

	api.POST("/media", chain(requireAuth, opts.UploadLimiter, h.UploadMedia)...)

	api.GET("/feed", optionalAuth, h.GetFeed)
	api.GET("/hashtags/:tag/posts", optionalAuth, h.GetHashtagFeed)

	posts := api.Group("/posts")
	{
		posts.POST("", requireAuth, h.CreatePost)
		posts.GET("/:id", optionalAuth, h.GetPost)
		posts.PUT("/:id", requireAuth, h.UpdatePost)
		posts.DELETE("/:id", requireAuth, h.DeletePost)

		posts.GET("/:id/comments", optionalAuth, h.GetComments)
		posts.POST("/:id/comments", requireAuth, h.CreateComment)

		posts.GET("/:id/reactions", h.GetPostReactions)
		posts.PUT("/:id/reactions", requireAuth, h.ReactToPost)
		posts.DELETE("/:id/reactions", requireAuth, h.UnreactPost)
	}

	comments := api.Group("/comments")
	{
		comments.GET("/:id", h.GetComment)
		comments.PUT("/:id", requireAuth, h.UpdateComment)
		comments.DELETE("/:id", requireAuth, h.DeleteComment)

		comments.GET("/:id/reactions", h.GetCommentReactions)
		comments.PUT("/:id/reactions", requireAuth, h.ReactToComment)
		comments.DELETE("/:id/reactions", requireAuth, h.UnreactComment)
	}

	communities := api.Group("/communities")
	{
		communities.GET("", h.ListCommunities)
		communities.POST("", requireAuth, h.CreateCommunity)
		communities.GET("/:id", optionalAuth, h.GetCommunity)
		communities.POST("/:id/join", requireAuth, h.JoinCommunity)
		communities.POST("/:id/leave", requireAuth, h.LeaveCommunity)
		communities.GET("/:id/members", h.GetCommunityMembers)
		communities.GET("/:id/posts", optionalAuth, h.GetCommunityFeed)

		communities.GET("/:id/events", h.ListCommunityEvents)
		communities.POST("/:id/events", requireAuth, h.CreateEvent)
		communities.GET("/:id/services", h.ListServices)
		communities.POST("/:id/services", requireAuth, h.CreateService)
		communities.GET("/:id/donations", optionalAuth, h.ListDonations)
		communities.POST("/:id/donations", requireAuth, h.CreateDonation)
	}

	events := api.Group("/events")
	{
		events.GET("", h.ListEvents)
		events.POST("/:id/rsvp", requireAuth, h.RSVPEvent)
	}

	notifications := api.Group("/notifications")
	notifications.Use(requireAuth)
	{
		notifications.GET("", h.GetNotifications)
		notifications.GET("/unread-count", h.GetUnreadCount)
		notifications.POST("/read", h.MarkNotificationsRead)
	}

	api.POST("/complaints", requireAuth, h.FileComplaint)

	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.RequireAdmin())
	{
		admin.GET("/complaints", h.ListComplaints)
		admin.POST("/complaints/:id/resolve", h.ResolveComplaint)
	}

	searchGroup := api.Group("/search")
	{
		searchGroup.GET("/posts", optionalAuth, h.SearchPosts)
		searchGroup.GET("/communities", h.SearchCommunities)
	}

	if opts.Realtime != nil {
		api.GET("/realtime", requireAuth, opts.Realtime)
	}
}
