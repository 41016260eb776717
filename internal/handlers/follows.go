package handlers

import (
	"net/http"

	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// FollowUser follows the user named by :id
// POST /api/v1/users/:id/follow
func (h *Handlers) FollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	target, ok := h.lookupUser(c)
	if !ok {
		return
	}
	if target.ID == userID {
		util.RespondBadRequest(c, "you cannot follow yourself")
		return
	}

	if err := h.store.Users().CreateFollow(c.Request.Context(), userID, target.ID); err != nil {
		respondError(c, err, "follow")
		return
	}
	metrics.Get().FollowsTotal.WithLabelValues("follow").Inc()
	h.notify(c.Request.Context(), target.ID, userID, models.NotificationFollow, models.TargetUser, userID)

	c.JSON(http.StatusOK, gin.H{"following": true, "user_id": target.ID})
}

// UnfollowUser removes the follow edge to :id
// DELETE /api/v1/users/:id/follow
func (h *Handlers) UnfollowUser(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	target, ok := h.lookupUser(c)
	if !ok {
		return
	}

	if err := h.store.Users().DeleteFollow(c.Request.Context(), userID, target.ID); err != nil {
		respondError(c, err, "follow")
		return
	}
	metrics.Get().FollowsTotal.WithLabelValues("unfollow").Inc()
	c.JSON(http.StatusOK, gin.H{"following": false, "user_id": target.ID})
}

// IsFollowing reports whether the caller follows :id
// GET /api/v1/users/:id/is-following
func (h *Handlers) IsFollowing(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	target, ok := h.lookupUser(c)
	if !ok {
		return
	}
	following, err := h.store.Users().IsFollowing(c.Request.Context(), userID, target.ID)
	if err != nil {
		respondError(c, err, "follow")
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// GetFollowers lists who follows :id
// GET /api/v1/users/:id/followers
func (h *Handlers) GetFollowers(c *gin.Context) {
	target, ok := h.lookupUser(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	users, err := h.store.Users().GetFollowers(c.Request.Context(), target.ID, limit, offset)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": publicProfiles(users), "limit": limit, "offset": offset})
}

// GetFollowing lists who :id follows
// GET /api/v1/users/:id/following
func (h *Handlers) GetFollowing(c *gin.Context) {
	target, ok := h.lookupUser(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	users, err := h.store.Users().GetFollowing(c.Request.Context(), target.ID, limit, offset)
	if err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": publicProfiles(users), "limit": limit, "offset": offset})
}

func publicProfiles(users []*models.User) []*models.User {
	out := make([]*models.User, 0, len(users))
	for _, u := range users {
		out = append(out, publicProfile(u))
	}
	return out
}
