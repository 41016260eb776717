package handlers

import (
	"context"
	"net/http"

	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// reactionTarget loads the post or comment being reacted to and returns its
// author and the post it lives on.
func (h *Handlers) reactionTarget(ctx context.Context, targetType, id string) (ownerID, postID string, err error) {
	if targetType == models.TargetComment {
		comment, err := h.store.Comments().GetComment(ctx, id)
		if err != nil {
			return "", "", err
		}
		return comment.UserID, comment.PostID, nil
	}
	post, err := h.store.Posts().GetPost(ctx, id)
	if err != nil {
		return "", "", err
	}
	return post.UserID, post.ID, nil
}

// ReactToPost sets the caller's reaction on a post
// PUT /api/v1/posts/:id/reactions
func (h *Handlers) ReactToPost(c *gin.Context) { h.react(c, models.TargetPost) }

// ReactToComment sets the caller's reaction on a comment
// PUT /api/v1/comments/:id/reactions
func (h *Handlers) ReactToComment(c *gin.Context) { h.react(c, models.TargetComment) }

// UnreactPost removes the caller's reaction from a post
// DELETE /api/v1/posts/:id/reactions
func (h *Handlers) UnreactPost(c *gin.Context) { h.unreact(c, models.TargetPost) }

// UnreactComment removes the caller's reaction from a comment
// DELETE /api/v1/comments/:id/reactions
func (h *Handlers) UnreactComment(c *gin.Context) { h.unreact(c, models.TargetComment) }

// GetPostReactions returns {kind: count} for a post
// GET /api/v1/posts/:id/reactions
func (h *Handlers) GetPostReactions(c *gin.Context) { h.reactionCounts(c, models.TargetPost) }

// GetCommentReactions returns {kind: count} for a comment
// GET /api/v1/comments/:id/reactions
func (h *Handlers) GetCommentReactions(c *gin.Context) { h.reactionCounts(c, models.TargetComment) }

type reactionEvent struct {
	UserID     string         `json:"user_id"`
	TargetType string         `json:"target_type"`
	TargetID   string         `json:"target_id"`
	PostID     string         `json:"post_id"`
	Kind       string         `json:"kind,omitempty"`
	Counts     map[string]int `json:"counts"`
}

func (h *Handlers) react(c *gin.Context, targetType string) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Kind string `json:"kind" binding:"required"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !models.ValidReactionKind(req.Kind) {
		util.RespondValidationError(c, "kind", "invalid input")
		return
	}

	ctx := c.Request.Context()
	targetID := c.Param("id")
	ownerID, postID, err := h.reactionTarget(ctx, targetType, targetID)
	if err != nil {
		respondError(c, err, targetType)
		return
	}

	created, err := h.store.Reactions().SetReaction(ctx, userID, targetType, targetID, req.Kind)
	if err != nil {
		respondError(c, err, "reaction")
		return
	}
	counts := h.countsFor(ctx, targetType, targetID)

	metrics.Get().ReactionsTotal.WithLabelValues(targetType, req.Kind).Inc()
	changeType := realtime.Update
	if created {
		changeType = realtime.Insert
		h.notify(ctx, ownerID, userID, models.NotificationReaction, targetType, targetID)
	}
	h.publish(ctx, realtime.TableReactions, changeType, reactionEvent{
		UserID: userID, TargetType: targetType, TargetID: targetID, PostID: postID, Kind: req.Kind, Counts: counts,
	}, "")

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"kind": req.Kind, "reactions": counts})
}

func (h *Handlers) unreact(c *gin.Context, targetType string) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	targetID := c.Param("id")
	_, postID, err := h.reactionTarget(ctx, targetType, targetID)
	if err != nil {
		respondError(c, err, targetType)
		return
	}

	if err := h.store.Reactions().DeleteReaction(ctx, userID, targetType, targetID); err != nil {
		respondError(c, err, "reaction")
		return
	}
	counts := h.countsFor(ctx, targetType, targetID)
	h.publish(ctx, realtime.TableReactions, realtime.Delete, reactionEvent{
		UserID: userID, TargetType: targetType, TargetID: targetID, PostID: postID, Counts: counts,
	}, "")
	c.JSON(http.StatusOK, gin.H{"reactions": counts})
}

func (h *Handlers) reactionCounts(c *gin.Context, targetType string) {
	ctx := c.Request.Context()
	targetID := c.Param("id")
	if _, _, err := h.reactionTarget(ctx, targetType, targetID); err != nil {
		respondError(c, err, targetType)
		return
	}
	resp := gin.H{"reactions": h.countsFor(ctx, targetType, targetID)}
	if viewerID := util.OptionalUserID(c); viewerID != "" {
		if r, err := h.store.Reactions().GetUserReaction(ctx, viewerID, targetType, targetID); err == nil {
			resp["my_reaction"] = r.Kind
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handlers) countsFor(ctx context.Context, targetType, targetID string) map[string]int {
	all, err := h.store.Reactions().Counts(ctx, targetType, []string{targetID})
	if err != nil || all[targetID] == nil {
		return map[string]int{}
	}
	return all[targetID]
}
