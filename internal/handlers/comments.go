package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/telemetry"
	"github.com/communehq/commune/internal/thread"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// Comment list views
const (
	ViewFlat = "flat"
	ViewTree = "tree"
)

// CreateCommentRequest is the body of CreateComment. ParentID may name any
// comment on the same post, at any depth.
type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required,min=1,max=2000"`
	ParentID *string `json:"parent_id,omitempty"`
}

// CreateComment adds a comment or reply to a post
// POST /api/v1/posts/:id/comments
func (h *Handlers) CreateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		util.RespondValidationError(c, "content", "invalid input")
		return
	}

	postID := c.Param("id")
	ctx, span := telemetry.TraceComment(c.Request.Context(), "create", postID)
	var err error
	defer func() { telemetry.End(span, err) }()

	post, err := h.store.Posts().GetPost(ctx, postID)
	if err != nil {
		respondError(c, err, "post")
		return
	}

	var parent *models.Comment
	if req.ParentID != nil && *req.ParentID != "" {
		parent, err = h.store.Comments().GetComment(ctx, *req.ParentID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			respondError(c, err, "comment")
			return
		}
		if err != nil || parent.PostID != postID {
			err = nil
			util.RespondValidationError(c, "parent_id", "parent comment must belong to the same post")
			return
		}
	} else {
		req.ParentID = nil
	}

	comment := &models.Comment{
		PostID:   postID,
		UserID:   userID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err = h.store.Comments().CreateComment(ctx, comment); err != nil {
		respondError(c, err, "comment")
		return
	}
	created, err := h.store.Comments().GetComment(ctx, comment.ID)
	if err != nil {
		respondError(c, err, "comment")
		return
	}

	metrics.Get().CommentsTotal.WithLabelValues("create").Inc()
	h.publish(ctx, realtime.TableComments, realtime.Insert, created, "")

	if parent != nil {
		h.notify(ctx, parent.UserID, userID, models.NotificationReply, models.TargetComment, created.ID)
		if post.UserID != parent.UserID {
			h.notify(ctx, post.UserID, userID, models.NotificationComment, models.TargetPost, post.ID)
		}
	} else {
		h.notify(ctx, post.UserID, userID, models.NotificationComment, models.TargetPost, post.ID)
	}

	logger.Log.Info("Comment created",
		logger.WithUserID(userID),
		logger.WithPostID(postID),
		logger.WithCommentID(created.ID),
	)
	c.JSON(http.StatusCreated, gin.H{"comment": created})
}

// GetComments returns a post's comments, either flat in creation order or
// nested as a tree
// GET /api/v1/posts/:id/comments?view=flat|tree
func (h *Handlers) GetComments(c *gin.Context) {
	postID := c.Param("id")
	view := c.DefaultQuery("view", ViewFlat)
	if view != ViewFlat && view != ViewTree {
		util.RespondValidationError(c, "view", "invalid input")
		return
	}

	ctx, span := telemetry.TraceComment(c.Request.Context(), "list", postID)
	var err error
	defer func() { telemetry.End(span, err) }()

	if _, err = h.store.Posts().GetPost(ctx, postID); err != nil {
		respondError(c, err, "post")
		return
	}
	comments, err := h.commentsWithReactions(ctx, postID)
	if err != nil {
		respondError(c, err, "comment")
		return
	}

	if view == ViewTree {
		roots := thread.BuildTree(comments)
		c.JSON(http.StatusOK, gin.H{
			"view":     ViewTree,
			"comments": roots,
			"count":    thread.Count(roots),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"view":     ViewFlat,
		"comments": comments,
		"count":    len(comments),
	})
}

func (h *Handlers) commentsWithReactions(ctx context.Context, postID string) ([]models.Comment, error) {
	comments, err := h.store.Comments().ListByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []models.Comment{}
	}
	ids := make([]string, 0, len(comments))
	for _, cm := range comments {
		ids = append(ids, cm.ID)
	}
	counts, err := h.store.Reactions().Counts(ctx, models.TargetComment, ids)
	if err != nil {
		logger.WarnWithFields("Failed to count comment reactions", err)
		return comments, nil
	}
	for i := range comments {
		comments[i].Reactions = counts[comments[i].ID]
	}
	return comments, nil
}

// UpdateComment edits the caller's comment within the edit window
// PUT /api/v1/comments/:id
func (h *Handlers) UpdateComment(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content" binding:"required,min=1,max=2000"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	comment, err := h.store.Comments().GetComment(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "comment")
		return
	}
	ctx, span := telemetry.TraceComment(ctx, "update", comment.PostID)
	defer func() { telemetry.End(span, err) }()

	if comment.UserID != userID {
		respondError(c, errNotOwner, "comment")
		return
	}
	if comment.IsDeleted {
		util.RespondNotFound(c, "comment")
		return
	}
	if h.now().Sub(comment.CreatedAt) > h.editWindow {
		respondError(c, errEditWindowClosed, "comment")
		return
	}

	if err = h.store.Comments().UpdateContent(ctx, comment.ID, strings.TrimSpace(req.Content)); err != nil {
		respondError(c, err, "comment")
		return
	}
	updated, err := h.store.Comments().GetComment(ctx, comment.ID)
	if err != nil {
		respondError(c, err, "comment")
		return
	}

	metrics.Get().CommentsTotal.WithLabelValues("update").Inc()
	h.publish(ctx, realtime.TableComments, realtime.Update, updated, "")
	c.JSON(http.StatusOK, gin.H{"comment": updated})
}

// DeleteComment removes a comment. A comment with replies is blanked and
// kept so the thread below it stays attached; a leaf is removed outright.
// DELETE /api/v1/comments/:id
func (h *Handlers) DeleteComment(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	comment, err := h.store.Comments().GetComment(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "comment")
		return
	}
	ctx, span := telemetry.TraceComment(ctx, "delete", comment.PostID)
	defer func() { telemetry.End(span, err) }()

	if comment.UserID != user.ID && !user.IsAdmin {
		respondError(c, errNotDeleter, "comment")
		return
	}

	hasReplies, err := h.store.Comments().HasReplies(ctx, comment.ID)
	if err != nil {
		respondError(c, err, "comment")
		return
	}

	mode := "hard"
	if hasReplies {
		mode = "soft"
		err = h.store.Comments().SoftDelete(ctx, comment.ID)
	} else {
		err = h.store.Comments().HardDelete(ctx, comment.ID)
	}
	if err != nil {
		respondError(c, err, "comment")
		return
	}

	metrics.Get().CommentsTotal.WithLabelValues("delete").Inc()
	if hasReplies {
		if blanked, gerr := h.store.Comments().GetComment(ctx, comment.ID); gerr == nil {
			h.publish(ctx, realtime.TableComments, realtime.Update, blanked, "")
		}
	} else {
		h.publish(ctx, realtime.TableComments, realtime.Delete, gin.H{
			"id":        comment.ID,
			"post_id":   comment.PostID,
			"parent_id": comment.ParentID,
		}, "")
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": comment.ID, "mode": mode})
}

// GetComment returns one comment
// GET /api/v1/comments/:id
func (h *Handlers) GetComment(c *gin.Context) {
	comment, err := h.store.Comments().GetComment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "comment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comment": comment})
}
