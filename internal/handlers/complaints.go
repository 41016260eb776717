package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/communehq/commune/internal/email"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// FileComplaintRequest is the body of FileComplaint
type FileComplaintRequest struct {
	TargetType  string `json:"target_type" binding:"required,oneof=post comment user"`
	TargetID    string `json:"target_id" binding:"required"`
	Reason      string `json:"reason" binding:"required,oneof=spam harassment inappropriate misinformation other"`
	Description string `json:"description" binding:"max=2000"`
}

// FileComplaint reports a post, comment or user to the moderators
// POST /api/v1/complaints
func (h *Handlers) FileComplaint(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req FileComplaintRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	if err := h.complaintTargetExists(ctx, req.TargetType, req.TargetID); err != nil {
		respondError(c, err, req.TargetType)
		return
	}

	complaint := &models.Complaint{
		ReporterID:  user.ID,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Reason:      req.Reason,
		Description: req.Description,
	}
	if err := h.store.Complaints().CreateComplaint(ctx, complaint); err != nil {
		respondError(c, err, "complaint")
		return
	}
	metrics.Get().ComplaintsFiled.WithLabelValues(req.Reason).Inc()

	logger.Log.Info("Complaint filed",
		logger.WithUserID(user.ID),
		zap.String("complaint_id", complaint.ID),
		zap.String("target_type", req.TargetType),
		zap.String("reason", req.Reason),
	)
	h.acknowledgeComplaint(user, complaint)

	c.JSON(http.StatusCreated, gin.H{"complaint": complaint})
}

func (h *Handlers) complaintTargetExists(ctx context.Context, targetType, id string) error {
	var err error
	switch targetType {
	case models.TargetPost:
		_, err = h.store.Posts().GetPost(ctx, id)
	case models.TargetComment:
		_, err = h.store.Comments().GetComment(ctx, id)
	case models.TargetUser:
		_, err = h.store.Users().GetUser(ctx, id)
	}
	return err
}

// acknowledgeComplaint emails the reporter in the background.
func (h *Handlers) acknowledgeComplaint(reporter *models.User, complaint *models.Complaint) {
	if h.email == nil || reporter.Email == "" {
		return
	}
	notice := email.ComplaintNotice{
		To:          reporter.Email,
		Locale:      reporter.Locale,
		ComplaintID: complaint.ID,
		TargetType:  complaint.TargetType,
		Reason:      complaint.Reason,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.email.SendComplaintReceived(ctx, notice); err != nil {
			logger.Log.Warn("Failed to send complaint acknowledgement",
				zap.String("complaint_id", notice.ComplaintID),
				zap.Error(err),
			)
		}
	}()
}

// ListComplaints lists complaints for moderators, ?status=open by default
// GET /api/v1/admin/complaints
func (h *Handlers) ListComplaints(c *gin.Context) {
	limit, offset := util.ParsePagination(c)
	status := c.DefaultQuery("status", models.ComplaintOpen)
	if status == "all" {
		status = ""
	}
	complaints, err := h.store.Complaints().ListComplaints(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, err, "complaint")
		return
	}
	c.JSON(http.StatusOK, gin.H{"complaints": complaints, "limit": limit, "offset": offset})
}

// ResolveComplaint closes a complaint as resolved or dismissed
// POST /api/v1/admin/complaints/:id/resolve
func (h *Handlers) ResolveComplaint(c *gin.Context) {
	adminID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=resolved dismissed"`
	}
	if !bindJSON(c, &req) {
		return
	}

	complaint, err := h.store.Complaints().Resolve(c.Request.Context(), c.Param("id"), adminID, req.Status)
	if err != nil {
		respondError(c, err, "complaint")
		return
	}
	logger.Log.Info("Complaint resolved",
		logger.WithUserID(adminID),
		zap.String("complaint_id", complaint.ID),
		zap.String("status", complaint.Status),
	)
	c.JSON(http.StatusOK, gin.H{"complaint": complaint})
}
