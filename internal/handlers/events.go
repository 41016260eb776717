package handlers

import (
	"net/http"
	"time"

	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/realtime"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// CreateEventRequest is the body of CreateEvent. EndsAt defaults to an hour
// after StartsAt.
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required,min=3,max=120"`
	Description string    `json:"description" binding:"max=5000"`
	Location    string    `json:"location" binding:"max=200"`
	StartsAt    time.Time `json:"starts_at" binding:"required"`
	EndsAt      time.Time `json:"ends_at"`
}

// CreateEvent schedules an event in a community the caller belongs to
// POST /api/v1/communities/:id/events
func (h *Handlers) CreateEvent(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !bindJSON(c, &req) {
		return
	}
	if !h.requireMember(c, community.ID, userID) {
		return
	}
	if !req.EndsAt.IsZero() && req.EndsAt.Before(req.StartsAt) {
		util.RespondValidationError(c, "ends_at", "invalid input")
		return
	}

	event := &models.Event{
		CommunityID: community.ID,
		OrganizerID: userID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartsAt:    req.StartsAt.UTC(),
		EndsAt:      req.EndsAt.UTC(),
	}
	ctx := c.Request.Context()
	if err := h.store.Events().CreateEvent(ctx, event); err != nil {
		respondError(c, err, "event")
		return
	}
	h.publish(ctx, realtime.TableEvents, realtime.Insert, event, "")
	c.JSON(http.StatusCreated, gin.H{"event": event})
}

// ListEvents lists upcoming events across communities, or one community's
// with ?community_id=
// GET /api/v1/events
func (h *Handlers) ListEvents(c *gin.Context) {
	limit, _ := util.ParsePagination(c)
	h.listEvents(c, c.Query("community_id"), limit)
}

// ListCommunityEvents lists a community's upcoming events
// GET /api/v1/communities/:id/events
func (h *Handlers) ListCommunityEvents(c *gin.Context) {
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	limit, _ := util.ParsePagination(c)
	h.listEvents(c, community.ID, limit)
}

func (h *Handlers) listEvents(c *gin.Context, communityID string, limit int) {
	events, err := h.store.Events().ListUpcoming(c.Request.Context(), communityID, h.now(), limit)
	if err != nil {
		respondError(c, err, "event")
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// RSVPEvent records the caller's attendance
// POST /api/v1/events/:id/rsvp
func (h *Handlers) RSVPEvent(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status" binding:"required,oneof=going interested not_going"`
	}
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	eventID := c.Param("id")
	if _, err := h.store.Events().GetEvent(ctx, eventID); err != nil {
		respondError(c, err, "event")
		return
	}
	if err := h.store.Events().SetRSVP(ctx, eventID, userID, req.Status); err != nil {
		respondError(c, err, "event")
		return
	}
	event, err := h.store.Events().GetEvent(ctx, eventID)
	if err != nil {
		respondError(c, err, "event")
		return
	}
	h.publish(ctx, realtime.TableEvents, realtime.Update, event, "")
	c.JSON(http.StatusOK, gin.H{"status": req.Status, "event": event})
}
