package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/richtext"
	"github.com/communehq/commune/internal/search"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// lookupCommunity resolves :id as a community ID, falling back to a slug.
func (h *Handlers) lookupCommunity(c *gin.Context) (*models.Community, bool) {
	ref := c.Param("id")
	communities := h.store.Communities()
	community, err := communities.GetCommunity(c.Request.Context(), ref)
	if errors.Is(err, repository.ErrNotFound) {
		community, err = communities.GetCommunityBySlug(c.Request.Context(), strings.ToLower(ref))
	}
	if err != nil {
		respondError(c, err, "community")
		return nil, false
	}
	return community, true
}

// requireMember answers 403 unless userID belongs to the community.
func (h *Handlers) requireMember(c *gin.Context, communityID, userID string) bool {
	member, err := h.store.Communities().IsMember(c.Request.Context(), communityID, userID)
	if err != nil {
		respondError(c, err, "community")
		return false
	}
	if !member {
		util.RespondForbidden(c, "forbidden")
		return false
	}
	return true
}

// CreateCommunityRequest is the body of CreateCommunity
type CreateCommunityRequest struct {
	Name        string   `json:"name" binding:"required,min=3,max=80"`
	Slug        string   `json:"slug" binding:"omitempty,min=3,max=40"`
	Description string   `json:"description" binding:"max=2000"`
	Tags        []string `json:"tags" binding:"max=10"`
}

// CreateCommunity creates a community owned by the caller
// POST /api/v1/communities
func (h *Handlers) CreateCommunity(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	var req CreateCommunityRequest
	if !bindJSON(c, &req) {
		return
	}

	slug := richtext.Slug(req.Slug)
	if slug == "" {
		slug = richtext.Slug(req.Name)
	}
	if len(slug) < 3 {
		util.RespondValidationError(c, "slug", "invalid input")
		return
	}

	tags := make(models.StringArray, 0, len(req.Tags))
	for _, t := range req.Tags {
		if t = normalizeTag(t); t != "" && !tags.Contains(t) {
			tags = append(tags, t)
		}
	}

	community := &models.Community{
		Slug:        slug,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		OwnerID:     userID,
		Tags:        tags,
	}
	ctx := c.Request.Context()
	if err := h.store.Communities().CreateCommunity(ctx, community); err != nil {
		respondError(c, err, "community")
		return
	}
	created, err := h.store.Communities().GetCommunity(ctx, community.ID)
	if err != nil {
		respondError(c, err, "community")
		return
	}
	h.indexCommunity(created)

	c.JSON(http.StatusCreated, gin.H{"community": created})
}

func (h *Handlers) indexCommunity(community *models.Community) {
	if h.indexer == nil {
		return
	}
	doc := search.CommunityToDoc(community)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.indexer.IndexCommunity(ctx, doc); err != nil {
			logger.WarnWithFields("Failed to index community", err)
		}
	}()
}

// GetCommunity returns a community by ID or slug
// GET /api/v1/communities/:id
func (h *Handlers) GetCommunity(c *gin.Context) {
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	resp := gin.H{"community": community, "is_member": false}
	if userID := util.OptionalUserID(c); userID != "" {
		member, err := h.store.Communities().IsMember(c.Request.Context(), community.ID, userID)
		if err == nil {
			resp["is_member"] = member
		}
	}
	c.JSON(http.StatusOK, resp)
}

// ListCommunities lists communities, optionally those carrying ?tag=
// GET /api/v1/communities
func (h *Handlers) ListCommunities(c *gin.Context) {
	limit, offset := util.ParsePagination(c)
	communities, err := h.store.Communities().ListCommunities(c.Request.Context(), normalizeTag(c.Query("tag")), limit, offset)
	if err != nil {
		respondError(c, err, "community")
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": communities, "limit": limit, "offset": offset})
}

// JoinCommunity adds the caller as a member
// POST /api/v1/communities/:id/join
func (h *Handlers) JoinCommunity(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	if err := h.store.Communities().Join(c.Request.Context(), community.ID, userID); err != nil {
		respondError(c, err, "community")
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_member": true, "community_id": community.ID})
}

// LeaveCommunity removes the caller's membership. Owners cannot leave.
// POST /api/v1/communities/:id/leave
func (h *Handlers) LeaveCommunity(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	if err := h.store.Communities().Leave(c.Request.Context(), community.ID, userID); err != nil {
		respondError(c, err, "community")
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_member": false, "community_id": community.ID})
}

// GetCommunityMembers lists members with their roles
// GET /api/v1/communities/:id/members
func (h *Handlers) GetCommunityMembers(c *gin.Context) {
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	members, err := h.store.Communities().Members(c.Request.Context(), community.ID, limit, offset)
	if err != nil {
		respondError(c, err, "community")
		return
	}
	for _, m := range members {
		if m.User != nil {
			m.User = publicProfile(m.User)
		}
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "limit": limit, "offset": offset})
}
