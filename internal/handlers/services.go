package handlers

import (
	"net/http"

	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// CreateService lists something the caller offers to a community
// POST /api/v1/communities/:id/services
func (h *Handlers) CreateService(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	var req struct {
		Name        string `json:"name" binding:"required,min=2,max=120"`
		Description string `json:"description" binding:"max=2000"`
		Contact     string `json:"contact" binding:"max=200"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if !h.requireMember(c, community.ID, userID) {
		return
	}

	service := &models.Service{
		CommunityID: community.ID,
		ProviderID:  userID,
		Name:        req.Name,
		Description: req.Description,
		Contact:     req.Contact,
	}
	if err := h.store.Services().CreateService(c.Request.Context(), service); err != nil {
		respondError(c, err, "service")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"service": service})
}

// ListServices lists a community's services
// GET /api/v1/communities/:id/services
func (h *Handlers) ListServices(c *gin.Context) {
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	services, err := h.store.Services().ListByCommunity(c.Request.Context(), community.ID, limit, offset)
	if err != nil {
		respondError(c, err, "service")
		return
	}
	for _, s := range services {
		if s.Provider != nil {
			s.Provider = publicProfile(s.Provider)
		}
	}
	c.JSON(http.StatusOK, gin.H{"services": services, "limit": limit, "offset": offset})
}
