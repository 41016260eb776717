package handlers

import (
	"net/http"
	"strings"

	"github.com/communehq/commune/internal/metrics"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

// CreateDonation records a pledge to a community. No payment is taken.
// POST /api/v1/communities/:id/donations
func (h *Handlers) CreateDonation(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	var req struct {
		AmountCents int64  `json:"amount_cents" binding:"required,gt=0"`
		Currency    string `json:"currency" binding:"omitempty,len=3,alpha"`
		Message     string `json:"message" binding:"max=500"`
		Anonymous   bool   `json:"anonymous"`
	}
	if !bindJSON(c, &req) {
		return
	}

	donation := &models.Donation{
		CommunityID: community.ID,
		DonorID:     userID,
		AmountCents: req.AmountCents,
		Currency:    strings.ToUpper(req.Currency),
		Message:     req.Message,
		Anonymous:   req.Anonymous,
	}
	if err := h.store.Donations().CreateDonation(c.Request.Context(), donation); err != nil {
		respondError(c, err, "donation")
		return
	}
	metrics.Get().DonationsPledged.WithLabelValues(donation.Currency).Add(float64(donation.AmountCents))
	c.JSON(http.StatusCreated, gin.H{"donation": donation})
}

// ListDonations lists a community's pledges with per-currency totals
// GET /api/v1/communities/:id/donations
func (h *Handlers) ListDonations(c *gin.Context) {
	community, ok := h.lookupCommunity(c)
	if !ok {
		return
	}
	limit, offset := util.ParsePagination(c)
	ctx := c.Request.Context()

	donations, err := h.store.Donations().ListByCommunity(ctx, community.ID, limit, offset)
	if err != nil {
		respondError(c, err, "donation")
		return
	}
	totals, err := h.store.Donations().Totals(ctx, community.ID)
	if err != nil {
		respondError(c, err, "donation")
		return
	}

	viewerID := util.OptionalUserID(c)
	for _, d := range donations {
		if d.Anonymous && d.DonorID != viewerID {
			d.DonorID = ""
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"donations": donations,
		"totals":    totals,
		"limit":     limit,
		"offset":    offset,
	})
}
