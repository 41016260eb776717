package repository

import (
	"context"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// DonationTotals sums pledges per currency.
type DonationTotals struct {
	Count   int64            `json:"count"`
	ByCents map[string]int64 `json:"totals_cents"`
}

// DonationRepository records donation pledges. No payment is processed.
type DonationRepository interface {
	CreateDonation(ctx context.Context, donation *models.Donation) error
	ListByCommunity(ctx context.Context, communityID string, limit, offset int) ([]*models.Donation, error)
	Totals(ctx context.Context, communityID string) (*DonationTotals, error)
}

type donationRepository struct {
	db *gorm.DB
}

func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) CreateDonation(ctx context.Context, donation *models.Donation) error {
	if donation == nil || donation.CommunityID == "" || donation.AmountCents <= 0 {
		return ErrInvalidInput
	}
	if donation.Currency == "" {
		donation.Currency = "USD"
	}
	return r.db.WithContext(ctx).Create(donation).Error
}

func (r *donationRepository) ListByCommunity(ctx context.Context, communityID string, limit, offset int) ([]*models.Donation, error) {
	limit, offset = clampPage(limit, offset)
	donations := []*models.Donation{}
	err := r.db.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&donations).Error
	return donations, err
}

func (r *donationRepository) Totals(ctx context.Context, communityID string) (*DonationTotals, error) {
	var rows []struct {
		Currency string
		Cents    int64
		Num      int64
	}
	err := r.db.WithContext(ctx).Model(&models.Donation{}).
		Select("currency, SUM(amount_cents) AS cents, COUNT(*) AS num").
		Where("community_id = ?", communityID).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	totals := &DonationTotals{ByCents: map[string]int64{}}
	for _, row := range rows {
		totals.ByCents[row.Currency] = row.Cents
		totals.Count += row.Num
	}
	return totals, nil
}
