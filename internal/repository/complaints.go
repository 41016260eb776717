package repository

import (
	"context"
	"time"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// ComplaintRepository handles user-filed complaints and their moderation
type ComplaintRepository interface {
	CreateComplaint(ctx context.Context, complaint *models.Complaint) error
	GetComplaint(ctx context.Context, id string) (*models.Complaint, error)
	ListComplaints(ctx context.Context, status string, limit, offset int) ([]*models.Complaint, error)
	// Resolve closes an open complaint with status resolved or dismissed.
	Resolve(ctx context.Context, id, adminID, status string) (*models.Complaint, error)
}

type complaintRepository struct {
	db *gorm.DB
}

func NewComplaintRepository(db *gorm.DB) ComplaintRepository {
	return &complaintRepository{db: db}
}

// CreateComplaint files a complaint. A reporter may only have one open
// complaint per target.
func (r *complaintRepository) CreateComplaint(ctx context.Context, complaint *models.Complaint) error {
	if complaint == nil || complaint.ReporterID == "" || complaint.TargetID == "" || complaint.Reason == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var open int64
		err := tx.Model(&models.Complaint{}).
			Where("reporter_id = ? AND target_type = ? AND target_id = ? AND status = ?",
				complaint.ReporterID, complaint.TargetType, complaint.TargetID, models.ComplaintOpen).
			Count(&open).Error
		if err != nil {
			return err
		}
		if open > 0 {
			return ErrAlreadyExists
		}
		return tx.Create(complaint).Error
	})
}

func (r *complaintRepository) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&complaint).Error; err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &complaint, nil
}

func (r *complaintRepository) ListComplaints(ctx context.Context, status string, limit, offset int) ([]*models.Complaint, error) {
	limit, offset = clampPage(limit, offset)
	query := r.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	complaints := []*models.Complaint{}
	err := query.Order("created_at ASC").Limit(limit).Offset(offset).Find(&complaints).Error
	return complaints, err
}

func (r *complaintRepository) Resolve(ctx context.Context, id, adminID, status string) (*models.Complaint, error) {
	if status != models.ComplaintResolved && status != models.ComplaintDismissed {
		return nil, ErrInvalidInput
	}

	var complaint models.Complaint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&complaint).Error; err != nil {
			return notFound(err, ErrNotFound)
		}
		if complaint.Status != models.ComplaintOpen {
			return ErrInvalidInput
		}
		now := time.Now().UTC()
		complaint.Status = status
		complaint.ResolvedBy = &adminID
		complaint.ResolvedAt = &now
		return tx.Save(&complaint).Error
	})
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}
