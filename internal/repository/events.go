package repository

import (
	"context"
	"errors"
	"time"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// EventRepository handles community events and RSVPs
type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)
	// ListUpcoming returns events ending after now, soonest first. An empty
	// communityID lists events across every community.
	ListUpcoming(ctx context.Context, communityID string, now time.Time, limit int) ([]*models.Event, error)
	SetRSVP(ctx context.Context, eventID, userID, status string) error
	GetRSVP(ctx context.Context, eventID, userID string) (*models.EventRSVP, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) CreateEvent(ctx context.Context, event *models.Event) error {
	if event == nil || event.CommunityID == "" || event.Title == "" || event.StartsAt.IsZero() {
		return ErrInvalidInput
	}
	if event.EndsAt.IsZero() {
		event.EndsAt = event.StartsAt.Add(time.Hour)
	}
	if event.EndsAt.Before(event.StartsAt) {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Where("id = ?", eventID).First(&event).Error; err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &event, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, communityID string, now time.Time, limit int) ([]*models.Event, error) {
	limit, _ = clampPage(limit, 0)
	query := r.db.WithContext(ctx).Where("ends_at > ?", now)
	if communityID != "" {
		query = query.Where("community_id = ?", communityID)
	}

	events := []*models.Event{}
	err := query.Order("starts_at ASC").Limit(limit).Find(&events).Error
	return events, err
}

// SetRSVP records the user's answer and keeps going_count in step.
func (r *eventRepository) SetRSVP(ctx context.Context, eventID, userID, status string) error {
	switch status {
	case models.RSVPGoing, models.RSVPInterested, models.RSVPNotGoing:
	default:
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event models.Event
		if err := tx.Where("id = ?", eventID).First(&event).Error; err != nil {
			return notFound(err, ErrNotFound)
		}

		delta := 0
		var rsvp models.EventRSVP
		err := tx.Where("event_id = ? AND user_id = ?", eventID, userID).First(&rsvp).Error
		switch {
		case err == nil:
			if rsvp.Status == models.RSVPGoing {
				delta--
			}
			if err := tx.Model(&rsvp).Update("status", status).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			rsvp = models.EventRSVP{EventID: eventID, UserID: userID, Status: status}
			if err := tx.Create(&rsvp).Error; err != nil {
				return err
			}
		default:
			return err
		}
		if status == models.RSVPGoing {
			delta++
		}

		if delta == 0 {
			return nil
		}
		return tx.Model(&event).UpdateColumn("going_count", gorm.Expr("going_count + ?", delta)).Error
	})
}

func (r *eventRepository) GetRSVP(ctx context.Context, eventID, userID string) (*models.EventRSVP, error) {
	var rsvp models.EventRSVP
	err := r.db.WithContext(ctx).Where("event_id = ? AND user_id = ?", eventID, userID).First(&rsvp).Error
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &rsvp, nil
}
