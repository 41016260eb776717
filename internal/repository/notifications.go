package repository

import (
	"context"
	"time"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository handles per-user notifications
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	// MarkRead marks the given notifications read, or all of the user's
	// notifications when ids is empty. It returns the number updated.
	MarkRead(ctx context.Context, userID string, ids []string) (int64, error)
	// Prune deletes read notifications created before readBefore and unread
	// ones created before unreadBefore.
	Prune(ctx context.Context, readBefore, unreadBefore time.Time) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if n == nil || n.UserID == "" || n.Type == "" {
		return ErrInvalidInput
	}
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]*models.Notification, error) {
	limit, offset = clampPage(limit, offset)
	query := r.db.WithContext(ctx).Preload("Actor").Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	notifications := []*models.Notification{}
	err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&notifications).Error
	return notifications, err
}

func (r *notificationRepository) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID)
	if len(ids) > 0 {
		query = query.Where("id IN ?", ids)
	}
	res := query.Update("read_at", time.Now().UTC())
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) Prune(ctx context.Context, readBefore, unreadBefore time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("(read_at IS NOT NULL AND created_at < ?) OR (read_at IS NULL AND created_at < ?)", readBefore, unreadBefore).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}
