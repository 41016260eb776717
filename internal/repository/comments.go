package repository

import (
	"context"
	"time"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// CommentRepository handles all database operations for comments
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	// ListByPost returns every comment on the post ordered by created_at
	// ascending, the order thread.BuildTree expects.
	ListByPost(ctx context.Context, postID string) ([]models.Comment, error)
	UpdateContent(ctx context.Context, commentID, content string) error
	HasReplies(ctx context.Context, commentID string) (bool, error)
	SoftDelete(ctx context.Context, commentID string) error
	HardDelete(ctx context.Context, commentID string) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// CreateComment inserts the comment and bumps the post's comment count
func (r *commentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.PostID == "" || comment.UserID == "" || comment.Content == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ?", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count + 1")).Error
	})
}

func (r *commentRepository) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", commentID).First(&comment).Error
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	return comments, err
}

func (r *commentRepository) UpdateContent(ctx context.Context, commentID, content string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ? AND is_deleted = ?", commentID, false).
		Updates(map[string]interface{}{
			"content":   content,
			"is_edited": true,
			"edited_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *commentRepository) HasReplies(ctx context.Context, commentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("parent_id = ?", commentID).
		Count(&count).Error
	return count > 0, err
}

// SoftDelete blanks the comment but keeps the row so replies keep their parent.
func (r *commentRepository) SoftDelete(ctx context.Context, commentID string) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", commentID).
		Updates(map[string]interface{}{
			"content":    models.DeletedCommentContent,
			"is_deleted": true,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// HardDelete removes the row, its reactions, and decrements the post's count
func (r *commentRepository) HardDelete(ctx context.Context, commentID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var comment models.Comment
		if err := tx.Where("id = ?", commentID).First(&comment).Error; err != nil {
			return notFound(err, ErrNotFound)
		}
		if err := tx.Where("target_type = ? AND target_id = ?", models.TargetComment, commentID).
			Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&comment).Error; err != nil {
			return err
		}
		return tx.Model(&models.Post{}).Where("id = ? AND comment_count > 0", comment.PostID).
			UpdateColumn("comment_count", gorm.Expr("comment_count - 1")).Error
	})
}
