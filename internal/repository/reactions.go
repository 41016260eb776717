package repository

import (
	"context"
	"errors"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// ReactionRepository handles all database operations for reactions
type ReactionRepository interface {
	// SetReaction creates the user's reaction or changes its kind. created is
	// false when an existing reaction was updated.
	SetReaction(ctx context.Context, userID, targetType, targetID, kind string) (created bool, err error)
	DeleteReaction(ctx context.Context, userID, targetType, targetID string) error
	GetUserReaction(ctx context.Context, userID, targetType, targetID string) (*models.Reaction, error)
	// Counts aggregates reactions per target as {target_id: {kind: count}}.
	Counts(ctx context.Context, targetType string, targetIDs []string) (map[string]map[string]int, error)
}

type reactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository creates a new reaction repository
func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) SetReaction(ctx context.Context, userID, targetType, targetID, kind string) (bool, error) {
	if userID == "" || targetID == "" || !models.ValidReactionKind(kind) {
		return false, ErrInvalidInput
	}

	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Reaction
		err := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
			First(&existing).Error
		if err == nil {
			return tx.Model(&existing).Update("kind", kind).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		reaction := models.Reaction{UserID: userID, TargetType: targetType, TargetID: targetID, Kind: kind}
		if err := tx.Create(&reaction).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return err
		}
		created = true
		if targetType == models.TargetPost {
			return tx.Model(&models.Post{}).Where("id = ?", targetID).
				UpdateColumn("reaction_count", gorm.Expr("reaction_count + 1")).Error
		}
		return nil
	})
	return created, err
}

func (r *reactionRepository) DeleteReaction(ctx context.Context, userID, targetType, targetID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
			Delete(&models.Reaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if targetType == models.TargetPost {
			return tx.Model(&models.Post{}).Where("id = ? AND reaction_count > 0", targetID).
				UpdateColumn("reaction_count", gorm.Expr("reaction_count - 1")).Error
		}
		return nil
	})
}

func (r *reactionRepository) GetUserReaction(ctx context.Context, userID, targetType, targetID string) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		First(&reaction).Error
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &reaction, nil
}

func (r *reactionRepository) Counts(ctx context.Context, targetType string, targetIDs []string) (map[string]map[string]int, error) {
	counts := make(map[string]map[string]int, len(targetIDs))
	if len(targetIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		TargetID string
		Kind     string
		Total    int
	}
	err := r.db.WithContext(ctx).Model(&models.Reaction{}).
		Select("target_id, kind, COUNT(*) AS total").
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Group("target_id, kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		if counts[row.TargetID] == nil {
			counts[row.TargetID] = map[string]int{}
		}
		counts[row.TargetID][row.Kind] = row.Total
	}
	return counts, nil
}
