package repository

import (
	"context"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// CommunityRepository handles communities and their memberships
type CommunityRepository interface {
	// CreateCommunity inserts the community with its owner as first member.
	CreateCommunity(ctx context.Context, community *models.Community) error
	GetCommunity(ctx context.Context, id string) (*models.Community, error)
	GetCommunityBySlug(ctx context.Context, slug string) (*models.Community, error)
	// GetCommunities returns the communities in ids order, skipping missing ones.
	GetCommunities(ctx context.Context, ids []string) ([]*models.Community, error)
	ListCommunities(ctx context.Context, tag string, limit, offset int) ([]*models.Community, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Community, error)
	SearchCommunities(ctx context.Context, query string, limit, offset int) ([]*models.Community, error)

	Join(ctx context.Context, communityID, userID string) error
	Leave(ctx context.Context, communityID, userID string) error
	IsMember(ctx context.Context, communityID, userID string) (bool, error)
	Members(ctx context.Context, communityID string, limit, offset int) ([]*models.CommunityMember, error)
}

type communityRepository struct {
	db *gorm.DB
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(db *gorm.DB) CommunityRepository {
	return &communityRepository{db: db}
}

func (r *communityRepository) CreateCommunity(ctx context.Context, community *models.Community) error {
	if community == nil || community.Slug == "" || community.Name == "" || community.OwnerID == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		community.MemberCount = 1
		if err := tx.Create(community).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return err
		}
		return tx.Create(&models.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.OwnerID,
			Role:        models.RoleOwner,
		}).Error
	})
}

func (r *communityRepository) GetCommunities(ctx context.Context, ids []string) ([]*models.Community, error) {
	if len(ids) == 0 {
		return []*models.Community{}, nil
	}

	var found []*models.Community
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Community, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	out := make([]*models.Community, 0, len(found))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *communityRepository) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&community).Error; err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &community, nil
}

func (r *communityRepository) GetCommunityBySlug(ctx context.Context, slug string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("LOWER(slug) = LOWER(?)", slug).First(&community).Error; err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &community, nil
}

// ListCommunities lists communities by size, optionally only those tagged tag
func (r *communityRepository) ListCommunities(ctx context.Context, tag string, limit, offset int) ([]*models.Community, error) {
	limit, offset = clampPage(limit, offset)
	query := r.db.WithContext(ctx).Model(&models.Community{})
	if tag != "" {
		query = arrayContains(query, "tags", tag)
	}

	communities := []*models.Community{}
	err := query.Order("member_count DESC").Order("name ASC").
		Limit(limit).Offset(offset).
		Find(&communities).Error
	return communities, err
}

func (r *communityRepository) ListForUser(ctx context.Context, userID string) ([]*models.Community, error) {
	communities := []*models.Community{}
	err := r.db.WithContext(ctx).
		Joins("JOIN community_members ON community_members.community_id = communities.id").
		Where("community_members.user_id = ?", userID).
		Order("communities.name ASC").
		Find(&communities).Error
	return communities, err
}

func (r *communityRepository) SearchCommunities(ctx context.Context, query string, limit, offset int) ([]*models.Community, error) {
	limit, offset = clampPage(limit, offset)
	pattern := "%" + query + "%"
	communities := []*models.Community{}
	err := r.db.WithContext(ctx).
		Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", pattern, pattern).
		Order("member_count DESC").
		Limit(limit).Offset(offset).
		Find(&communities).Error
	return communities, err
}

func (r *communityRepository) Join(ctx context.Context, communityID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var community models.Community
		if err := tx.Where("id = ?", communityID).First(&community).Error; err != nil {
			return notFound(err, ErrNotFound)
		}
		member := models.CommunityMember{CommunityID: communityID, UserID: userID, Role: models.RoleMember}
		if err := tx.Create(&member).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return err
		}
		return tx.Model(&community).UpdateColumn("member_count", gorm.Expr("member_count + 1")).Error
	})
}

// Leave removes the membership. Owners cannot leave their own community.
func (r *communityRepository) Leave(ctx context.Context, communityID, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.CommunityMember
		err := tx.Where("community_id = ? AND user_id = ?", communityID, userID).First(&member).Error
		if err != nil {
			return notFound(err, ErrNotFound)
		}
		if member.Role == models.RoleOwner {
			return ErrInvalidInput
		}
		if err := tx.Delete(&member).Error; err != nil {
			return err
		}
		return tx.Model(&models.Community{}).Where("id = ? AND member_count > 0", communityID).
			UpdateColumn("member_count", gorm.Expr("member_count - 1")).Error
	})
}

func (r *communityRepository) IsMember(ctx context.Context, communityID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *communityRepository) Members(ctx context.Context, communityID string, limit, offset int) ([]*models.CommunityMember, error) {
	limit, offset = clampPage(limit, offset)
	members := []*models.CommunityMember{}
	err := r.db.WithContext(ctx).Preload("User").
		Where("community_id = ?", communityID).
		Order("created_at ASC").
		Limit(limit).Offset(offset).
		Find(&members).Error
	return members, err
}
