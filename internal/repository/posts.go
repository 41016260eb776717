package repository

import (
	"context"
	"time"

	"github.com/communehq/commune/internal/models"
	"gorm.io/gorm"
)

// Feed kinds
const (
	FeedGlobal    = "global"
	FeedFollowing = "following"
	FeedCommunity = "community"
	FeedHashtag   = "hashtag"
	FeedUser      = "user"
)

// FeedQuery selects one page of posts, newest first.
type FeedQuery struct {
	Kind        string
	ViewerID    string // following feed
	CommunityID string // community feed
	Hashtag     string // hashtag feed, without '#'
	AuthorID    string // user feed
	Limit       int
	Offset      int
}

// PostRepository handles all database operations for posts
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	UpdatePostContent(ctx context.Context, postID, content string, hashtags []string) error
	DeletePost(ctx context.Context, postID string) error
	ListFeed(ctx context.Context, q FeedQuery) ([]*models.Post, int64, error)
	GetPosts(ctx context.Context, postIDs []string) ([]*models.Post, error)
	SearchPosts(ctx context.Context, query string, limit, offset int) ([]*models.Post, error)
	// DeletedWithMedia lists soft-deleted posts that still reference an
	// uploaded object.
	DeletedWithMedia(ctx context.Context, limit int) ([]*models.Post, error)
	ClearMedia(ctx context.Context, postID string) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// CreatePost inserts the post and bumps the author's post count
func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.UserID == "" || post.Content == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", post.UserID).
			UpdateColumn("post_count", gorm.Expr("post_count + 1")).Error
	})
}

// GetPost gets a post with its author
func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", postID).First(&post).Error
	if err != nil {
		return nil, notFound(err, ErrNotFound)
	}
	return &post, nil
}

func (r *postRepository) UpdatePostContent(ctx context.Context, postID, content string, hashtags []string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", postID).Updates(map[string]interface{}{
		"content":   content,
		"hashtags":  models.StringArray(hashtags),
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

// DeletePost soft deletes a post and decrements the author's post count
func (r *postRepository) DeletePost(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Where("id = ?", postID).First(&post).Error; err != nil {
			return notFound(err, ErrNotFound)
		}
		if err := tx.Delete(&post).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ? AND post_count > 0", post.UserID).
			UpdateColumn("post_count", gorm.Expr("post_count - 1")).Error
	})
}

func (r *postRepository) DeletedWithMedia(ctx context.Context, limit int) ([]*models.Post, error) {
	posts := []*models.Post{}
	err := r.db.WithContext(ctx).Unscoped().
		Where("deleted_at IS NOT NULL AND media_key <> ''").
		Order("deleted_at").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) ClearMedia(ctx context.Context, postID string) error {
	return r.db.WithContext(ctx).Unscoped().Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumns(map[string]interface{}{"media_key": "", "media_url": ""}).Error
}

// ListFeed returns one page of the requested feed and the total row count.
func (r *postRepository) ListFeed(ctx context.Context, q FeedQuery) ([]*models.Post, int64, error) {
	limit, offset := clampPage(q.Limit, q.Offset)
	query := r.db.WithContext(ctx).Model(&models.Post{})

	switch q.Kind {
	case "", FeedGlobal:
	case FeedFollowing:
		if q.ViewerID == "" {
			return nil, 0, ErrInvalidInput
		}
		following := r.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", q.ViewerID)
		query = query.Where("user_id IN (?) OR user_id = ?", following, q.ViewerID)
	case FeedCommunity:
		if q.CommunityID == "" {
			return nil, 0, ErrInvalidInput
		}
		query = query.Where("community_id = ?", q.CommunityID)
	case FeedHashtag:
		if q.Hashtag == "" {
			return nil, 0, ErrInvalidInput
		}
		query = arrayContains(query, "hashtags", q.Hashtag)
	case FeedUser:
		if q.AuthorID == "" {
			return nil, 0, ErrInvalidInput
		}
		query = query.Where("user_id = ?", q.AuthorID)
	default:
		return nil, 0, ErrInvalidInput
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	posts := []*models.Post{}
	err := query.Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, total, err
}

// GetPosts loads posts by ID, preserving the order of postIDs
func (r *postRepository) GetPosts(ctx context.Context, postIDs []string) ([]*models.Post, error) {
	if len(postIDs) == 0 {
		return []*models.Post{}, nil
	}

	var found []*models.Post
	if err := r.db.WithContext(ctx).Preload("User").Where("id IN ?", postIDs).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	posts := make([]*models.Post, 0, len(found))
	for _, id := range postIDs {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// SearchPosts is the SQL fallback used when no search index is configured.
func (r *postRepository) SearchPosts(ctx context.Context, query string, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPage(limit, offset)
	posts := []*models.Post{}
	err := r.db.WithContext(ctx).Preload("User").
		Where("LOWER(content) LIKE LOWER(?)", "%"+query+"%").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	return posts, err
}
