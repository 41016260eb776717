package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a feed entry, optionally scoped to a community.
type Post struct {
	ID          string      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID      string      `gorm:"not null;index" json:"user_id"`
	User        *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CommunityID *string     `gorm:"index" json:"community_id,omitempty"`
	Content     string      `gorm:"type:text;not null" json:"content"`
	MediaKey    string      `json:"media_key,omitempty"`
	MediaURL    string      `json:"media_url,omitempty"`
	Hashtags    StringArray `json:"hashtags"`

	CommentCount  int `gorm:"default:0" json:"comment_count"`
	ReactionCount int `gorm:"default:0" json:"reaction_count"`

	IsEdited bool       `gorm:"default:false" json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	// Aggregated on read
	Reactions map[string]int `gorm:"-" json:"reactions,omitempty"`

	CreatedAt time.Time      `gorm:"index" json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

// DeletedCommentContent replaces the body of a comment that was removed while
// it still had replies.
const DeletedCommentContent = "[comment deleted]"

// Comment is a reply to a post or, through ParentID, to another comment.
type Comment struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID string `gorm:"not null;index:idx_comments_post_created" json:"post_id"`
	UserID string `gorm:"not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`

	// Threading - parent_id is null for top-level comments
	ParentID *string `gorm:"type:varchar(36);index" json:"parent_id"`

	Content   string     `gorm:"type:text;not null" json:"content"`
	IsEdited  bool       `gorm:"default:false" json:"is_edited"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
	IsDeleted bool       `gorm:"default:false" json:"is_deleted"`

	Reactions map[string]int `gorm:"-" json:"reactions,omitempty"`

	CreatedAt time.Time `gorm:"index:idx_comments_post_created" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

// Reaction targets
const (
	TargetPost      = "post"
	TargetComment   = "comment"
	TargetUser      = "user"
	TargetCommunity = "community"
	TargetEvent     = "event"
)

// Reaction kinds
const (
	ReactionLike  = "like"
	ReactionLove  = "love"
	ReactionLaugh = "laugh"
	ReactionSad   = "sad"
	ReactionAngry = "angry"
)

// ReactionKinds lists the accepted reaction kinds.
var ReactionKinds = []string{ReactionLike, ReactionLove, ReactionLaugh, ReactionSad, ReactionAngry}

// ValidReactionKind reports whether kind is one of ReactionKinds.
func ValidReactionKind(kind string) bool {
	for _, k := range ReactionKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Reaction is one user's reaction to a post or comment.
type Reaction struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_reaction_once" json:"user_id"`
	TargetType string    `gorm:"not null;uniqueIndex:idx_reaction_once;index:idx_reaction_target" json:"target_type"`
	TargetID   string    `gorm:"not null;uniqueIndex:idx_reaction_once;index:idx_reaction_target" json:"target_id"`
	Kind       string    `gorm:"not null" json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (r *Reaction) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
