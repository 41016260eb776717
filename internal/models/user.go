package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a Commune account. Password and OAuth identities live side by side.
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Locale      string `gorm:"default:en" json:"locale"`

	PasswordHash *string `json:"-"`
	GoogleID     *string `gorm:"uniqueIndex" json:"-"`
	IsAdmin      bool    `gorm:"default:false" json:"is_admin"`

	TwoFactorEnabled bool    `gorm:"default:false" json:"two_factor_enabled"`
	TwoFactorSecret  *string `json:"-"`

	// Settings
	IsPrivate       bool `gorm:"default:false" json:"is_private"`
	NotifyComments  bool `gorm:"default:true" json:"notify_comments"`
	NotifyReactions bool `gorm:"default:true" json:"notify_reactions"`
	NotifyFollows   bool `gorm:"default:true" json:"notify_follows"`

	FollowerCount  int `gorm:"default:0" json:"follower_count"`
	FollowingCount int `gorm:"default:0" json:"following_count"`
	PostCount      int `gorm:"default:0" json:"post_count"`

	LastActiveAt *time.Time     `json:"last_active_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

// Follow is a directed follower -> following edge.
type Follow struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	FollowerID  string    `gorm:"not null;uniqueIndex:idx_follow_pair" json:"follower_id"`
	FollowingID string    `gorm:"not null;uniqueIndex:idx_follow_pair;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = generateUUID()
	}
	return nil
}

// Notification types
const (
	NotificationComment  = "comment"
	NotificationReply    = "reply"
	NotificationReaction = "reaction"
	NotificationFollow   = "follow"
	NotificationEvent    = "event"
)

// Notification is delivered to UserID about something ActorID did.
type Notification struct {
	ID         string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID     string     `gorm:"not null;index:idx_notifications_user_created" json:"user_id"`
	ActorID    string     `gorm:"not null" json:"actor_id"`
	Actor      *User      `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Type       string     `gorm:"not null" json:"type"`
	TargetType string     `json:"target_type"`
	TargetID   string     `json:"target_id"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
	CreatedAt  time.Time  `gorm:"index:idx_notifications_user_created" json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = generateUUID()
	}
	return nil
}
