package models

import (
	"time"

	"gorm.io/gorm"
)

// Community groups members, posts, events, services and donations.
type Community struct {
	ID          string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Slug        string         `gorm:"uniqueIndex;not null" json:"slug"`
	Name        string         `gorm:"not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     string         `gorm:"not null;index" json:"owner_id"`
	Tags        StringArray    `json:"tags"`
	MemberCount int            `gorm:"default:0" json:"member_count"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Community) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

// Member roles
const (
	RoleOwner     = "owner"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

type CommunityMember struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CommunityID string    `gorm:"not null;uniqueIndex:idx_member_once" json:"community_id"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_member_once;index" json:"user_id"`
	User        *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role        string    `gorm:"not null;default:member" json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func (m *CommunityMember) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}

// Event is a scheduled community gathering.
type Event struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CommunityID string    `gorm:"not null;index" json:"community_id"`
	OrganizerID string    `gorm:"not null" json:"organizer_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Location    string    `json:"location"`
	StartsAt    time.Time `gorm:"index" json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	GoingCount  int       `gorm:"default:0" json:"going_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = generateUUID()
	}
	return nil
}

// RSVP statuses
const (
	RSVPGoing      = "going"
	RSVPInterested = "interested"
	RSVPNotGoing   = "not_going"
)

type EventRSVP struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	EventID   string    `gorm:"not null;uniqueIndex:idx_rsvp_once" json:"event_id"`
	UserID    string    `gorm:"not null;uniqueIndex:idx_rsvp_once" json:"user_id"`
	Status    string    `gorm:"not null" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *EventRSVP) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}

// Service is something a member offers to a community.
type Service struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CommunityID string    `gorm:"not null;index" json:"community_id"`
	ProviderID  string    `gorm:"not null" json:"provider_id"`
	Provider    *User     `gorm:"foreignKey:ProviderID" json:"provider,omitempty"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Contact     string    `json:"contact"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = generateUUID()
	}
	return nil
}

// Donation is a recorded pledge. No money moves through Commune.
type Donation struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CommunityID string    `gorm:"not null;index" json:"community_id"`
	DonorID     string    `gorm:"not null" json:"donor_id,omitempty"`
	AmountCents int64     `gorm:"not null" json:"amount_cents"`
	Currency    string    `gorm:"not null;default:USD" json:"currency"`
	Message     string    `json:"message,omitempty"`
	Anonymous   bool      `gorm:"default:false" json:"anonymous"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *Donation) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = generateUUID()
	}
	return nil
}
