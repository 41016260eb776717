package models

import (
	"time"

	"gorm.io/gorm"
)

// Complaint statuses
const (
	ComplaintOpen      = "open"
	ComplaintResolved  = "resolved"
	ComplaintDismissed = "dismissed"
)

// Complaint reasons
var ComplaintReasons = []string{"spam", "harassment", "inappropriate", "misinformation", "other"}

// Complaint is a report filed against a post, comment or user.
type Complaint struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ReporterID  string     `gorm:"not null;index" json:"reporter_id"`
	TargetType  string     `gorm:"not null" json:"target_type"`
	TargetID    string     `gorm:"not null;index" json:"target_id"`
	Reason      string     `gorm:"not null" json:"reason"`
	Description string     `gorm:"type:text" json:"description,omitempty"`
	Status      string     `gorm:"not null;default:open;index" json:"status"`
	ResolvedBy  *string    `json:"resolved_by,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (c *Complaint) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	if c.Status == "" {
		c.Status = ComplaintOpen
	}
	return nil
}
