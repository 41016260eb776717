package apiclient

import (
	"time"

	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/richtext"
)

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// Post is a feed entry as the API renders it.
type Post struct {
	models.Post
	Segments   []richtext.Segment `json:"segments"`
	MyReaction string             `json:"my_reaction,omitempty"`
}

// FeedPage is one page of a feed.
type FeedPage struct {
	Posts   []Post `json:"posts"`
	Total   int64  `json:"total"`
	Limit   int    `json:"limit"`
	Offset  int    `json:"offset"`
	HasMore bool   `json:"has_more"`
}

// FeedQuery selects a feed. Kind is global, following, community or hashtag.
type FeedQuery struct {
	Kind        string
	CommunityID string
	Hashtag     string
	Limit       int
	Offset      int
}

// NotificationPage is a page of notifications plus the unread total.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	Unread        int64                 `json:"unread"`
}

// DonationTotals sums pledges per currency.
type DonationTotals struct {
	Count   int64            `json:"count"`
	ByCents map[string]int64 `json:"totals_cents"`
}

// DonationPage lists a community's pledges.
type DonationPage struct {
	Donations []models.Donation `json:"donations"`
	Totals    DonationTotals    `json:"totals"`
}

// Complaint is the body of FileComplaint.
type Complaint struct {
	TargetType  string `json:"target_type"`
	TargetID    string `json:"target_id"`
	Reason      string `json:"reason"`
	Description string `json:"description,omitempty"`
}
