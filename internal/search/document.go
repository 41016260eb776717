package search

import (
	"time"

	"github.com/communehq/commune/internal/models"
)

// PostDoc represents a post document for Elasticsearch indexing
type PostDoc struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Username      string    `json:"username,omitempty"`
	CommunityID   string    `json:"community_id,omitempty"`
	Content       string    `json:"content"`
	Hashtags      []string  `json:"hashtags"`
	ReactionCount int       `json:"reaction_count"`
	CommentCount  int       `json:"comment_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// CommunityDoc represents a community document for Elasticsearch indexing
type CommunityDoc struct {
	ID          string    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostToDoc converts a Post model to a search document
func PostToDoc(p *models.Post) PostDoc {
	doc := PostDoc{
		ID:            p.ID,
		UserID:        p.UserID,
		Content:       p.Content,
		Hashtags:      append([]string{}, p.Hashtags...),
		ReactionCount: p.ReactionCount,
		CommentCount:  p.CommentCount,
		CreatedAt:     p.CreatedAt,
	}
	if p.User != nil {
		doc.Username = p.User.Username
	}
	if p.CommunityID != nil {
		doc.CommunityID = *p.CommunityID
	}
	return doc
}

// CommunityToDoc converts a Community model to a search document
func CommunityToDoc(c *models.Community) CommunityDoc {
	return CommunityDoc{
		ID:          c.ID,
		Slug:        c.Slug,
		Name:        c.Name,
		Description: c.Description,
		Tags:        append([]string{}, c.Tags...),
		MemberCount: c.MemberCount,
		CreatedAt:   c.CreatedAt,
	}
}
