package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/thread"
)

// Login exchanges credentials for a token and keeps it on the client. Code is
// the TOTP code for accounts with two-factor enabled.
func (c *Client) Login(ctx context.Context, email, password, code string) (*AuthResponse, error) {
	body := map[string]string{"email": email, "password": password}
	if code != "" {
		body["code"] = code
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &resp, nil); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Register creates an account and keeps the issued token.
func (c *Client) Register(ctx context.Context, email, username, password, displayName string) (*AuthResponse, error) {
	body := map[string]string{
		"email":        email,
		"username":     username,
		"password":     password,
		"display_name": displayName,
	}
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &resp, nil); err != nil {
		return nil, err
	}
	c.SetToken(resp.Token)
	return &resp, nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Feed fetches one page of a feed.
func (c *Client) Feed(ctx context.Context, q FeedQuery) (*FeedPage, error) {
	params := page(q.Limit, q.Offset)
	path := "/feed"
	switch q.Kind {
	case "hashtag":
		path = "/hashtags/" + url.PathEscape(q.Hashtag) + "/posts"
	case "":
	default:
		params.Set("kind", q.Kind)
		if q.CommunityID != "" {
			params.Set("community_id", q.CommunityID)
		}
	}
	var resp FeedPage
	if err := c.do(ctx, http.MethodGet, path, nil, &resp, params); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Post fetches a single post.
func (c *Client) Post(ctx context.Context, postID string) (*Post, error) {
	var resp struct {
		Post Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID), nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Post, nil
}

// CreatePost publishes a post, optionally into a community.
func (c *Client) CreatePost(ctx context.Context, content, communityID string) (*Post, error) {
	body := map[string]string{"content": content}
	if communityID != "" {
		body["community_id"] = communityID
	}
	var resp struct {
		Post Post `json:"post"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts", body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Post, nil
}

// Comments returns the post's comments flat, oldest first.
func (c *Client) Comments(ctx context.Context, postID string) ([]models.Comment, error) {
	var resp struct {
		Comments []models.Comment `json:"comments"`
	}
	q := url.Values{"view": {"flat"}}
	if err := c.do(ctx, http.MethodGet, "/posts/"+url.PathEscape(postID)+"/comments", nil, &resp, q); err != nil {
		return nil, err
	}
	return resp.Comments, nil
}

// CommentTree fetches the flat list and nests it locally.
func (c *Client) CommentTree(ctx context.Context, postID string) ([]*thread.Node, error) {
	comments, err := c.Comments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return thread.BuildTree(comments), nil
}

// CreateComment adds a comment to a post; parentID makes it a reply.
func (c *Client) CreateComment(ctx context.Context, postID, content, parentID string) (*models.Comment, error) {
	body := map[string]interface{}{"content": content}
	if parentID != "" {
		body["parent_id"] = parentID
	}
	var resp struct {
		Comment models.Comment `json:"comment"`
	}
	if err := c.do(ctx, http.MethodPost, "/posts/"+url.PathEscape(postID)+"/comments", body, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Comment, nil
}

// React sets the caller's reaction on a post or comment and returns the new
// counts per kind.
func (c *Client) React(ctx context.Context, targetType, targetID, kind string) (map[string]int, error) {
	var resp struct {
		Reactions map[string]int `json:"reactions"`
	}
	path := reactionPath(targetType, targetID)
	if err := c.do(ctx, http.MethodPut, path, map[string]string{"kind": kind}, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Reactions, nil
}

// Unreact removes the caller's reaction.
func (c *Client) Unreact(ctx context.Context, targetType, targetID string) (map[string]int, error) {
	var resp struct {
		Reactions map[string]int `json:"reactions"`
	}
	if err := c.do(ctx, http.MethodDelete, reactionPath(targetType, targetID), nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Reactions, nil
}

func reactionPath(targetType, targetID string) string {
	if targetType == models.TargetComment {
		return "/comments/" + url.PathEscape(targetID) + "/reactions"
	}
	return "/posts/" + url.PathEscape(targetID) + "/reactions"
}

// Follow follows a user by ID or username.
func (c *Client) Follow(ctx context.Context, user string) error {
	return c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(user)+"/follow", nil, nil, nil)
}

// Unfollow stops following a user.
func (c *Client) Unfollow(ctx context.Context, user string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(user)+"/follow", nil, nil, nil)
}

// FileComplaint reports a post, comment or user to the moderators.
func (c *Client) FileComplaint(ctx context.Context, complaint Complaint) (*models.Complaint, error) {
	var resp struct {
		Complaint models.Complaint `json:"complaint"`
	}
	if err := c.do(ctx, http.MethodPost, "/complaints", complaint, &resp, nil); err != nil {
		return nil, err
	}
	return &resp.Complaint, nil
}

// Notifications lists the caller's notifications, newest first.
func (c *Client) Notifications(ctx context.Context, limit int) (*NotificationPage, error) {
	var resp NotificationPage
	if err := c.do(ctx, http.MethodGet, "/notifications", nil, &resp, page(limit, 0)); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MyCommunities lists the communities the caller belongs to.
func (c *Client) MyCommunities(ctx context.Context) ([]models.Community, error) {
	var resp struct {
		Communities []models.Community `json:"communities"`
	}
	if err := c.do(ctx, http.MethodGet, "/users/me/communities", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Communities, nil
}

// Communities browses all communities, optionally filtered by tag.
func (c *Client) Communities(ctx context.Context, tag string, limit, offset int) ([]models.Community, error) {
	q := page(limit, offset)
	if tag != "" {
		q.Set("tag", tag)
	}
	var resp struct {
		Communities []models.Community `json:"communities"`
	}
	if err := c.do(ctx, http.MethodGet, "/communities", nil, &resp, q); err != nil {
		return nil, err
	}
	return resp.Communities, nil
}

// UpcomingEvents lists events across all communities.
func (c *Client) UpcomingEvents(ctx context.Context) ([]models.Event, error) {
	var resp struct {
		Events []models.Event `json:"events"`
	}
	if err := c.do(ctx, http.MethodGet, "/events", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp.Events, nil
}

// Donations lists a community's pledges and their totals.
func (c *Client) Donations(ctx context.Context, community string) (*DonationPage, error) {
	var resp DonationPage
	if err := c.do(ctx, http.MethodGet, "/communities/"+url.PathEscape(community)+"/donations", nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
