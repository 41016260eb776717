package handlers

import (
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/communehq/commune/internal/errors"
	"github.com/communehq/commune/internal/i18n"
	"github.com/communehq/commune/internal/logger"
	"github.com/communehq/commune/internal/models"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/storage"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// lookupUser resolves :id as a user ID, falling back to a username.
func (h *Handlers) lookupUser(c *gin.Context) (*models.User, bool) {
	ref := c.Param("id")
	users := h.store.Users()
	user, err := users.GetUser(c.Request.Context(), ref)
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = users.GetUserByUsername(c.Request.Context(), strings.TrimPrefix(ref, "@"))
	}
	if err != nil {
		respondError(c, err, "user")
		return nil, false
	}
	return user, true
}

// publicProfile strips fields only the account owner sees.
func publicProfile(u *models.User) *models.User {
	cp := *u
	cp.Email = ""
	cp.TwoFactorEnabled = false
	return &cp
}

// GetProfile returns a user's profile by ID or username
// GET /api/v1/users/:id
func (h *Handlers) GetProfile(c *gin.Context) {
	user, ok := h.lookupUser(c)
	if !ok {
		return
	}
	viewerID := util.OptionalUserID(c)
	if viewerID == user.ID {
		c.JSON(http.StatusOK, gin.H{"user": user, "is_following": false})
		return
	}

	following := false
	if viewerID != "" {
		var err error
		following, err = h.store.Users().IsFollowing(c.Request.Context(), viewerID, user.ID)
		if err != nil {
			logger.WarnWithFields("Failed to check follow state", err)
		}
	}
	profile := publicProfile(user)
	if profile.IsPrivate && !following {
		profile.Bio = ""
	}
	c.JSON(http.StatusOK, gin.H{"user": profile, "is_following": following})
}

// UpdateProfileRequest carries the editable profile fields. Nil means unchanged.
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" binding:"omitempty,min=1,max=50"`
	Bio         *string `json:"bio" binding:"omitempty,max=500"`
	Locale      *string `json:"locale"`
	IsPrivate   *bool   `json:"is_private"`
}

// UpdateProfile edits the caller's profile
// PUT /api/v1/users/me
func (h *Handlers) UpdateProfile(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Locale != nil {
		if !supportedLocale(*req.Locale) {
			util.RespondValidationError(c, "locale", "invalid input")
			return
		}
		user.Locale = *req.Locale
	}
	if req.IsPrivate != nil {
		user.IsPrivate = *req.IsPrivate
	}

	if err := h.store.Users().UpdateUser(c.Request.Context(), user); err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func supportedLocale(locale string) bool {
	for _, tag := range i18n.Supported {
		if tag.String() == locale {
			return true
		}
	}
	return false
}

// Settings is the notification and privacy preference block.
type Settings struct {
	Locale          string `json:"locale"`
	IsPrivate       bool   `json:"is_private"`
	NotifyComments  bool   `json:"notify_comments"`
	NotifyReactions bool   `json:"notify_reactions"`
	NotifyFollows   bool   `json:"notify_follows"`
}

func settingsOf(u *models.User) Settings {
	return Settings{
		Locale:          u.Locale,
		IsPrivate:       u.IsPrivate,
		NotifyComments:  u.NotifyComments,
		NotifyReactions: u.NotifyReactions,
		NotifyFollows:   u.NotifyFollows,
	}
}

// GetSettings returns the caller's settings
// GET /api/v1/users/me/settings
func (h *Handlers) GetSettings(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, settingsOf(user))
}

// UpdateSettingsRequest changes any subset of Settings.
type UpdateSettingsRequest struct {
	Locale          *string `json:"locale"`
	IsPrivate       *bool   `json:"is_private"`
	NotifyComments  *bool   `json:"notify_comments"`
	NotifyReactions *bool   `json:"notify_reactions"`
	NotifyFollows   *bool   `json:"notify_follows"`
}

// UpdateSettings changes the caller's settings
// PUT /api/v1/users/me/settings
func (h *Handlers) UpdateSettings(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	var req UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Locale != nil {
		if !supportedLocale(*req.Locale) {
			util.RespondValidationError(c, "locale", "invalid input")
			return
		}
		user.Locale = *req.Locale
	}
	setBool(&user.IsPrivate, req.IsPrivate)
	setBool(&user.NotifyComments, req.NotifyComments)
	setBool(&user.NotifyReactions, req.NotifyReactions)
	setBool(&user.NotifyFollows, req.NotifyFollows)

	if err := h.store.Users().UpdateUser(c.Request.Context(), user); err != nil {
		respondError(c, err, "user")
		return
	}
	c.JSON(http.StatusOK, settingsOf(user))
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

// UploadAvatar stores a new profile picture
// POST /api/v1/users/me/avatar
func (h *Handlers) UploadAvatar(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	result, ok := h.upload(c, "avatar", storage.KindAvatar, user.ID)
	if !ok {
		return
	}

	previous := user.AvatarURL
	user.AvatarURL = result.URL
	if err := h.store.Users().UpdateUser(c.Request.Context(), user); err != nil {
		respondError(c, err, "user")
		return
	}
	if previous != "" {
		logger.Log.Debug("Avatar replaced", logger.WithUserID(user.ID), zap.String("previous", previous))
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": result.URL, "user": user})
}

// UploadMedia stores a post attachment and returns its key for CreatePost
// POST /api/v1/media
func (h *Handlers) UploadMedia(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	result, ok := h.upload(c, "file", storage.KindPost, userID)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h *Handlers) upload(c *gin.Context, field string, kind storage.MediaKind, ownerID string) (*storage.UploadResult, bool) {
	if h.media == nil {
		util.RespondWithAPIError(c, apierrors.ServiceUnavailable("media storage"))
		return nil, false
	}
	header, err := c.FormFile(field)
	if err != nil {
		util.RespondValidationError(c, field, "invalid input")
		return nil, false
	}
	if header.Size > storage.MaxUploadSize {
		respondError(c, storage.ErrTooLarge, "")
		return nil, false
	}
	file, err := header.Open()
	if err != nil {
		util.RespondInternalError(c, err)
		return nil, false
	}
	defer file.Close()

	result, err := h.media.Upload(c.Request.Context(), storage.UploadInput{
		Kind:     kind,
		OwnerID:  ownerID,
		Filename: header.Filename,
		Body:     file,
		Size:     header.Size,
	})
	if err != nil {
		respondError(c, err, "")
		return nil, false
	}
	return result, true
}

// MyCommunities lists the communities the caller belongs to
// GET /api/v1/users/me/communities
func (h *Handlers) MyCommunities(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}
	communities, err := h.store.Communities().ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, "community")
		return
	}
	c.JSON(http.StatusOK, gin.H{"communities": communities})
}
