package handlers

import (
	"errors"

	"github.com/communehq/commune/internal/auth"
	apierrors "github.com/communehq/commune/internal/errors"
	"github.com/communehq/commune/internal/repository"
	"github.com/communehq/commune/internal/storage"
	"github.com/communehq/commune/internal/util"
	"github.com/gin-gonic/gin"
)

var (
	errEditWindowClosed = errors.New("comments can only be edited within 15 minutes")
	errNotOwner         = errors.New("you can only edit your own content")
	errNotDeleter       = errors.New("you can only delete your own content")
)

// FromError maps service and repository errors onto API errors. resource
// names the thing being looked up, for not-found and conflict messages.
func FromError(err error, resource string) *apierrors.APIError {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		return apierrors.NotFound("user")
	case errors.Is(err, repository.ErrNotFound):
		return apierrors.NotFound(resource)
	case errors.Is(err, repository.ErrAlreadyExists):
		return apierrors.New(apierrors.ErrAlreadyExists, "already exists")
	case errors.Is(err, repository.ErrInvalidInput):
		return apierrors.BadRequest("invalid input")

	case errors.Is(err, auth.ErrUserExists):
		return apierrors.New(apierrors.ErrAlreadyExists, "account already exists")
	case errors.Is(err, auth.ErrUsernameExists):
		return apierrors.ValidationError("username", "username already taken")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apierrors.Unauthorized("invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		return apierrors.Unauthorized("invalid or expired token")
	case errors.Is(err, auth.ErrTwoFactorRequired):
		return apierrors.New(apierrors.ErrTwoFactor, "two-factor code required")
	case errors.Is(err, auth.ErrInvalidTwoFactor):
		return apierrors.ValidationError("code", "invalid two-factor code")
	case errors.Is(err, auth.ErrTwoFactorNotPending):
		return apierrors.BadRequest("two-factor setup not started")
	case errors.Is(err, auth.ErrOAuthNotConfigured):
		return apierrors.New(apierrors.ErrServiceUnavail, "service unavailable")

	case errors.Is(err, storage.ErrUnsupportedType):
		return apierrors.ValidationError("file", "unsupported file type")
	case errors.Is(err, storage.ErrTooLarge):
		return apierrors.ValidationError("file", "file too large")

	case errors.Is(err, errEditWindowClosed):
		return apierrors.New(apierrors.ErrEditWindow, errEditWindowClosed.Error())
	case errors.Is(err, errNotOwner), errors.Is(err, errNotDeleter):
		return apierrors.Forbidden(err.Error())
	}

	return apierrors.InternalError("internal server error").WithDetails(err.Error())
}

func respondError(c *gin.Context, err error, resource string) {
	if err != nil {
		_ = c.Error(err)
	}
	util.RespondWithAPIError(c, FromError(err, resource))
}

// bindJSON decodes the body, answering 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		util.RespondWithAPIError(c, apierrors.BadRequest("invalid request body").WithDetails(err.Error()))
		return false
	}
	return true
}
