package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrPlatformUnsupported  = errors.New("platform is not supported yet")
	ErrUnknownPlatform      = errors.New("unknown platform")
	ErrOAuthDenied          = errors.New("authorization was denied")
	ErrTokenExchangeFailed  = errors.New("token exchange failed")
	ErrNoBusinessAccount    = errors.New("no instagram business account is linked to your facebook pages")
	ErrSdkLoadTimeout       = errors.New("sdk did not load in time")
	ErrValidationFailed     = errors.New("validation failed")
	ErrPublishFailed        = errors.New("publish failed")
	ErrStoreWriteFailed     = errors.New("could not save")
	ErrPlatformNotConnected = errors.New("platform is not connected")
	ErrPostNotFound         = errors.New("post not found")

	ErrEmptyReply = fmt.Errorf("%w: reply text is empty", ErrValidationFailed)
)

// PublishError is the failure of one platform within a publish.
type PublishError struct {
	PlatformID string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish to %s: %v", e.PlatformID, e.Err)
}

func (e *PublishError) Unwrap() []error {
	return []error{ErrPublishFailed, e.Err}
}

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidationFailed, fmt.Sprintf(format, args...))
}
