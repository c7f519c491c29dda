package devicetoken

import "errors"

var (
	ErrTokenInvalid     = errors.New("disable token is invalid")
	ErrTokenExpired     = errors.New("disable token has expired")
	ErrTokenAlreadyUsed = errors.New("disable token has already been used")

	// ErrTokenNotFound is returned by repositories; the service reports it as ErrTokenInvalid
	ErrTokenNotFound = errors.New("disable token not found")
)
