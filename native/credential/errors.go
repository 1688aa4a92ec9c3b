package credential

import "errors"

var (
	ErrNotAuthorized  = errors.New("credential: not authorized")
	ErrUserExists     = errors.New("credential: user already exists")
	ErrUnknownUser    = errors.New("credential: unknown user")
	ErrInvalidPayment = errors.New("credential: invalid payment")
)
