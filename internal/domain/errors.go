package domain

import (
	"errors"
	"fmt"
)

var (
	ErrCircleNotFound     = errors.New("circle not found")
	ErrCodeSpaceExhausted = errors.New("could not allocate a free circle code")

	// ErrInvalidInput is the parent of every boundary validation error.
	ErrInvalidInput    = errors.New("invalid input")
	ErrNameEmpty       = fmt.Errorf("%w: name empty", ErrInvalidInput)
	ErrNameTooLong     = fmt.Errorf("%w: name too long", ErrInvalidInput)
	ErrInvalidCode     = fmt.Errorf("%w: circle code must be 6 characters A-Z or 0-9", ErrInvalidInput)
	ErrInvalidLocation = fmt.Errorf("%w: location out of range", ErrInvalidInput)
	ErrBadPayload      = fmt.Errorf("%w: bad payload", ErrInvalidInput)

	ErrRateLimited = errors.New("too many requests, slow down")
)
