package rsvp

import "errors"

var (
	ErrSessionNotFound  = errors.New("wizard session not found or expired")
	ErrTooManyAttempts  = errors.New("too many document attempts, try again later")
	ErrSubmitInProgress = errors.New("another submit for this session is in progress")
)
