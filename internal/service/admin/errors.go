package admin

import "errors"

var ErrConfirmationNotFound = errors.New("confirmation not found")
