package confirmation

import "errors"

var (
	ErrAlreadyConfirmed     = errors.New("employee already confirmed, use edit")
	ErrConfirmationNotFound = errors.New("confirmation not found")
)
