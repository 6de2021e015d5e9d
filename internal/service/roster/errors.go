package roster

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEmptyRoster      = errors.New("roster has no valid entries")
)
