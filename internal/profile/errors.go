package profile

import "errors"

// Error taxonomy for the Profile Store, spec §7.
var (
	ErrNotFound = errors.New("profile not found")
	ErrConflict = errors.New("profile already exists")
	ErrInvalid  = errors.New("invalid profile")
)
