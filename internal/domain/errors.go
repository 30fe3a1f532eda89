package domain

import "github.com/cockroachdb/errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrCapacityReached      = errors.New("event is full")
	ErrAlreadyRegistered    = errors.New("already registered")
	ErrForbidden            = errors.New("forbidden")
	ErrNotEligible          = errors.New("not eligible")
)
