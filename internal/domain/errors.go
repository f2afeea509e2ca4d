package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrValidation          = errors.New("validation failed")
	ErrConflict            = errors.New("generation already running")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrProviderFailure     = errors.New("provider failure")
	ErrScenesExist         = errors.New("scenes already exist")
	ErrUnsupportedProvider = errors.New("unsupported provider")
)
