package service

import (
	"errors"

	"github.com/pageza/fitcheck/backend/internal/validation"
)

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrInvalidProfile       = errors.New("invalid profile")
	ErrPhotosDisabled       = errors.New("photo storage is not configured")
	ErrNoPhoto              = errors.New("profile has no photo")
	ErrUnsupportedPhotoType = errors.New("unsupported photo type")
	ErrPhotoTooLarge        = errors.New("photo is too large")

	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid client credentials")
	ErrClientExists       = errors.New("client already exists")
)

// ValidationError lists the fields of a request that failed validation
type ValidationError struct {
	Fields validation.FieldErrors
}

func (e *ValidationError) Error() string {
	return "invalid profile: " + e.Fields.Error()
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidProfile
}

// toValidationError converts validator output into a ValidationError
func toValidationError(err error) error {
	var fields validation.FieldErrors
	if errors.As(err, &fields) {
		return &ValidationError{Fields: fields}
	}
	return err
}
