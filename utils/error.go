package utils

import "errors"

var ErrorRecordNotFound = errors.New("record not found")

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidLogin = errors.New("invalid email or password")
	ErrEmailTaken   = errors.New("email is already registered")
	ErrLockBusy     = errors.New("resource is locked, try again")
)

// ErrInvalidInput marks user input rejected outside the recipe validator.
var ErrInvalidInput = errors.New("invalid input")
