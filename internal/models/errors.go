package models

import "errors"

// Authentication and account lifecycle errors.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrAccountBanned        = errors.New("account banned")
	ErrWrongCurrentPassword = errors.New("wrong current password")
	ErrPasswordMismatch     = errors.New("password confirmation does not match")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrNotLoggedIn          = errors.New("not logged in")
	ErrNotAuthorized        = errors.New("not authorized")
)

// Validation errors.
var (
	ErrEmptyField     = errors.New("required field is empty")
	ErrTitleTooLong   = errors.New("title too long")
	ErrUploadRejected = errors.New("upload rejected")
)

// Store errors. Adapters wrap driver failures so callers can match them with
// errors.Is.
var (
	ErrNotFound              = errors.New("not found")
	ErrDuplicateRegistration = errors.New("handle or email already registered")
	ErrStoreUnavailable      = errors.New("store unavailable")
)
