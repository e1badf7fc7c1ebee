package domain

import "errors"

var (
	// ErrLoginRequired is returned when an operation needs an access credential and none is stored.
	ErrLoginRequired = errors.New("login required")
	// ErrSkipRequired describes a skip attempt on a required question.
	ErrSkipRequired = errors.New("required question cannot be skipped")
	// ErrMissingCredentials indicates a login or register attempt without username or password.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrPasswordTooShort mirrors the backend's minimum password length.
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)
