package service

import "errors"

var (
	ErrEmailExists        = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrRoutineNotFound    = errors.New("routine not found")
	ErrRoutineExists      = errors.New("routine id already exists")
	ErrValidation         = errors.New("validation failed")
	ErrUserNotFound       = errors.New("user not found")
)
