package httpapi

import "errors"

var (
	ErrMissingUser    = errors.New("httpapi: missing user identity")
	ErrInvalidUserID  = errors.New("httpapi: invalid user id")
	ErrInvalidRequest = errors.New("httpapi: invalid request body")
)
