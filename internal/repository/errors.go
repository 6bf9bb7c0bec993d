// Package repository holds the backend's own persistence: the refresh
// tokens that keep a browser logged in.  Everything else is owned by the
// remote reservation API.
package repository

import "errors"

// ErrTokenNotFound is returned when a refresh token is unknown, revoked
// or expired.  Handlers translate this into an HTTP 401 response.
var ErrTokenNotFound = errors.New("refresh token not found")
