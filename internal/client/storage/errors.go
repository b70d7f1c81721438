package storage

import "errors"

// Common client storage errors
var (
	// ErrVersionNotFound indicates that version was not found
	ErrVersionNotFound = errors.New("version not found")

	// ErrChecksumMismatch indicates that stored version content is corrupted
	ErrChecksumMismatch = errors.New("version content checksum mismatch")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)

// ErrAuthNotFound indicates that no cached token exists for the user
var ErrAuthNotFound = errors.New("auth data not found")
