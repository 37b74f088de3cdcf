package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrDuplicateItem indicates a local add for an id the list already holds
	ErrDuplicateItem = errors.New("movie already in list")

	// ErrItemNotFound indicates a local remove for an id the list does not hold
	ErrItemNotFound = errors.New("movie not in list")

	// ErrNotFound indicates the remote resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrServerOffline indicates the remote service is unreachable
	ErrServerOffline = errors.New("movie database is unreachable")

	// ErrAuthFailed indicates the API key or session was rejected
	ErrAuthFailed = errors.New("authentication failed")

	// ErrSessionRequired indicates an account operation without a session
	ErrSessionRequired = errors.New("no active session")

	// ErrStaleFetch indicates a page arrived for a list that was reset while it was in flight
	ErrStaleFetch = errors.New("fetch result belongs to a previous session")

	// ErrRemoteRejected indicates the remote service answered but refused the change
	ErrRemoteRejected = errors.New("remote service rejected the change")
)
