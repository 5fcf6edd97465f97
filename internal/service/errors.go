package service

import "errors"

// Sentinel errors for the message lifecycle. Handlers translate these to HTTP
// status codes; anything not matching one of them is a transient storage
// failure surfaced as a 500.
var (
	// ErrNotFound means the target message or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden means the requester is not the message sender.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation means a required participant is missing or the content is empty.
	ErrValidation = errors.New("validation failed")
	// ErrMediaUpstream means the media resolver failed; nothing was persisted.
	ErrMediaUpstream = errors.New("media resolver unavailable")
	// ErrStore wraps read/write failures of the message store.
	ErrStore = errors.New("storage failure")
)
