package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound         = errors.New("entity not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrTransport        = errors.New("malformed inbound event")
	ErrProtocolMismatch = errors.New("event not valid for current dialog state")
	ErrPersistence      = errors.New("session store unavailable")
	ErrSessionBusy      = errors.New("session is locked by another event")
)
