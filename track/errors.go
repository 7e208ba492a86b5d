package track

import "errors"

// Common errors returned by the track package
var (
	ErrMissingTimestamp     = errors.New("position has no timestamp")
	ErrPlayerClosed         = errors.New("player is closed")
	ErrUnexpectedStatus     = errors.New("unexpected response status")
	ErrUnsuccessfulResponse = errors.New("route response was not successful")
)
