package schemas

import "errors"

// Pipeline failures that abort a command before anything is executed.
// Callers wrap these with %w and match them with errors.Is.
var (
	// ErrConfiguration means a required credential or setting is missing.
	ErrConfiguration = errors.New("configuration error")
	// ErrEmptyResponse means the planner answered without any choice.
	ErrEmptyResponse = errors.New("planner returned an empty response")
	// ErrMalformedResponse means the planner payload could not be parsed.
	ErrMalformedResponse = errors.New("malformed planner response")
	// ErrNoSnapshot means the host has not published a screen yet.
	ErrNoSnapshot = errors.New("no screen snapshot available")
)
