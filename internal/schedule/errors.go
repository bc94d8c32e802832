package schedule

import "errors"

var (
	// ErrInvalidLightTime is returned when a light mode is neither "sunset" nor HH:MM:SS
	ErrInvalidLightTime = errors.New("invalid light time")

	// ErrInvalidDuration is returned when a light duration cannot be parsed
	ErrInvalidDuration = errors.New("invalid light duration")

	// ErrUpstreamUnavailable is returned when the sunset service cannot answer
	ErrUpstreamUnavailable = errors.New("sunset service unavailable")
)
