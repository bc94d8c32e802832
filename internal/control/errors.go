package control

import "errors"

// MaxQueryCount is the largest number of readings a single query may return
const MaxQueryCount = 500

var (
	// ErrSettingsMissing is returned when a reading arrives before any settings
	ErrSettingsMissing = errors.New("settings not found")

	// ErrNoDataAvailable is returned when readings are queried from an empty store
	ErrNoDataAvailable = errors.New("no data available")

	// ErrInvalidCount is returned when a query count is outside 1..MaxQueryCount
	ErrInvalidCount = errors.New("count must be between 1 and 500")
)
