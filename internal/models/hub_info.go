package models

import "time"

// HubInfo contains metadata about the sensor hub
type HubInfo struct {
	ID        string    `json:"id"`
	Location  string    `json:"location"`
	Version   string    `json:"version"`
	StartTime time.Time `json:"start_time"`
}

// Uptime returns the duration since the hub started
func (h *HubInfo) Uptime() time.Duration {
	return time.Since(h.StartTime)
}

// NewHubInfo creates a new HubInfo with the current time as start time
func NewHubInfo(id, location, version string) *HubInfo {
	return &HubInfo{
		ID:        id,
		Location:  location,
		Version:   version,
		StartTime: time.Now(),
	}
}
