package models

// Switch is the commanded state of an actuator
type Switch string

const (
	SwitchOn  Switch = "on"
	SwitchOff Switch = "off"
)

// SwitchOf maps a boolean to on/off
func SwitchOf(on bool) Switch {
	if on {
		return SwitchOn
	}
	return SwitchOff
}

// IsOn reports whether the switch is on
func (s Switch) IsOn() bool {
	return s == SwitchOn
}

// Decision holds the actuator commands derived from one reading
type Decision struct {
	Fan   Switch `json:"fan"`
	Light Switch `json:"light"`
}

// AllOff is the safe default decision
func AllOff() Decision {
	return Decision{Fan: SwitchOff, Light: SwitchOff}
}

// ArchiveRecord is a reading together with the decision made for it
type ArchiveRecord struct {
	Reading  Reading  `json:"reading"`
	Decision Decision `json:"decision"`
}
