//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealPresence is not available on non-Linux platforms.
type RealPresence struct{}

// NewRealPresence returns an error on non-Linux platforms.
func NewRealPresence(chipName string, pin int) (*RealPresence, error) {
	return nil, errUnsupported
}

// Present is not implemented on non-Linux platforms.
func (p *RealPresence) Present() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (p *RealPresence) Close() error {
	return nil
}

// RealRelay is not available on non-Linux platforms.
type RealRelay struct{}

// NewRealRelay returns an error on non-Linux platforms.
func NewRealRelay(chipName string, pin int, activeLow bool) (*RealRelay, error) {
	return nil, errUnsupported
}

// Set is not implemented on non-Linux platforms.
func (r *RealRelay) Set(on bool) error {
	return errUnsupported
}

// State always reports off on non-Linux platforms.
func (r *RealRelay) State() bool {
	return false
}

// Close is not implemented on non-Linux platforms.
func (r *RealRelay) Close() error {
	return nil
}
