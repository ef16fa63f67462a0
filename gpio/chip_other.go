//go:build !linux

package gpio

import "github.com/pkg/errors"

// Open always fails off Linux; use the virtual chip instead.
func Open(cfg Config) (Chip, error) {
	return nil, errors.Wrapf(ErrHardwareUnavailable, "%s: gpio character device needs linux", cfg.chip())
}
