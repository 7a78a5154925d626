package main

import "github.com/pkg/errors"

// setRawIO is a stub on Windows: no console-mode handling is wired up, so
// the VM runner falls back to line-buffered stdin.
func setRawIO() (func(), error) {
	return nil, errors.New("raw IO not supported on this platform")
}
