package main

import (
	"syscall"

	"github.com/pkg/term/termios"
)

// setRawIO switches stdin to raw mode (no line buffering, no echo, no
// signal generation) so the console device sees every byte as the guest
// program writes it, and returns a function restoring the prior settings.
func setRawIO() (func(), error) {
	var tios syscall.Termios
	if err := termios.Tcgetattr(0, &tios); err != nil {
		return nil, err
	}
	raw := tios
	raw.Iflag &^= syscall.BRKINT | syscall.ISTRIP | syscall.IXON | syscall.IXOFF
	raw.Iflag |= syscall.IGNBRK | syscall.IGNPAR
	raw.Lflag &^= syscall.ICANON | syscall.ISIG | syscall.IEXTEN | syscall.ECHO
	raw.Cc[syscall.VMIN] = 1
	raw.Cc[syscall.VTIME] = 0
	if err := termios.Tcsetattr(0, termios.TCSANOW, &raw); err != nil {
		termios.Tcsetattr(0, termios.TCSANOW, &tios)
		return nil, err
	}
	return func() {
		termios.Tcsetattr(0, termios.TCSANOW, &tios)
	}, nil
}
