//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package cli

import (
	"os"

	"golang.org/x/sys/unix"
)

func withEchoDisabled(terminal *os.File, read func() (string, error)) (string, error) {
	fd := int(terminal.Fd())
	saved, err := unix.IoctlGetTermios(fd, termiosReadRequest)
	if err != nil {
		return "", err
	}
	restore := *saved
	silent := restore
	silent.Lflag &^= unix.ECHO
	if err := unix.IoctlSetTermios(fd, termiosWriteRequest, &silent); err != nil {
		return "", err
	}
	defer unix.IoctlSetTermios(fd, termiosWriteRequest, &restore)

	return read()
}
