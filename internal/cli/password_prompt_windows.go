//go:build windows

package cli

import (
	"os"

	"golang.org/x/sys/windows"
)

func withEchoDisabled(terminal *os.File, read func() (string, error)) (string, error) {
	console := windows.Handle(terminal.Fd())
	var restore uint32
	if err := windows.GetConsoleMode(console, &restore); err != nil {
		return "", err
	}
	if err := windows.SetConsoleMode(console, restore&^windows.ENABLE_ECHO_INPUT); err != nil {
		return "", err
	}
	defer windows.SetConsoleMode(console, restore)

	return read()
}
