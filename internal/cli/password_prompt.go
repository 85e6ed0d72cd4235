package cli

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
)

var errNoTerminal = errors.New("stdin unavailable")

// readSecretLine reads one line from stdin with terminal echo switched off.
func readSecretLine(stdin *os.File) (string, error) {
	if stdin == nil {
		return "", errNoTerminal
	}
	return withEchoDisabled(stdin, func() (string, error) {
		return readPromptLine(stdin)
	})
}

// readPromptLine returns the first line of reader without its line ending.
// A final line without a newline is accepted.
func readPromptLine(reader io.Reader) (string, error) {
	line, err := bufio.NewReader(reader).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
