// Package flagfile reads the secret revealed after successful validation.
package flagfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	// DefaultPath is the flag file location relative to the working
	// directory, matching the reference binary.
	DefaultPath = "flag"

	// EnvVar overrides the flag file location, matching the challenge
	// harness.
	EnvVar = "FLAG_FILE"
)

// Path returns the flag file location, honoring the FLAG_FILE override.
func Path() string {
	if p := os.Getenv(EnvVar); p != "" {
		return p
	}
	return DefaultPath
}

// FirstLine reads the first line of the file at path with trailing newline
// and carriage-return characters stripped. An empty file yields an empty
// secret, not an error; only an unopenable or unreadable file fails.
func FirstLine(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("cannot open flag file: %w", err)
	}
	defer file.Close()

	line, err := bufio.NewReader(file).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("cannot read flag file: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}
