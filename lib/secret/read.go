// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrEmpty is returned when a source holds nothing but whitespace.
var ErrEmpty = errors.New("secret: value is empty")

// ReadFromPath reads a secret from a file, or the first line of stdin
// if path is "-". Surrounding whitespace is trimmed. The caller must
// close the returned Buffer.
func ReadFromPath(path string) (*Buffer, error) {
	if path == "-" {
		return readLine(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	return fromUntrimmed(data)
}

// ReadTerminal prints prompt to out and reads a line from the terminal
// on fd with echo disabled. The caller must close the returned Buffer.
func ReadTerminal(fd int, prompt string, out io.Writer) (*Buffer, error) {
	if !term.IsTerminal(fd) {
		return nil, fmt.Errorf("secret: file descriptor %d is not a terminal", fd)
	}
	fmt.Fprint(out, prompt)
	data, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		Zero(data)
		return nil, fmt.Errorf("secret: reading from terminal: %w", err)
	}
	return fromUntrimmed(data)
}

func readLine(reader io.Reader) (*Buffer, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("secret: reading stdin: %w", err)
		}
		return nil, ErrEmpty
	}
	return fromUntrimmed(scanner.Bytes())
}

// fromUntrimmed moves the trimmed contents of data into a Buffer and
// zeros all of data.
func fromUntrimmed(data []byte) (*Buffer, error) {
	defer Zero(data)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmpty
	}
	return NewFromBytes(trimmed)
}
