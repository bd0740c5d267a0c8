// Package runtimeio loads programs for the command line: bytecode from a
// file, or from standard input when the path is "-".
package runtimeio

import (
	"errors"
	"io"
	"io/fs"
	"os"

	"golang.org/x/term"
)

// StdinPath names standard input in place of a file.
const StdinPath = "-"

var ErrTerminalInput = errors.New("refusing to read a program from a terminal; pipe it in or pass a file")

type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "File not found: " + e.Path
}

func IsInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// ReadProgram returns the raw bytes at path.
func ReadProgram(path string) ([]byte, error) {
	if path == StdinPath {
		if IsInteractive() {
			return nil, ErrTerminalInput
		}
		return readAll(os.Stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, err
	}
	return b, nil
}

func readAll(r io.Reader) ([]byte, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("empty program on standard input")
	}
	return b, nil
}
