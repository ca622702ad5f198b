// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"fmt"
	"io"
	"os"
)

// exit is replaced in tests.
var (
	defaultExit = os.Exit
	exit        = defaultExit
)

// Fatal writes "error: err" to stderr and exits with code 1. Use it in
// main() for errors from run().
func Fatal(err error) {
	FatalCode(os.Stderr, 1, err)
}

// FatalCode writes "error: err" to w and exits with code. A code of
// zero is raised to 1 so an error never reads as success.
func FatalCode(w io.Writer, code int, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	if code == 0 {
		code = 1
	}
	exit(code)
}
