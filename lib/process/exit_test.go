// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"bytes"
	"errors"
	"testing"
)

func TestFatalCode(t *testing.T) {
	var exitCodes []int
	exit = func(code int) { exitCodes = append(exitCodes, code) }
	t.Cleanup(func() { exit = defaultExit })

	var output bytes.Buffer
	FatalCode(&output, 4, errors.New("insufficient funds in account 190"))
	FatalCode(&output, 0, errors.New("zero"))

	if got := output.String(); got != "error: insufficient funds in account 190\nerror: zero\n" {
		t.Errorf("output = %q", got)
	}
	if len(exitCodes) != 2 || exitCodes[0] != 4 || exitCodes[1] != 1 {
		t.Errorf("exit codes = %v, want [4 1]", exitCodes)
	}
}
