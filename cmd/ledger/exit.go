// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"

	"github.com/bureau-foundation/ledger/lib/service"
	"github.com/bureau-foundation/ledger/lib/transfer"
)

// Exit codes by error kind. Scripts branch on these rather than on
// message text.
var kindExitCodes = map[string]int{
	string(transfer.KindValidation):        2,
	string(transfer.KindNotFound):          3,
	string(transfer.KindInsufficientFunds): 4,
	string(transfer.KindPolicyViolation):   5,
	string(transfer.KindTransient):         6,
	string(transfer.KindConsistencyFault):  7,
	service.KindUnauthenticated:            8,
}

// exitCode picks the process exit code for err: an explicit ExitCode
// wins, then the error's kind, then 1.
func exitCode(err error) int {
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	var kinded interface{ ErrorKind() string }
	if errors.As(err, &kinded) {
		if code, ok := kindExitCodes[kinded.ErrorKind()]; ok {
			return code
		}
	}
	return 1
}
