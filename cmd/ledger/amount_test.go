// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"testing"

	"github.com/bureau-foundation/ledger/cmd/ledger/cli"
	"github.com/bureau-foundation/ledger/lib/service"
	"github.com/bureau-foundation/ledger/lib/transfer"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		minor int64
		scale int32
		units bool
		want  string
	}{
		{7500, 2, false, "7500"},
		{7500, 2, true, "75.00"},
		{5, 2, true, "0.05"},
		{0, 2, true, "0.00"},
		{1234, 0, true, "1234"},
		{1234, 3, true, "1.234"},
	}
	for _, test := range tests {
		if got := formatAmount(test.minor, test.scale, test.units); got != test.want {
			t.Errorf("formatAmount(%d, %d, %v) = %q, want %q", test.minor, test.scale, test.units, got, test.want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		text  string
		scale int32
		want  string
	}{
		{"5", 2, "500"},
		{"5.00", 2, "500"},
		{"2.5", 2, "250"},
		{"0.01", 2, "1"},
		{"-1", 2, "-100"},
		{"12", 0, "12"},
	}
	for _, test := range tests {
		got, err := minorUnits(test.text, test.scale)
		if err != nil || got != test.want {
			t.Errorf("minorUnits(%q, %d) = %q, %v; want %q", test.text, test.scale, got, err, test.want)
		}
	}

	for _, text := range []string{"abc", "1.005", "", "1e"} {
		_, err := minorUnits(text, 2)
		if transfer.KindOf(err) != transfer.KindValidation {
			t.Errorf("minorUnits(%q) error = %v, want a validation error", text, err)
		}
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"plain error", errors.New("boom"), 1},
		{"usage", cli.Usage("bad flag"), 2},
		{"validation", &transfer.Error{Kind: transfer.KindValidation}, 2},
		{"not found", &service.ServiceError{Kind: string(transfer.KindNotFound)}, 3},
		{"insufficient funds", &service.ServiceError{Kind: string(transfer.KindInsufficientFunds)}, 4},
		{"policy violation", &service.ServiceError{Kind: string(transfer.KindPolicyViolation)}, 5},
		{"transient", &service.ServiceError{Kind: string(transfer.KindTransient)}, 6},
		{"consistency fault", &service.ServiceError{Kind: string(transfer.KindConsistencyFault)}, 7},
		{"unauthenticated", &service.ServiceError{Kind: service.KindUnauthenticated}, 8},
		{"not logged in", errNotLoggedIn, 8},
		{"unknown kind", &service.ServiceError{Kind: "mystery"}, 1},
		{"protocol error without kind", &service.ServiceError{}, 1},
	}
	for _, test := range tests {
		if got := exitCode(test.err); got != test.want {
			t.Errorf("%s: exitCode = %d, want %d", test.name, got, test.want)
		}
	}
}
