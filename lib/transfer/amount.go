// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"errors"
	"strconv"
	"strings"
)

// ErrAmountTooLarge reports a well-formed amount that does not fit in
// an int64. It is necessarily above any per-transfer ceiling.
var ErrAmountTooLarge = errors.New("amount is too large")

// ParseAmount parses a transfer amount in the smallest currency unit.
// Only ASCII decimal digits are accepted, after trimming surrounding
// whitespace: no sign, no fraction, no exponent, no digit separators.
func ParseAmount(text string) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, errors.New("amount is required")
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			if r == '-' {
				return 0, errors.New("amount must not be negative")
			}
			return 0, errors.New("amount must be a whole number")
		}
	}
	amount, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, ErrAmountTooLarge
	}
	return amount, nil
}
