// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/bureau-foundation/ledger/lib/transfer"
)

// formatAmount renders a minor-unit amount. With units set it is shown
// in major units at the configured scale: 7500 at scale 2 is "75.00".
func formatAmount(minor int64, scale int32, units bool) string {
	if !units {
		return strconv.FormatInt(minor, 10)
	}
	return decimal.New(minor, -scale).StringFixed(scale)
}

// minorUnits converts a major-unit amount typed by the user into the
// minor-unit text the service expects. Range and sign checks are left
// to the service.
func minorUnits(text string, scale int32) (string, error) {
	value, err := decimal.NewFromString(text)
	if err != nil {
		return "", &transfer.Error{Kind: transfer.KindValidation, Reason: "amount " + strconv.Quote(text) + " is not a number"}
	}
	shifted := value.Shift(scale)
	if !shifted.IsInteger() {
		return "", &transfer.Error{
			Kind:   transfer.KindValidation,
			Reason: "amount " + strconv.Quote(text) + " has more than " + strconv.Itoa(int(scale)) + " decimal places",
		}
	}
	return shifted.String(), nil
}
