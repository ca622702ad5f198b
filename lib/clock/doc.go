// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Ledger components that stamp results, expire sessions, or run
// periodic maintenance take a Clock instead of calling the time
// package. Production wiring passes Real(); tests pass Fake() and move
// time explicitly:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	directory, _ := identity.New(identity.Config{Clock: c, ...})
//	c.Advance(61 * time.Minute) // session tokens minted above are now expired
//
// Goroutines that block on a FakeClock (Sleep, After, a Ticker) register
// a waiter. WaitForWaiters lets a test block until the goroutine under
// test has registered before it calls Advance.
package clock
