// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package transfer moves funds between two accounts on behalf of an
// authenticated owner.
//
// Engine.Transfer validates a Request in a fixed order and stops at the
// first failure:
//
//  1. required fields present, amount a non-negative decimal integer
//     (KindValidation)
//  2. amount at most the configured ceiling (KindPolicyViolation)
//  3. source and target exist under their claimed owners (KindNotFound)
//  4. advisory check that the source balance covers the amount
//     (KindInsufficientFunds)
//  5. conditional debit of the source (KindInsufficientFunds if it does
//     not apply)
//  6. credit of the target
//
// Steps 5 and 6 run in one store transaction: either both commit or
// neither does. Step 4 gives a fast answer; step 5 is the authority,
// because the balance can change between them.
//
// Every error Transfer returns is an *Error carrying one Kind from a
// closed set. Storage errors never cross the package boundary
// unclassified. Transient failures are retried once with a fresh
// transaction. A credit that fails after the debit applied is a
// KindConsistencyFault: the engine reverses the debit, logs the anomaly
// for reconciliation, and only then returns.
package transfer
