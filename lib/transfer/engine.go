// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/ledger/lib/accountstore"
	"github.com/bureau-foundation/ledger/lib/clock"
)

const (
	// DefaultCeiling is the largest amount a single transfer may move
	// when Config.Ceiling is zero.
	DefaultCeiling int64 = 1000

	// DefaultTimeout bounds the store work of one call when
	// Config.Timeout is zero.
	DefaultTimeout = 5 * time.Second
)

// Store is the account storage the engine needs. *accountstore.Store
// implements it.
type Store interface {
	GetBalance(ctx context.Context, id, owner string) (int64, error)
	Accounts(ctx context.Context, owner string) ([]accountstore.Account, error)
	Begin(ctx context.Context) (accountstore.Transaction, error)
}

// Config holds the engine's collaborators and policy.
type Config struct {
	Store Store
	Clock clock.Clock

	// Logger receives one line per rejected or completed transfer and
	// an Error line for every ledger anomaly. Nil discards.
	Logger *slog.Logger

	// Ceiling is the per-transfer maximum, inclusive. Zero selects
	// DefaultCeiling.
	Ceiling int64

	// Timeout bounds the store work of one Transfer or Balance call,
	// retries included. Zero selects DefaultTimeout.
	Timeout time.Duration
}

// Engine executes transfers. It holds no locks of its own: concurrent
// transfers contend only inside the store, per transaction. The SQLite
// store admits one writer at a time, so transfers between disjoint
// accounts are serialized there too.
type Engine struct {
	store   Store
	clock   clock.Clock
	logger  *slog.Logger
	ceiling int64
	timeout time.Duration
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("transfer: Store is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("transfer: Clock is required")
	}
	if cfg.Ceiling < 0 {
		return nil, fmt.Errorf("transfer: Ceiling must not be negative, got %d", cfg.Ceiling)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("transfer: Timeout must not be negative, got %s", cfg.Timeout)
	}

	engine := &Engine{
		store:   cfg.Store,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		ceiling: cfg.Ceiling,
		timeout: cfg.Timeout,
	}
	if engine.logger == nil {
		engine.logger = slog.New(slog.DiscardHandler)
	}
	if engine.ceiling == 0 {
		engine.ceiling = DefaultCeiling
	}
	if engine.timeout == 0 {
		engine.timeout = DefaultTimeout
	}
	return engine, nil
}

// Ceiling returns the effective per-transfer maximum.
func (e *Engine) Ceiling() int64 { return e.ceiling }

// Request describes one transfer. SourceOwner must be the caller's
// authenticated identity; TargetOwner is the owner the caller claims
// for the target and is checked against the store. Amount is the raw
// text the caller supplied.
type Request struct {
	SourceAccount string
	SourceOwner   string
	TargetAccount string
	TargetOwner   string
	Amount        string
}

// Result describes a committed transfer.
type Result struct {
	// ID correlates the log lines of one transfer.
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	Amount      int64     `json:"amount"`
	Attempts    int       `json:"attempts"`
	CompletedAt time.Time `json:"completed_at"`
}

// Transfer moves Amount from the source account to the target account.
// On success both the debit and the credit are durable. On any error
// neither is, and the error is an *Error.
func (e *Engine) Transfer(ctx context.Context, request Request) (Result, error) {
	id := uuid.NewString()
	logger := e.logger.With(
		"transfer_id", id,
		"source", request.SourceAccount,
		"target", request.TargetAccount,
	)

	amount, rejection := e.validate(request)
	if rejection != nil {
		logger.Info("transfer rejected", "kind", string(rejection.Kind), "reason", rejection.Reason)
		return Result{}, rejection
	}
	logger = logger.With("amount", amount)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var sourceBalance int64
	_, failure := e.retry(ctx, logger, "lookup", func() *Error {
		var err *Error
		sourceBalance, err = e.lookup(ctx, request.SourceAccount, request.SourceOwner, "source")
		if err != nil {
			return err
		}
		_, err = e.lookup(ctx, request.TargetAccount, request.TargetOwner, "target")
		return err
	})
	if failure != nil {
		logger.Info("transfer rejected", "kind", string(failure.Kind), "reason", failure.Reason, "error", failure.Err)
		return Result{}, failure
	}

	if amount > sourceBalance {
		failure := insufficientFunds(request.SourceAccount)
		logger.Info("transfer rejected", "kind", string(failure.Kind), "reason", failure.Reason)
		return Result{}, failure
	}

	attempts, failure := e.retry(ctx, logger, "apply", func() *Error {
		return e.apply(ctx, logger, request.SourceAccount, request.TargetAccount, amount)
	})
	if failure != nil {
		logger.Info("transfer failed", "kind", string(failure.Kind), "reason", failure.Reason, "attempts", attempts, "error", failure.Err)
		return Result{}, failure
	}

	result := Result{
		ID:          id,
		Source:      request.SourceAccount,
		Target:      request.TargetAccount,
		Amount:      amount,
		Attempts:    attempts,
		CompletedAt: e.clock.Now(),
	}
	logger.Info("transfer committed", "attempts", attempts)
	return result, nil
}

// Balance returns the balance of account id as seen by owner.
func (e *Engine) Balance(ctx context.Context, id, owner string) (int64, error) {
	if strings.TrimSpace(id) == "" {
		return 0, newError(KindValidation, nil, "account is required")
	}
	if owner == "" {
		return 0, newError(KindValidation, nil, "owner is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var balance int64
	_, failure := e.retry(ctx, e.logger, "balance", func() *Error {
		var err *Error
		balance, err = e.lookup(ctx, id, owner, "")
		return err
	})
	if failure != nil {
		return 0, failure
	}
	return balance, nil
}

// Accounts lists the accounts owned by owner.
func (e *Engine) Accounts(ctx context.Context, owner string) ([]accountstore.Account, error) {
	if owner == "" {
		return nil, newError(KindValidation, nil, "owner is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var accounts []accountstore.Account
	_, failure := e.retry(ctx, e.logger, "accounts", func() *Error {
		var err error
		accounts, err = e.store.Accounts(ctx, owner)
		if err != nil {
			return unavailable(err)
		}
		return nil
	})
	if failure != nil {
		return nil, failure
	}
	return accounts, nil
}

func (e *Engine) validate(request Request) (int64, *Error) {
	for _, field := range []struct{ name, value string }{
		{"source account", request.SourceAccount},
		{"source owner", request.SourceOwner},
		{"target account", request.TargetAccount},
		{"target owner", request.TargetOwner},
	} {
		if strings.TrimSpace(field.value) == "" {
			return 0, newError(KindValidation, nil, "%s is required", field.name)
		}
	}

	amount, err := ParseAmount(request.Amount)
	if errors.Is(err, ErrAmountTooLarge) {
		return 0, newError(KindPolicyViolation, nil, "amount exceeds the per-transfer limit of %d", e.ceiling)
	}
	if err != nil {
		return 0, newError(KindValidation, nil, "%s", err.Error())
	}
	if amount > e.ceiling {
		return 0, newError(KindPolicyViolation, nil, "amount %d exceeds the per-transfer limit of %d", amount, e.ceiling)
	}
	return amount, nil
}

// lookup is the owner-scoped existence check. The reason never says
// whether the account exists under a different owner.
func (e *Engine) lookup(ctx context.Context, id, owner, role string) (int64, *Error) {
	balance, err := e.store.GetBalance(ctx, id, owner)
	switch {
	case err == nil:
		return balance, nil
	case errors.Is(err, accountstore.ErrNotFound):
		if role == "" {
			return 0, newError(KindNotFound, nil, "account %s not found", id)
		}
		return 0, newError(KindNotFound, nil, "%s account %s not found", role, id)
	default:
		return 0, unavailable(err)
	}
}

// apply runs the debit and credit as one unit of work.
func (e *Engine) apply(ctx context.Context, logger *slog.Logger, source, target string, amount int64) *Error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return unavailable(err)
	}

	applied, err := tx.ConditionalDebit(source, amount)
	if err != nil {
		e.rollback(logger, tx)
		return unavailable(err)
	}
	if !applied {
		e.rollback(logger, tx)
		return insufficientFunds(source)
	}

	if err := tx.Credit(target, amount); err != nil {
		return e.reverseDebit(logger, tx, source, amount, err)
	}

	if err := tx.Commit(); err != nil {
		// A failed commit leaves nothing applied; Rollback releases
		// whatever the store still holds.
		e.rollback(logger, tx)
		return unavailable(err)
	}
	return nil
}

// reverseDebit handles a credit that failed after the debit applied.
// The transaction is rolled back; if that fails the unit stays open, so
// the source is credited back inside it and it commits with a net effect
// of zero. If that fails too the unit is discarded, which retries the
// rollback and releases the connection. A transient credit failure that
// rolls back cleanly is an ordinary transient error. Everything else is
// a consistency fault and is logged for reconciliation.
func (e *Engine) reverseDebit(logger *slog.Logger, tx accountstore.Transaction, source string, amount int64, creditErr error) *Error {
	rollbackErr := tx.Rollback()
	if rollbackErr == nil {
		if accountstore.IsTransient(creditErr) {
			logger.Warn("credit interrupted, transaction rolled back", "error", creditErr)
			return unavailable(creditErr)
		}
		logger.Error("ledger anomaly: credit failed after debit",
			"error", creditErr,
			"reversal", "rollback",
			"reconciliation_required", false,
		)
		return newError(KindConsistencyFault, creditErr, "transfer could not be completed and was reversed")
	}

	compensationErr := tx.Credit(source, amount)
	if compensationErr == nil {
		compensationErr = tx.Commit()
	}
	switch {
	case compensationErr == nil:
		logger.Error("ledger anomaly: credit failed after debit",
			"error", creditErr,
			"rollback_error", rollbackErr,
			"reversal", "compensating_credit",
			"reconciliation_required", false,
		)
	case errors.Is(compensationErr, accountstore.ErrTransactionDone):
		// The store ended the unit without committing it.
		logger.Error("ledger anomaly: credit failed after debit",
			"error", creditErr,
			"rollback_error", rollbackErr,
			"reversal", "store_abort",
			"reconciliation_required", false,
		)
	default:
		discardErr := tx.Discard()
		if discardErr == nil {
			logger.Error("ledger anomaly: credit failed after debit",
				"error", creditErr,
				"rollback_error", rollbackErr,
				"compensation_error", compensationErr,
				"reversal", "discard",
				"reconciliation_required", false,
			)
			break
		}
		logger.Error("ledger anomaly: credit failed after debit and the debit could not be reversed; manual reconciliation required",
			"error", creditErr,
			"rollback_error", rollbackErr,
			"compensation_error", compensationErr,
			"discard_error", discardErr,
			"reconciliation_required", true,
		)
	}
	return newError(KindConsistencyFault, creditErr, "transfer could not be completed")
}

// rollback ends tx without committing. A failed rollback leaves the
// unit open, so it is discarded to release the connection.
func (e *Engine) rollback(logger *slog.Logger, tx accountstore.Transaction) {
	err := tx.Rollback()
	if err == nil {
		return
	}
	logger.Warn("rollback failed", "error", err)
	if err := tx.Discard(); err != nil {
		logger.Error("discarding transaction failed", "error", err)
	}
}

// retry runs operation, and runs it once more if it failed transiently
// while ctx still has time left. It returns the number of runs.
func (e *Engine) retry(ctx context.Context, logger *slog.Logger, step string, operation func() *Error) (int, *Error) {
	failure := operation()
	if failure == nil || failure.Kind != KindTransient || ctx.Err() != nil {
		return 1, failure
	}
	logger.Warn("transient failure, retrying", "step", step, "error", failure.Err)
	return 2, operation()
}

func unavailable(cause error) *Error {
	return newError(KindTransient, cause, "ledger temporarily unavailable")
}

func insufficientFunds(account string) *Error {
	return newError(KindInsufficientFunds, nil, "insufficient funds in account %s", account)
}
