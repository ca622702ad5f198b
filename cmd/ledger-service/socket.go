// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/ledger/lib/accountstore"
	"github.com/bureau-foundation/ledger/lib/codec"
	"github.com/bureau-foundation/ledger/lib/identity"
	"github.com/bureau-foundation/ledger/lib/secret"
	"github.com/bureau-foundation/ledger/lib/service"
	"github.com/bureau-foundation/ledger/lib/transfer"
	"github.com/bureau-foundation/ledger/lib/version"
)

// registerActions registers all socket API actions on the server.
//
// "status" and "login" are unauthenticated. Every action that reads or
// moves money takes its owner from the session token, never from the
// request.
func (s *LedgerService) registerActions(server *service.SocketServer) {
	server.Handle("status", s.handleStatus)
	server.Handle("login", s.handleLogin)
	server.HandleAuth("logout", s.handleLogout)
	server.HandleAuth("balance", s.handleBalance)
	server.HandleAuth("accounts", s.handleAccounts)
	server.HandleAuth("transfer", s.handleTransfer)
}

type statusResponse struct {
	UptimeSeconds float64 `cbor:"uptime_seconds"`
	Version       string  `cbor:"version"`

	// TransferCeiling is the largest amount one transfer may move.
	TransferCeiling int64 `cbor:"transfer_ceiling"`
}

func (s *LedgerService) handleStatus(ctx context.Context, raw []byte) (any, error) {
	return statusResponse{
		UptimeSeconds:   s.clock.Now().Sub(s.startedAt).Seconds(),
		Version:         version.Info(),
		TransferCeiling: s.engine.Ceiling(),
	}, nil
}

type loginRequest struct {
	Email    string `cbor:"email"`
	Password []byte `cbor:"password"`
}

type loginResponse struct {
	Token     []byte    `cbor:"token"`
	Subject   string    `cbor:"subject"`
	ExpiresAt time.Time `cbor:"expires_at"`
}

func (s *LedgerService) handleLogin(ctx context.Context, raw []byte) (any, error) {
	var request loginRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid login request: %w", err)
	}
	defer secret.Zero(request.Password)

	if request.Email == "" || len(request.Password) == 0 {
		return nil, &actionError{kind: string(transfer.KindValidation), message: "email and password are required"}
	}
	session, err := s.directory.Login(ctx, request.Email, request.Password)
	if err != nil {
		return nil, s.publicError("login", err)
	}
	return loginResponse{
		Token:     session.Token,
		Subject:   session.Subject,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *LedgerService) handleLogout(ctx context.Context, subject string, raw []byte) (any, error) {
	var request struct {
		Token []byte `cbor:"token"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid logout request: %w", err)
	}
	if err := s.directory.Logout(ctx, request.Token); err != nil {
		return nil, s.publicError("logout", err)
	}
	return nil, nil
}

type balanceResponse struct {
	Account string `cbor:"account"`
	Balance int64  `cbor:"balance"`
}

func (s *LedgerService) handleBalance(ctx context.Context, subject string, raw []byte) (any, error) {
	var request struct {
		Account string `cbor:"account"`
	}
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid balance request: %w", err)
	}
	balance, err := s.engine.Balance(ctx, request.Account, subject)
	if err != nil {
		return nil, s.publicError("balance", err)
	}
	return balanceResponse{Account: request.Account, Balance: balance}, nil
}

type accountsResponse struct {
	Owner    string                 `cbor:"owner"`
	Accounts []accountstore.Account `cbor:"accounts"`
}

func (s *LedgerService) handleAccounts(ctx context.Context, subject string, raw []byte) (any, error) {
	accounts, err := s.engine.Accounts(ctx, subject)
	if err != nil {
		return nil, s.publicError("accounts", err)
	}
	if accounts == nil {
		accounts = []accountstore.Account{}
	}
	return accountsResponse{Owner: subject, Accounts: accounts}, nil
}

type transferRequest struct {
	Source      string `cbor:"source"`
	Target      string `cbor:"target"`
	TargetOwner string `cbor:"target_owner"`

	// Amount is text so malformed input is rejected by the engine's
	// validation rather than by the decoder.
	Amount string `cbor:"amount"`
}

func (s *LedgerService) handleTransfer(ctx context.Context, subject string, raw []byte) (any, error) {
	var request transferRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, &actionError{kind: string(transfer.KindValidation), message: "malformed transfer request"}
	}
	result, err := s.engine.Transfer(ctx, transfer.Request{
		SourceAccount: request.Source,
		SourceOwner:   subject,
		TargetAccount: request.Target,
		TargetOwner:   request.TargetOwner,
		Amount:        request.Amount,
	})
	if err != nil {
		return nil, s.publicError("transfer", err)
	}
	return result, nil
}

// publicError strips internal causes from err before it crosses the
// socket. The engine and directory have already logged them.
func (s *LedgerService) publicError(action string, err error) error {
	var transferErr *transfer.Error
	if errors.As(err, &transferErr) {
		return &transfer.Error{Kind: transferErr.Kind, Reason: transferErr.Reason}
	}
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		return &actionError{kind: service.KindUnauthenticated, message: "invalid credentials"}
	case errors.Is(err, identity.ErrUnauthenticated):
		return &actionError{kind: service.KindUnauthenticated, message: "session is not valid"}
	case accountstore.IsTransient(err):
		s.logger.Warn("action unavailable", "action", action, "error", err)
		return &actionError{kind: string(transfer.KindTransient), message: "ledger temporarily unavailable"}
	}
	s.logger.Error("action failed", "action", action, "error", err)
	return errors.New("internal error")
}

// actionError is a failure the service reports itself rather than one
// the engine returned. Its kind uses the same vocabulary.
type actionError struct {
	kind    string
	message string
}

func (e *actionError) Error() string     { return e.message }
func (e *actionError) ErrorKind() string { return e.kind }
