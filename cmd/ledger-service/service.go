// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/ledger/lib/clock"
	"github.com/bureau-foundation/ledger/lib/identity"
	"github.com/bureau-foundation/ledger/lib/ledger"
	"github.com/bureau-foundation/ledger/lib/service"
	"github.com/bureau-foundation/ledger/lib/transfer"
)

// defaultJanitorInterval is how often expired revocations are pruned.
const defaultJanitorInterval = 10 * time.Minute

// LedgerService is the socket-facing state of the daemon.
type LedgerService struct {
	engine    *transfer.Engine
	directory *identity.Directory
	clock     clock.Clock
	startedAt time.Time
	logger    *slog.Logger

	janitorInterval time.Duration
}

func newLedgerService(opened *ledger.Ledger, clk clock.Clock, logger *slog.Logger) *LedgerService {
	return &LedgerService{
		engine:          opened.Engine,
		directory:       opened.Directory,
		clock:           clk,
		startedAt:       clk.Now(),
		logger:          logger,
		janitorInterval: defaultJanitorInterval,
	}
}

// newSocketServer creates the socket server with every action
// registered.
func (s *LedgerService) newSocketServer(socketPath string) *service.SocketServer {
	server := service.NewSocketServer(socketPath, s.logger, sessionAuthenticator{
		directory: s.directory,
		logger:    s.logger,
	})
	s.registerActions(server)
	return server
}

// serve runs the socket server and the revocation janitor until ctx
// is cancelled.
func (s *LedgerService) serve(ctx context.Context, server *service.SocketServer) error {
	var janitor sync.WaitGroup
	janitor.Add(1)
	go func() {
		defer janitor.Done()
		s.runJanitor(ctx)
	}()

	err := server.Serve(ctx)
	janitor.Wait()
	return err
}

// runJanitor prunes revocations of sessions that have since expired.
func (s *LedgerService) runJanitor(ctx context.Context) {
	ticker := s.clock.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.directory.PruneRevocations(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("pruning revoked sessions failed", "error", err)
				}
				continue
			}
			if removed > 0 {
				s.logger.Info("pruned revoked sessions", "removed", removed)
			}
		}
	}
}

// sessionAuthenticator separates a refused token from a revocation
// list that could not be read. Only the former is an authentication
// failure.
type sessionAuthenticator struct {
	directory *identity.Directory
	logger    *slog.Logger
}

func (a sessionAuthenticator) Authenticate(ctx context.Context, token []byte) (string, error) {
	subject, err := a.directory.Authenticate(ctx, token)
	if err == nil || errors.Is(err, identity.ErrUnauthenticated) {
		return subject, err
	}
	a.logger.Warn("session check unavailable", "error", err)
	return "", &actionError{kind: string(transfer.KindTransient), message: "session check unavailable"}
}
