// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/ledger/lib/codec"
	"github.com/bureau-foundation/ledger/lib/netutil"
)

// KindUnauthenticated is the Response.Kind of a request rejected
// because its token was missing, invalid, expired, or revoked.
const KindUnauthenticated = "unauthenticated"

// ActionFunc processes a socket request for a specific action. The raw
// parameter is the full CBOR request (including the "action" field).
// The handler decodes action-specific fields from this raw message.
//
// Return a value to include in the success response, or an error for
// a failure response. If the returned value is nil, the response
// contains only {ok: true}. If non-nil, the value is marshaled as
// CBOR and placed in the response's "data" field.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// AuthActionFunc is an ActionFunc that runs only after the request's
// token has been authenticated. subject is the identity the token was
// issued to.
type AuthActionFunc func(ctx context.Context, subject string, raw []byte) (any, error)

// Authenticator verifies the token carried in a request and returns
// the subject it was issued to.
type Authenticator interface {
	Authenticate(ctx context.Context, token []byte) (string, error)
}

// Response is the wire-format envelope for all socket protocol
// responses. Handlers return a result value (or nil) and an error;
// the server wraps these into a Response before encoding.
//
// Kind classifies a failure when the handler's error carries one (see
// [KindError]). Clients branch on Kind, never on Error text.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Kind  string           `cbor:"kind,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// KindError is implemented by errors that carry a machine-readable
// outcome kind. The server copies the kind of the first such error in
// the chain into Response.Kind.
type KindError interface {
	error
	ErrorKind() string
}

// SocketServer serves a CBOR request-response protocol on a Unix
// socket. Each connection handles exactly one request-response cycle:
// the client writes a CBOR value, the server processes it and writes
// a CBOR response, then the connection closes.
//
// Actions are registered with Handle or HandleAuth before calling
// Serve. Unknown actions receive an error response.
type SocketServer struct {
	socketPath    string
	handlers      map[string]ActionFunc
	authenticator Authenticator
	logger        *slog.Logger
	ready         chan struct{}

	// activeConnections tracks in-flight request handlers for graceful
	// shutdown. Serve waits for all active connections to complete
	// before returning.
	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath.
// authenticator may be nil if no action is registered with HandleAuth.
func NewSocketServer(socketPath string, logger *slog.Logger, authenticator Authenticator) *SocketServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketServer{
		socketPath:    socketPath,
		handlers:      make(map[string]ActionFunc),
		authenticator: authenticator,
		logger:        logger,
		ready:         make(chan struct{}),
	}
}

// Ready is closed once the socket is listening.
func (s *SocketServer) Ready() <-chan struct{} { return s.ready }

// Handle registers a handler for the given action name. Panics if the
// action is already registered.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// HandleAuth registers a handler that requires a valid "token" field.
// Requests without one are rejected with KindUnauthenticated before
// the handler runs, as are requests whose token the Authenticator
// refuses with an error that carries no kind of its own. Panics if the server has no Authenticator or the
// action is already registered.
func (s *SocketServer) HandleAuth(action string, handler AuthActionFunc) {
	if s.authenticator == nil {
		panic(fmt.Sprintf("service.SocketServer: HandleAuth(%q) requires an Authenticator", action))
	}
	s.Handle(action, func(ctx context.Context, raw []byte) (any, error) {
		var envelope struct {
			Token []byte `cbor:"token"`
		}
		if err := codec.Unmarshal(raw, &envelope); err != nil {
			return nil, fmt.Errorf("invalid request: %w", err)
		}
		if len(envelope.Token) == 0 {
			return nil, &authError{err: errors.New("unauthenticated: missing required field: token")}
		}
		subject, err := s.authenticator.Authenticate(ctx, envelope.Token)
		if err != nil {
			// An error that already carries a kind (an unreachable
			// revocation list, say) is not a verdict on the token.
			if errorKind(err) != "" {
				return nil, err
			}
			return nil, &authError{err: err}
		}
		return handler(ctx, subject, raw)
	})
}

// Serve starts accepting connections on the Unix socket and dispatches
// requests to registered action handlers. Blocks until ctx is
// cancelled, then stops accepting new connections and waits for active
// handlers to complete.
//
// Any existing socket file at the configured path is removed before
// listening. The socket file is removed on return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		return fmt.Errorf("restricting socket %s: %w", s.socketPath, err)
	}

	// Unblock Accept when the context is cancelled.
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)
	close(s.ready)

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

// readTimeout is how long we wait for the client to send its request.
const readTimeout = 30 * time.Second

// writeTimeout is how long we wait for the response to be written.
const writeTimeout = 10 * time.Second

// maxRequestSize bounds a single CBOR request. Ledger requests are a
// handful of short strings.
const maxRequestSize = 64 * 1024

// handleConnection processes one request-response cycle.
func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))

	// CBOR is self-delimiting so no framing protocol is needed.
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if netutil.IsExpectedCloseError(err) {
			return
		}
		s.writeError(conn, fmt.Errorf("invalid request: %w", err))
		return
	}

	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		s.writeError(conn, fmt.Errorf("invalid request: %w", err))
		return
	}
	if header.Action == "" {
		s.writeError(conn, errors.New("missing required field: action"))
		return
	}

	handler, exists := s.handlers[header.Action]
	if !exists {
		s.writeError(conn, fmt.Errorf("unknown action %q", header.Action))
		return
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		s.logger.Debug("action failed",
			"action", header.Action,
			"kind", errorKind(err),
			"error", err,
		)
		s.writeError(conn, err)
		return
	}

	s.writeSuccess(conn, result)
}

// writeError sends a failure response: {ok: false, error: "...",
// kind: "..."}. Write failures are logged at debug level since the
// connection is closing regardless.
func (s *SocketServer) writeError(conn net.Conn, err error) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(Response{
		OK:    false,
		Error: err.Error(),
		Kind:  errorKind(err),
	}); err != nil && !netutil.IsExpectedCloseError(err) {
		s.logger.Debug("failed to write error response", "error", err)
	}
}

// writeSuccess sends a success response. If result is nil, the
// response is {ok: true}. If non-nil, the value is marshaled as CBOR
// and placed in the "data" field: {ok: true, data: <cbor>}.
func (s *SocketServer) writeSuccess(conn net.Conn, result any) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))

	response := Response{OK: true}

	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			s.writeError(conn, fmt.Errorf("internal: marshaling response: %w", err))
			return
		}
		response.Data = data
	}

	if err := codec.NewEncoder(conn).Encode(response); err != nil && !netutil.IsExpectedCloseError(err) {
		s.logger.Debug("failed to write success response", "error", err)
	}
}

func errorKind(err error) string {
	var kinded KindError
	if errors.As(err, &kinded) {
		return kinded.ErrorKind()
	}
	return ""
}

type authError struct {
	err error
}

func (e *authError) Error() string     { return e.err.Error() }
func (e *authError) Unwrap() error     { return e.err }
func (e *authError) ErrorKind() string { return KindUnauthenticated }
