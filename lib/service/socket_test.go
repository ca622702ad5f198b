// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/ledger/lib/codec"
	"github.com/bureau-foundation/ledger/lib/testutil"
)

// sendRequest connects to a Unix socket, sends a CBOR request, and
// returns the decoded response envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to socket: %v", err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		t.Fatalf("writing request: %v", err)
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return response
}

// decodeData unmarshals the Data field of a response into target.
func decodeData(t *testing.T, response Response, target any) {
	t.Helper()
	if len(response.Data) == 0 {
		t.Fatal("response has no data to decode")
	}
	if err := codec.Unmarshal(response.Data, target); err != nil {
		t.Fatalf("decoding response data: %v", err)
	}
}

func testSocketPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(testutil.SocketDir(t), "ledger.sock")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// startServer runs server.Serve until the test ends and waits for the
// socket to be listening. The returned function cancels Serve and
// waits for it to return.
func startServer(t *testing.T, server *SocketServer) (stop func() error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- server.Serve(ctx)
	}()
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "socket server ready")

	var once sync.Once
	var serveErr error
	stop = func() error {
		once.Do(func() {
			cancel()
			serveErr = testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return after cancellation")
		})
		return serveErr
	}
	t.Cleanup(func() { stop() })
	return stop
}

// tokenTable authenticates tokens whose bytes are a key of the map.
type tokenTable map[string]string

func (table tokenTable) Authenticate(ctx context.Context, token []byte) (string, error) {
	subject, ok := table[string(token)]
	if !ok {
		return "", errors.New("token not recognized")
	}
	return subject, nil
}

type kindedError struct {
	kind string
}

func (e *kindedError) Error() string     { return "failed with " + e.kind }
func (e *kindedError) ErrorKind() string { return e.kind }

func TestSocketServerStatus(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]any{"uptime_seconds": 42}, nil
	})
	stop := startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "status"})
	if !response.OK {
		t.Fatalf("expected ok=true, got error %q", response.Error)
	}
	var data map[string]any
	decodeData(t, response, &data)
	if data["uptime_seconds"] != uint64(42) {
		t.Errorf("expected uptime_seconds=42, got %v (%T)", data["uptime_seconds"], data["uptime_seconds"])
	}

	if err := stop(); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
}

func TestSocketServerSocketPermissions(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)
	startServer(t, server)

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("stat socket: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("socket mode = %o, want 600", mode)
	}
}

func TestSocketServerProtocolErrors(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	tests := []struct {
		name    string
		request any
		want    string
	}{
		{"unknown action", map[string]string{"action": "nonexistent"}, `unknown action "nonexistent"`},
		{"missing action", map[string]string{"foo": "bar"}, "missing required field: action"},
		{"not a map", []string{"status"}, "invalid request"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := sendRequest(t, socketPath, test.request)
			if response.OK {
				t.Fatal("expected ok=false")
			}
			if !strings.Contains(response.Error, test.want) {
				t.Errorf("error = %q, want it to contain %q", response.Error, test.want)
			}
			if response.Kind != "" {
				t.Errorf("kind = %q, want empty for a protocol error", response.Kind)
			}
		})
	}
}

func TestSocketServerInvalidCBOR(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)
	startServer(t, server)

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting: %v", err)
	}
	defer conn.Close()
	// 0xff is a CBOR "break" with no enclosing indefinite item.
	if _, err := conn.Write([]byte{0xff}); err != nil {
		t.Fatalf("writing: %v", err)
	}
	conn.(*net.UnixConn).CloseWrite()

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if response.OK {
		t.Error("expected ok=false for malformed CBOR")
	}
}

func TestSocketServerHandlerErrorKind(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)
	server.Handle("kinded", func(ctx context.Context, raw []byte) (any, error) {
		return nil, fmt.Errorf("wrapped: %w", &kindedError{kind: "insufficient_funds"})
	})
	server.Handle("plain", func(ctx context.Context, raw []byte) (any, error) {
		return nil, errors.New("something broke")
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "kinded"})
	if response.OK {
		t.Fatal("expected ok=false")
	}
	if response.Kind != "insufficient_funds" {
		t.Errorf("kind = %q, want insufficient_funds", response.Kind)
	}
	if response.Error != "wrapped: failed with insufficient_funds" {
		t.Errorf("error = %q", response.Error)
	}

	response = sendRequest(t, socketPath, map[string]string{"action": "plain"})
	if response.OK || response.Kind != "" || response.Error != "something broke" {
		t.Errorf("plain error response = %+v", response)
	}
}

func TestSocketServerNilResult(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)
	server.Handle("noop", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]string{"action": "noop"})
	if !response.OK {
		t.Fatalf("expected ok=true, got error %q", response.Error)
	}
	if len(response.Data) != 0 {
		t.Errorf("expected no data, got %d bytes", len(response.Data))
	}
}

func TestSocketServerConcurrentRequests(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)
	server.Handle("echo", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			Value int `cbor:"value"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]any{"value": request.Value}, nil
	})
	startServer(t, server)

	const concurrency = 20
	var clientWg sync.WaitGroup
	for i := range concurrency {
		clientWg.Add(1)
		go func() {
			defer clientWg.Done()
			response := sendRequest(t, socketPath, map[string]any{
				"action": "echo",
				"value":  i,
			})
			if !response.OK {
				t.Errorf("request %d: expected ok=true", i)
				return
			}
			var data map[string]any
			decodeData(t, response, &data)
			if data["value"] != uint64(i) {
				t.Errorf("request %d: expected value=%d, got %v", i, i, data["value"])
			}
		}()
	}
	clientWg.Wait()
}

func TestSocketServerGracefulShutdown(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), nil)

	handlerStarted := make(chan struct{})
	handlerRelease := make(chan struct{})
	server.Handle("slow", func(ctx context.Context, raw []byte) (any, error) {
		close(handlerStarted)
		<-handlerRelease
		return map[string]any{"completed": true}, nil
	})
	stop := startServer(t, server)

	responseChan := make(chan Response, 1)
	go func() {
		responseChan <- sendRequest(t, socketPath, map[string]string{"action": "slow"})
	}()

	testutil.RequireClosed(t, handlerStarted, 5*time.Second, "handler started")
	stopped := make(chan error, 1)
	go func() { stopped <- stop() }()
	close(handlerRelease)

	response := testutil.RequireReceive(t, responseChan, 5*time.Second, "in-flight response")
	if !response.OK {
		t.Errorf("expected ok=true for in-flight request, got error %q", response.Error)
	}
	if err := testutil.RequireReceive(t, stopped, 5*time.Second, "Serve return"); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Error("socket file not cleaned up after Serve returned")
	}
}

func TestSocketServerRemovesStaleSocket(t *testing.T) {
	socketPath := testSocketPath(t)
	if err := os.WriteFile(socketPath, nil, 0o600); err != nil {
		t.Fatalf("writing stale file: %v", err)
	}
	server := NewSocketServer(socketPath, testLogger(), nil)
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	if response := sendRequest(t, socketPath, map[string]string{"action": "status"}); !response.OK {
		t.Errorf("expected ok=true after replacing stale socket, got %q", response.Error)
	}
}

func TestSocketServerDuplicateHandlerPanics(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", testLogger(), nil)
	server.Handle("foo", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})

	defer func() {
		recovered := recover()
		if recovered == nil {
			t.Fatal("expected panic on duplicate handler registration")
		}
		message, ok := recovered.(string)
		if !ok || !strings.Contains(message, `duplicate handler for action "foo"`) {
			t.Errorf("panic = %v", recovered)
		}
	}()
	server.Handle("foo", func(ctx context.Context, raw []byte) (any, error) {
		return nil, nil
	})
}

func TestSocketServerHandleAuthPanicsWithoutAuthenticator(t *testing.T) {
	server := NewSocketServer("/tmp/unused.sock", testLogger(), nil)
	defer func() {
		recovered := recover()
		message, ok := recovered.(string)
		if !ok || !strings.Contains(message, "requires an Authenticator") {
			t.Errorf("panic = %v, want Authenticator requirement", recovered)
		}
	}()
	server.HandleAuth("balance", func(ctx context.Context, subject string, raw []byte) (any, error) {
		return nil, nil
	})
}

func TestSocketServerHandleAuth(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), tokenTable{"alice-token": "alice@example.com"})
	server.HandleAuth("whoami", func(ctx context.Context, subject string, raw []byte) (any, error) {
		return map[string]string{"subject": subject}, nil
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]any{
		"action": "whoami",
		"token":  []byte("alice-token"),
	})
	if !response.OK {
		t.Fatalf("expected ok=true, got error %q", response.Error)
	}
	var data map[string]string
	decodeData(t, response, &data)
	if data["subject"] != "alice@example.com" {
		t.Errorf("subject = %q, want alice@example.com", data["subject"])
	}
}

func TestSocketServerAuthRejections(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), tokenTable{"alice-token": "alice@example.com"})
	var handlerRan atomic.Bool
	server.HandleAuth("whoami", func(ctx context.Context, subject string, raw []byte) (any, error) {
		handlerRan.Store(true)
		return nil, nil
	})
	startServer(t, server)

	tests := []struct {
		name    string
		request map[string]any
		want    string
	}{
		{"missing token", map[string]any{"action": "whoami"}, "missing required field: token"},
		{"empty token", map[string]any{"action": "whoami", "token": []byte{}}, "missing required field: token"},
		{"unknown token", map[string]any{"action": "whoami", "token": []byte("mallory-token")}, "token not recognized"},
		{"token of wrong type", map[string]any{"action": "whoami", "token": 7}, "invalid request"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			response := sendRequest(t, socketPath, test.request)
			if response.OK {
				t.Fatal("expected ok=false")
			}
			if !strings.Contains(response.Error, test.want) {
				t.Errorf("error = %q, want it to contain %q", response.Error, test.want)
			}
		})
	}
	if handlerRan.Load() {
		t.Error("authenticated handler ran for a rejected request")
	}

	response := sendRequest(t, socketPath, map[string]any{"action": "whoami", "token": []byte("mallory-token")})
	if response.Kind != KindUnauthenticated {
		t.Errorf("kind = %q, want %q", response.Kind, KindUnauthenticated)
	}
}

type failingAuthenticator struct {
	err error
}

func (a failingAuthenticator) Authenticate(ctx context.Context, token []byte) (string, error) {
	return "", a.err
}

func TestSocketServerAuthenticatorKindPreserved(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), failingAuthenticator{err: &kindedError{kind: "transient"}})
	server.HandleAuth("whoami", func(ctx context.Context, subject string, raw []byte) (any, error) {
		return nil, nil
	})
	startServer(t, server)

	response := sendRequest(t, socketPath, map[string]any{"action": "whoami", "token": []byte("anything")})
	if response.OK {
		t.Fatal("expected ok=false")
	}
	if response.Kind != "transient" {
		t.Errorf("kind = %q, want transient", response.Kind)
	}
}

func TestSocketServerMixedHandlers(t *testing.T) {
	socketPath := testSocketPath(t)
	server := NewSocketServer(socketPath, testLogger(), tokenTable{"bob-token": "bob@example.com"})
	server.Handle("status", func(ctx context.Context, raw []byte) (any, error) {
		return map[string]bool{"up": true}, nil
	})
	server.HandleAuth("whoami", func(ctx context.Context, subject string, raw []byte) (any, error) {
		return map[string]string{"subject": subject}, nil
	})
	startServer(t, server)

	if response := sendRequest(t, socketPath, map[string]any{"action": "status"}); !response.OK {
		t.Errorf("status without token: %q", response.Error)
	}
	if response := sendRequest(t, socketPath, map[string]any{"action": "whoami"}); response.OK {
		t.Error("whoami without token succeeded")
	}
	if response := sendRequest(t, socketPath, map[string]any{"action": "whoami", "token": []byte("bob-token")}); !response.OK {
		t.Errorf("whoami with token: %q", response.Error)
	}
}
