package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"
)

const (
	socketName = "ringbell.sock"
	// DefaultTimeout bounds one command roundtrip.
	DefaultTimeout = 2 * time.Second
)

var (
	// ErrNotRunning is returned when no workout owner is listening.
	ErrNotRunning = errors.New("no ringbell workout is running")
	// ErrAlreadyRunning is returned by Claim when a live owner answers.
	ErrAlreadyRunning = errors.New("a ringbell workout is already running")
)

// Endpoint addresses the control socket of a workout owner.
type Endpoint struct {
	Path    string
	Timeout time.Duration
}

// DefaultEndpoint is $XDG_RUNTIME_DIR/ringbell.sock.
func DefaultEndpoint() (Endpoint, error) {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		return Endpoint{}, errors.New("XDG_RUNTIME_DIR is not set")
	}
	return Endpoint{Path: filepath.Join(dir, socketName), Timeout: DefaultTimeout}, nil
}

func (e Endpoint) timeout() time.Duration {
	if e.Timeout <= 0 {
		return DefaultTimeout
	}
	return e.Timeout
}

// Call sends one command and waits for the reply. A missing socket or a
// refused connection is reported as ErrNotRunning.
func (e Endpoint) Call(ctx context.Context, command string) (Response, error) {
	resp, err := e.exchange(ctx, Request{Command: command})
	if err != nil && (errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)) {
		return Response{}, ErrNotRunning
	}
	return resp, err
}

// Alive reports whether an owner answers a status request.
func (e Endpoint) Alive(ctx context.Context) (bool, error) {
	_, err := e.Call(ctx, CommandStatus)
	if errors.Is(err, ErrNotRunning) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe socket: %w", err)
	}
	return true, nil
}

func (e Endpoint) exchange(ctx context.Context, req Request) (Response, error) {
	timeout := e.timeout()
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", e.Path)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return Response{}, fmt.Errorf("set deadline: %w", err)
	}

	if err := writeLine(conn, req); err != nil {
		return Response{}, fmt.Errorf("encode request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}

func writeLine(conn net.Conn, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(raw, '\n'))
	return err
}
