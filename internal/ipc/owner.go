package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	claimAttempts = 4
	claimBackoff  = 25 * time.Millisecond
	// maxRequestBytes caps one request line.
	maxRequestBytes = 4 << 10
	readTimeout     = 2 * time.Second
)

// Handler answers one control request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Owner holds the control socket for the running workout.
type Owner struct {
	listener net.Listener
	path     string
	once     sync.Once
}

// Claim binds the endpoint. A socket file left by a crashed owner is
// reclaimed; a live owner yields ErrAlreadyRunning. A socket that exists but
// does not answer in time is left alone and reported as an error.
func (e Endpoint) Claim(ctx context.Context) (*Owner, error) {
	if err := os.MkdirAll(filepath.Dir(e.Path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure runtime socket dir: %w", err)
	}

	for attempt := 1; ; attempt++ {
		ln, err := net.Listen("unix", e.Path)
		if err == nil {
			_ = os.Chmod(e.Path, 0o600)
			return &Owner{listener: ln, path: e.Path}, nil
		}
		if !addrInUse(err) {
			return nil, fmt.Errorf("listen unix %s: %w", e.Path, err)
		}

		alive, err := e.Alive(ctx)
		switch {
		case alive:
			return nil, ErrAlreadyRunning
		case err != nil:
			return nil, fmt.Errorf("probe existing socket %s: %w", e.Path, err)
		}
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", e.Path, err)
		}

		if attempt == claimAttempts {
			return nil, fmt.Errorf("claim socket %s: gave up after %d attempts", e.Path, attempt)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * claimBackoff):
		}
	}
}

// Serve answers requests until ctx is cancelled or the owner is closed.
func (o *Owner) Serve(ctx context.Context, handler Handler) error {
	return Serve(ctx, o.listener, handler)
}

// Close stops listening and removes the socket file.
func (o *Owner) Close() error {
	var err error
	o.once.Do(func() {
		err = o.listener.Close()
		if rmErr := os.Remove(o.path); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
		if errors.Is(err, net.ErrClosed) {
			err = nil
		}
	})
	return err
}

// Serve accepts connections on ln, one request and one reply each, until ctx
// is cancelled or ln is closed. In-flight replies finish before it returns.
func Serve(ctx context.Context, ln net.Listener, handler Handler) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept control connection: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer conn.Close()
			_ = writeLine(conn, answer(ctx, conn, handler))
		}()
	}
}

func answer(ctx context.Context, conn net.Conn, handler Handler) Response {
	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	line, err := bufio.NewReader(io.LimitReader(conn, maxRequestBytes)).ReadBytes('\n')
	if err != nil {
		return Response{Error: fmt.Sprintf("read request: %v", err)}
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{Error: fmt.Sprintf("decode request: %v", err)}
	}
	req.Command = strings.ToLower(strings.TrimSpace(req.Command))
	if req.Command == "" {
		return Response{Error: "missing command"}
	}
	return handler.Handle(ctx, req)
}

func addrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use")
}
