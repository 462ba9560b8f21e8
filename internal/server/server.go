// Package server implements the listener/shutdown lifecycle: TCP and Unix
// domain socket listeners plus an OS-signal-fed broadcast that tells every
// registered listener to stop, grounded on pkg/peer/manager.go's
// `eg.Go(func() error { <-ctx.Done(); m.cleanup(); return nil })` shutdown
// drain, generalized from "one peer manager" to "all registered
// listeners".
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

// Dispatch handles one accepted connection. Real wire framing (gRPC
// codecs, compression negotiation, reflection) is an external
// collaborator this module doesn't implement; Dispatch is where a real
// server would be mounted.
type Dispatch func(ctx context.Context, conn net.Conn)

// Listener wraps a net.Listener with a name (for logging) and, for Unix
// sockets, cleanup of the socket file on shutdown.
type Listener struct {
	Name   string
	ln     net.Listener
	unlink string // non-empty for UDS listeners
}

// ListenTCP opens a TCP listener at addr.
func ListenTCP(name, addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("server: listen tcp %s: %w", addr, err)
	}

	return &Listener{Name: name, ln: ln}, nil
}

// ListenUnix opens a Unix domain socket listener at path, removing any
// stale socket file first.
func ListenUnix(name, path string) (*Listener, error) {
	_ = os.Remove(path)

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("server: listen unix %s: %w", path, err)
	}

	return &Listener{Name: name, ln: ln, unlink: path}, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.ln.Addr() }

func (l *Listener) serve(ctx context.Context, dispatch Dispatch, log *slog.Logger) error {
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("accept failed", slog.String("listener", l.Name), slog.String("error", err.Error()))
			continue
		}

		go dispatch(ctx, conn)
	}
}

func (l *Listener) close() error {
	err := l.ln.Close()
	if l.unlink != "" {
		_ = os.Remove(l.unlink)
	}
	return err
}

// Broadcast is a close-channel-based wake signal fed by SIGINT/SIGTERM,
// shared by every registered listener's shutdown goroutine.
type Broadcast struct {
	once sync.Once
	ch   chan struct{}
}

// NewBroadcast returns a Broadcast that fires on SIGINT/SIGTERM.
func NewBroadcast() *Broadcast {
	b := &Broadcast{ch: make(chan struct{})}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		b.Fire()
	}()

	return b
}

// Fire closes the broadcast channel, idempotently.
func (b *Broadcast) Fire() {
	b.once.Do(func() { close(b.ch) })
}

// Done returns the channel that closes when shutdown is requested.
func (b *Broadcast) Done() <-chan struct{} { return b.ch }

// Run accepts on every listener until shutdown fires, then closes them
// all and waits for their accept loops to return.
func Run(ctx context.Context, shutdown *Broadcast, dispatch Dispatch, log *slog.Logger, listeners ...*Listener) error {
	eg, ctx := errgroup.WithContext(ctx)

	for _, l := range listeners {
		l := l
		eg.Go(func() error { return l.serve(ctx, dispatch, log) })
	}

	eg.Go(func() error {
		select {
		case <-ctx.Done():
		case <-shutdown.Done():
		}

		for _, l := range listeners {
			if err := l.close(); err != nil {
				log.Warn("close listener failed", slog.String("listener", l.Name), slog.String("error", err.Error()))
			}
		}

		return nil
	})

	return eg.Wait()
}
