package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/moffa90/go-znp/protocol"
)

// Link is a request/response session with a radio over a byte stream.
//
// A single reader goroutine decodes incoming frames and hands each one to
// the requests waiting for it. Requests may be issued from one goroutine at
// a time; the link does not queue or reorder them.
type Link struct {
	port   io.ReadWriteCloser
	config Config

	writeMu sync.Mutex

	mu        sync.Mutex
	listeners map[*listener]struct{}
	err       error
	closing   bool

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
	group     errgroup.Group
}

// listener is a one-shot subscription for the first frame matching any of
// its matchers.
type listener struct {
	matchers []protocol.Matcher
	ch       chan *protocol.Frame
}

func (lst *listener) matches(f *protocol.Frame) bool {
	for _, m := range lst.matchers {
		if m.Matches(f) {
			return true
		}
	}
	return false
}

// Connect starts a session on an already opened port.
//
// With WithSkipBootloader the force-run byte is written first; with
// WithTestPort the radio is pinged until it answers. Without either option
// nothing is written, which is what a bootloader session needs.
func Connect(ctx context.Context, port io.ReadWriteCloser, opts ...Option) (*Link, error) {
	if port == nil {
		return nil, fmt.Errorf("port cannot be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	l := &Link{
		port:      port,
		config:    cfg,
		listeners: make(map[*listener]struct{}),
		done:      make(chan struct{}),
	}
	l.group.Go(l.readLoop)

	if cfg.SkipBootloader {
		if err := l.skipBootloader(ctx); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("skip bootloader: %w", err)
		}
	}

	if cfg.TestPort {
		if err := l.waitForPing(ctx); err != nil {
			_ = l.Close()
			return nil, fmt.Errorf("test port: %w", err)
		}
	}

	return l, nil
}

// Close stops the reader and closes the port. Pending requests fail with ErrClosed.
func (l *Link) Close() error {
	var err error
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.closing = true
		l.mu.Unlock()

		err = l.port.Close()
		_ = l.group.Wait()
		l.shutdown(ErrClosed)
	})
	return err
}

// Done is closed once the link can no longer be used.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Err returns the reason the link stopped, or nil while it is running.
func (l *Link) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Link) readLoop() error {
	dec := protocol.NewDecoder(l.port)
	for {
		frame, err := dec.Decode()
		if err != nil {
			if protocol.IsRecoverable(err) {
				l.logDebug("dropped frame", "error", err)
				continue
			}

			l.mu.Lock()
			closing := l.closing
			l.mu.Unlock()

			if closing {
				l.shutdown(ErrClosed)
				return nil
			}
			l.logError("link reader stopped", "error", err)
			l.shutdown(fmt.Errorf("%w: %w", ErrClosed, err))
			return err
		}

		l.logDebug("received frame", "frame", frame.String())
		l.dispatch(frame)
	}
}

func (l *Link) shutdown(err error) {
	l.doneOnce.Do(func() {
		l.mu.Lock()
		if l.err == nil {
			l.err = err
		}
		l.mu.Unlock()
		close(l.done)
	})
}

func (l *Link) dispatch(f *protocol.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delivered := false
	for lst := range l.listeners {
		if lst.matches(f) {
			delete(l.listeners, lst)
			lst.ch <- f
			delivered = true
		}
	}

	if !delivered {
		l.logDebug("unhandled frame", "frame", f.String())
	}
}

func (l *Link) listen(matchers ...protocol.Matcher) *listener {
	lst := &listener{matchers: matchers, ch: make(chan *protocol.Frame, 1)}

	l.mu.Lock()
	l.listeners[lst] = struct{}{}
	l.mu.Unlock()

	return lst
}

func (l *Link) unlisten(lst *listener) {
	l.mu.Lock()
	delete(l.listeners, lst)
	l.mu.Unlock()
}

func (l *Link) wait(ctx context.Context, lst *listener) (*protocol.Frame, error) {
	select {
	case f := <-lst.ch:
		return f, nil
	case <-ctx.Done():
		l.unlisten(lst)
		return nil, ctx.Err()
	case <-l.done:
		l.unlisten(lst)
		// A frame may have been delivered just before the reader stopped.
		select {
		case f := <-lst.ch:
			return f, nil
		default:
		}
		return nil, l.Err()
	}
}

// send writes a frame to the port.
func (l *Link) send(f *protocol.Frame) error {
	raw, err := f.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.Header, err)
	}
	return l.write(raw, f.String())
}

func (l *Link) write(raw []byte, desc string) error {
	select {
	case <-l.done:
		return l.Err()
	default:
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.logDebug("sending frame", "frame", desc)
	if _, err := l.port.Write(raw); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (l *Link) skipBootloader(ctx context.Context) error {
	if err := l.write([]byte{protocol.ForceRunByte}, "bootloader force-run"); err != nil {
		return err
	}

	timer := time.NewTimer(l.config.SkipBootloaderDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Link) waitForPing(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = time.Second
	bo.MaxElapsedTime = l.config.ConnectTimeout

	attempt := 0
	op := func() error {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, l.config.PingTimeout)
		defer cancel()

		caps, err := l.Ping(pctx)
		if err != nil {
			if errors.Is(err, ErrClosed) || ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			l.logDebug("ping failed", "attempt", attempt, "error", err)
			return err
		}

		l.logInfo("radio is responding", "capabilities", fmt.Sprintf("0x%04X", caps))
		return nil
	}

	return backoff.Retry(op, backoff.WithContext(bo, ctx))
}

func (l *Link) logDebug(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Debug(msg, keysAndValues...)
	}
}

func (l *Link) logInfo(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Info(msg, keysAndValues...)
	}
}

func (l *Link) logError(msg string, keysAndValues ...interface{}) {
	if l.config.Logger != nil {
		l.config.Logger.Error(msg, keysAndValues...)
	}
}
