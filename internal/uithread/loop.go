// Package uithread runs callbacks one at a time on a single goroutine, the way a
// UI toolkit's main thread does. Callbacks are grouped by an opaque token so an
// owner can drop everything it still has pending when it goes away.
package uithread

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrClosed is returned when posting to a closed loop
var ErrClosed = errors.New("ui loop closed")

type callback struct {
	token any
	fn    func()
	timer *time.Timer
}

// Loop is a sequential callback queue
type Loop struct {
	mu      sync.Mutex
	pending map[any]map[*callback]struct{}
	ready   []*callback
	closed  bool

	wake chan struct{}
	done chan struct{}
	exit chan struct{}

	logger *zap.Logger
}

// NewLoop starts a loop goroutine. Call Close to stop it.
func NewLoop(logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		pending: make(map[any]map[*callback]struct{}),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		exit:    make(chan struct{}),
		logger:  logger,
	}
	go l.run()
	return l
}

// Post queues fn to run as soon as the loop is free. Tokens must be comparable.
func (l *Loop) Post(token any, fn func()) error {
	return l.PostDelayed(token, 0, fn)
}

// PostDelayed queues fn to run after delay
func (l *Loop) PostDelayed(token any, delay time.Duration, fn func()) error {
	cb := &callback{token: token, fn: fn}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	set := l.pending[token]
	if set == nil {
		set = make(map[*callback]struct{})
		l.pending[token] = set
	}
	set[cb] = struct{}{}

	if delay <= 0 {
		l.enqueueLocked(cb)
		return nil
	}
	cb.timer = time.AfterFunc(delay, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if !l.closed && l.isPendingLocked(cb) {
			l.enqueueLocked(cb)
		}
	})
	return nil
}

// RemoveCallbacks drops every callback posted with token that has not started yet
func (l *Loop) RemoveCallbacks(token any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for cb := range l.pending[token] {
		if cb.timer != nil {
			cb.timer.Stop()
		}
	}
	delete(l.pending, token)
}

// Pending returns how many callbacks are still queued for token
func (l *Loop) Pending(token any) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending[token])
}

// Invoke runs fn on the loop and waits for it to return. It must not be called
// from a callback already running on the loop.
func (l *Loop) Invoke(fn func()) error {
	finished := make(chan struct{})
	token := new(int)
	if err := l.Post(token, func() {
		defer close(finished)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-l.exit:
		// The loop may have run fn just before exiting.
		select {
		case <-finished:
			return nil
		default:
			return ErrClosed
		}
	}
}

// Close stops the loop and drops all pending callbacks. It waits for a running
// callback to finish, so it must not be called from one. Safe to call more than once.
func (l *Loop) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	for _, set := range l.pending {
		for cb := range set {
			if cb.timer != nil {
				cb.timer.Stop()
			}
		}
	}
	l.pending = make(map[any]map[*callback]struct{})
	l.ready = nil
	l.mu.Unlock()

	close(l.done)
	<-l.exit
}

func (l *Loop) run() {
	defer close(l.exit)
	for {
		select {
		case <-l.done:
			return
		case <-l.wake:
		}

		for {
			cb := l.next()
			if cb == nil {
				break
			}
			l.invoke(cb)
		}
	}
}

// next pops the next runnable callback, skipping any removed since it was queued
func (l *Loop) next() *callback {
	l.mu.Lock()
	defer l.mu.Unlock()
	for len(l.ready) > 0 {
		cb := l.ready[0]
		l.ready = l.ready[1:]
		if set := l.pending[cb.token]; set != nil {
			if _, ok := set[cb]; ok {
				delete(set, cb)
				if len(set) == 0 {
					delete(l.pending, cb.token)
				}
				return cb
			}
		}
	}
	return nil
}

func (l *Loop) invoke(cb *callback) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("UI callback panicked",
				zap.String("panic", fmt.Sprint(r)),
				zap.Stack("stack"),
			)
		}
	}()
	cb.fn()
}

func (l *Loop) enqueueLocked(cb *callback) {
	l.ready = append(l.ready, cb)
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) isPendingLocked(cb *callback) bool {
	_, ok := l.pending[cb.token][cb]
	return ok
}
