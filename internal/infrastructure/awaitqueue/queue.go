// Package awaitqueue correlates asynchronous responses with the request that
// is waiting for them.
package awaitqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/restorecommerce/ordering-srv-sub000/internal/domain/shared"
)

var (
	// ErrTimeout is matched by every TimeoutError.
	ErrTimeout = errors.New("await timed out")
	// ErrSuperseded rejects a waiter displaced by a newer registration of the same id.
	ErrSuperseded = errors.New("await superseded by a newer registration")
	// ErrAlreadyRegistered rejects a second registration in strict mode.
	ErrAlreadyRegistered = errors.New("await already registered")
	// ErrClosed rejects waiters still pending when the queue is closed.
	ErrClosed = errors.New("await queue closed")
)

// TimeoutError reports a waiter that received no response in time.
type TimeoutError struct {
	ID      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("await %s timed out after %s", e.ID, e.Timeout)
}

// Is makes errors.Is(err, ErrTimeout) hold.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// Status maps the timeout onto the TIMEOUT operation status.
func (e *TimeoutError) Status() shared.Status {
	return shared.StatusTimeout.Withf(e.ID)
}

// Pending is the handle of one registered waiter.
type Pending[T any] struct {
	id    string
	done  chan struct{}
	once  sync.Once
	timer *time.Timer
	value T
	err   error
}

// ID returns the correlation id.
func (p *Pending[T]) ID() string {
	return p.id
}

// Done is closed once the waiter is resolved or rejected.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the waiter settles or ctx ends. Cancelling ctx does not
// unregister the waiter; its own timeout still applies.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (p *Pending[T]) settle(v T, err error) bool {
	settled := false
	p.once.Do(func() {
		if p.timer != nil {
			p.timer.Stop()
		}
		p.value = v
		p.err = err
		close(p.done)
		settled = true
	})
	return settled
}

// Queue maps correlation ids to waiters. By default the last registrant of an
// id wins and the displaced waiter is rejected with ErrSuperseded.
type Queue[T any] struct {
	mu        sync.Mutex
	pending   map[string]*Pending[T]
	strict    bool
	onTimeout func(id string)
	logger    *zap.Logger
}

// Option configures a Queue.
type Option func(*options)

type options struct {
	strict    bool
	onTimeout func(id string)
	logger    *zap.Logger
}

// WithStrictRegistration rejects a registration for an id that is still pending.
func WithStrictRegistration() Option {
	return func(o *options) {
		o.strict = true
	}
}

// WithTimeoutHook is called with the id of every waiter that times out.
func WithTimeoutHook(fn func(id string)) Option {
	return func(o *options) {
		o.onTimeout = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an empty queue.
func New[T any](opts ...Option) *Queue[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return &Queue[T]{
		pending:   make(map[string]*Pending[T]),
		strict:    o.strict,
		onTimeout: o.onTimeout,
		logger:    o.logger,
	}
}

// Await registers a waiter for id that is rejected with a *TimeoutError when
// no response arrives within timeout. In strict mode a duplicate registration
// returns a handle that is already rejected with ErrAlreadyRegistered.
func (q *Queue[T]) Await(id string, timeout time.Duration) *Pending[T] {
	p := &Pending[T]{id: id, done: make(chan struct{})}

	q.mu.Lock()
	prev, exists := q.pending[id]
	if exists && q.strict {
		q.mu.Unlock()
		var zero T
		p.settle(zero, fmt.Errorf("%w: %s", ErrAlreadyRegistered, id))
		return p
	}
	q.pending[id] = p
	p.timer = time.AfterFunc(timeout, func() {
		q.expire(p, timeout)
	})
	q.mu.Unlock()

	if exists {
		q.logger.Warn("Await registration replaced a pending waiter", zap.String("correlation_id", id))
		var zero T
		prev.settle(zero, fmt.Errorf("%w: %s", ErrSuperseded, id))
	}
	return p
}

// Resolve settles the waiter for id with v. It reports false when no waiter
// is pending, e.g. after a timeout.
func (q *Queue[T]) Resolve(id string, v T) bool {
	p := q.take(id)
	if p == nil {
		return false
	}
	return p.settle(v, nil)
}

// Reject settles the waiter for id with err.
func (q *Queue[T]) Reject(id string, err error) bool {
	p := q.take(id)
	if p == nil {
		return false
	}
	var zero T
	return p.settle(zero, err)
}

// Len returns the number of pending waiters.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects every pending waiter with ErrClosed.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	pending := q.pending
	q.pending = make(map[string]*Pending[T])
	q.mu.Unlock()

	var zero T
	for _, p := range pending {
		p.settle(zero, ErrClosed)
	}
}

func (q *Queue[T]) take(id string) *Pending[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	p, ok := q.pending[id]
	if !ok {
		return nil
	}
	delete(q.pending, id)
	return p
}

func (q *Queue[T]) expire(p *Pending[T], timeout time.Duration) {
	q.mu.Lock()
	if q.pending[p.id] != p {
		q.mu.Unlock()
		return
	}
	delete(q.pending, p.id)
	q.mu.Unlock()

	var zero T
	if p.settle(zero, &TimeoutError{ID: p.id, Timeout: timeout}) {
		q.logger.Warn("Await timed out", zap.String("correlation_id", p.id), zap.Duration("timeout", timeout))
		if q.onTimeout != nil {
			q.onTimeout(p.id)
		}
	}
}
