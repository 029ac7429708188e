// Package pool runs batches of jobs on a fixed set of long-lived workers.
//
// A Pool outlives calculation cycles. Each cycle submits its tasks with
// InvokeAll and blocks until every task has an Outcome. Jobs still queued
// when the pool closes are abandoned rather than run.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrPoolClosed is returned when submitting to a closed pool.
	ErrPoolClosed = errors.New("pool: closed")

	// ErrAbandoned is the outcome of a job the pool dropped without running.
	ErrAbandoned = errors.New("pool: job abandoned")

	// ErrPanicked wraps a panic that escaped a job.
	ErrPanicked = errors.New("pool: job panicked")
)

type message struct {
	ctx     context.Context
	run     func(context.Context)
	abandon func(error)
}

// Pool is a bounded worker pool. It is safe for concurrent use.
type Pool struct {
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	jobs    chan message
	workers int
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// New starts workers goroutines reading from a queue of queueSize jobs.
// Cancelling ctx stops the workers and abandons queued jobs, as Close does.
func New(ctx context.Context, workers, queueSize int, logger *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(ctx)
	p := &Pool{
		ctx:     ctx,
		cancel:  cancel,
		group:   group,
		jobs:    make(chan message, queueSize),
		workers: workers,
		logger:  logger,
	}

	ready := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		ready.Add(1)
		group.Go(func() error {
			ready.Done()
			p.work(groupCtx)
			return nil
		})
	}
	ready.Wait()

	logger.Info("worker pool started", zap.Int("workers", workers), zap.Int("queueSize", queueSize))
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Queued returns the number of jobs waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.jobs)
}

// Closed reports whether Close has been called.
func (p *Pool) Closed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

func (p *Pool) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.drain()
			return
		}
		select {
		case msg, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := msg.ctx.Err(); err != nil {
				msg.abandon(fmt.Errorf("%w: %w", ErrAbandoned, err))
				continue
			}
			p.run(msg)
		case <-ctx.Done():
			p.drain()
			return
		}
	}
}

// drain abandons whatever is queued right now.
func (p *Pool) drain() int {
	abandoned := 0
	for {
		select {
		case msg, ok := <-p.jobs:
			if !ok {
				return abandoned
			}
			msg.abandon(ErrAbandoned)
			abandoned++
		default:
			return abandoned
		}
	}
}

func (p *Pool) run(msg message) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in pool job", zap.Any("panic", r))
			msg.abandon(fmt.Errorf("%w: %v", ErrPanicked, r))
		}
	}()
	msg.run(msg.ctx)
}

func (p *Pool) submit(ctx context.Context, msg message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || p.ctx.Err() != nil {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolClosed
	}
}

// Close stops the workers, waits for running jobs to finish and abandons
// queued ones. It is safe to call more than once.
func (p *Pool) Close() {
	p.cancel()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()

	_ = p.group.Wait()

	p.logger.Info("worker pool closed", zap.Int("abandoned", p.drain()))
}

// Outcome is what a job produced, or why it produced nothing.
type Outcome[R any] struct {
	Value R
	Err   error
}

// InvokeAll submits every job and waits until each has an outcome. Outcomes
// are returned in job order. An error is returned only when the batch could
// not be submitted: the pool is closed or ctx ended during submission.
// Jobs whose outcome cannot be collected carry ErrAbandoned.
func InvokeAll[R any](ctx context.Context, p *Pool, jobs []func(context.Context) R) ([]Outcome[R], error) {
	futures := make([]chan Outcome[R], len(jobs))
	for i, job := range jobs {
		// buffered so workers never block on an abandoned batch
		resumeCh := make(chan Outcome[R], 1)
		futures[i] = resumeCh
		msg := message{
			ctx: ctx,
			run: func(ctx context.Context) {
				resumeCh <- Outcome[R]{Value: job(ctx)}
			},
			abandon: func(err error) {
				resumeCh <- Outcome[R]{Err: err}
			},
		}
		if err := p.submit(ctx, msg); err != nil {
			return nil, fmt.Errorf("submitting job %d of %d: %w", i+1, len(jobs), err)
		}
	}

	outcomes := make([]Outcome[R], len(jobs))
	for i, resumeCh := range futures {
		select {
		case outcomes[i] = <-resumeCh:
		case <-ctx.Done():
			outcomes[i] = Outcome[R]{Err: fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err())}
		}
	}
	return outcomes, nil
}
