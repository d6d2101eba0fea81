// Package audit delivers admin audit records to durable storage off the
// request path. The ledger commits its change first and then hands the record
// to a Dispatcher, which retries the write with backoff. A record that can
// not be written is logged and counted; it never fails the admin operation.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"trading_ledger/internal/domain"
	"trading_ledger/internal/metrics"

	"github.com/sirupsen/logrus"
)

const (
	defaultQueueSize   = 256
	defaultMaxAttempts = 5
	defaultBaseDelay   = 100 * time.Millisecond
	defaultMaxDelay    = 5 * time.Second
)

// ErrClosed is returned by Enqueue once Close has been called
var ErrClosed = errors.New("audit dispatcher closed")

// ErrQueueFull is returned by Enqueue when the buffer has no room
var ErrQueueFull = errors.New("audit queue full")

// Sink persists one audit record
type Sink interface {
	AppendAdminLog(ctx context.Context, log *domain.AdminLog) error
}

// Dispatcher is an in-process outbox for admin audit records
type Dispatcher struct {
	sink        Sink
	queue       chan *domain.AdminLog
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
	once   sync.Once
}

// NewDispatcher builds a dispatcher. Zero or negative sizes fall back to defaults.
func NewDispatcher(sink Sink, queueSize, maxAttempts int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &Dispatcher{
		sink:        sink,
		queue:       make(chan *domain.AdminLog, queueSize),
		maxAttempts: maxAttempts,
		baseDelay:   defaultBaseDelay,
		maxDelay:    defaultMaxDelay,
		done:        make(chan struct{}),
	}
}

// WithBackoff overrides the retry delays
func (d *Dispatcher) WithBackoff(base, max time.Duration) *Dispatcher {
	d.baseDelay = base
	d.maxDelay = max
	return d
}

// Enqueue hands a record to the dispatcher without blocking
func (d *Dispatcher) Enqueue(log *domain.AdminLog) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.IncAuditRecord("dropped")
		return ErrClosed
	}
	select {
	case d.queue <- log:
		return nil
	default:
		metrics.IncAuditRecord("dropped")
		logrus.WithFields(logrus.Fields{
			"action":    log.Action,
			"target_id": log.TargetID,
			"admin_id":  log.AdminID,
		}).Error("Audit queue full, record dropped")
		return ErrQueueFull
	}
}

// Run drains the queue until it is closed. Cancelling ctx aborts pending
// retries; records still queued at that point are written once without retry.
func (d *Dispatcher) Run(ctx context.Context) {
	defer close(d.done)
	for log := range d.queue {
		d.deliver(ctx, log)
	}
}

// Close stops accepting records and waits for Run to flush what is queued
func (d *Dispatcher) Close(ctx context.Context) error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(ctx context.Context, log *domain.AdminLog) {
	fields := logrus.Fields{
		"action":      log.Action,
		"target_type": log.TargetType,
		"target_id":   log.TargetID,
		"admin_id":    log.AdminID,
	}

	for attempt := 1; ; attempt++ {
		err := d.sink.AppendAdminLog(context.WithoutCancel(ctx), log)
		if err == nil {
			metrics.IncAuditRecord("persisted")
			return
		}
		fields["attempt"] = attempt
		if attempt >= d.maxAttempts || ctx.Err() != nil {
			metrics.IncAuditRecord("failed")
			logrus.WithFields(fields).WithError(err).Error("Audit record could not be persisted")
			return
		}
		metrics.IncAuditRecord("retried")
		logrus.WithFields(fields).WithError(err).Warn("Audit write failed, retrying")

		timer := time.NewTimer(d.retryDelay(attempt))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
}

func (d *Dispatcher) retryDelay(attempt int) time.Duration {
	delay := d.baseDelay << min(attempt-1, 16)
	if delay <= 0 || delay > d.maxDelay {
		return d.maxDelay
	}
	return delay
}
