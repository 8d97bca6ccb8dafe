package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-hostbridge/core"
)

// JobHandler consumes deliveries for one job id.
type JobHandler interface {
	JobID() string
	Handle(ctx context.Context, msg *core.JobExecutionMessage) error
}

// RetryPolicy bounds a failed delivery's requeue behavior so a broken job
// cannot loop forever.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// Normalize clamps nack options against the policy for the given attempt
// count. Dead-letter wins over requeue; at or past MaxAttempts the message
// stops requeueing.
func (p RetryPolicy) Normalize(opts core.JobNackOptions, attempt int) core.JobNackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// Worker drains a job queue into the registered handlers: dequeue, route by
// job id, ack on success, nack within the retry policy otherwise. Attempts
// are counted per idempotency key so a requeued delivery eventually
// dead-letters instead of cycling.
type Worker struct {
	dequeuer core.JobDequeuer
	handlers map[string]JobHandler
	policy   RetryPolicy
	hook     core.JobWorkerHook
	delay    time.Duration
	now      func() time.Time

	attempts map[string]int
}

type WorkerOption func(*Worker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *Worker) {
		w.policy = policy
	}
}

func WithWorkerHook(hook core.JobWorkerHook) WorkerOption {
	return func(w *Worker) {
		w.hook = hook
	}
}

// WithRetryDelay sets the delay requested when a handler fails. The policy's
// MaxDelay still caps it.
func WithRetryDelay(delay time.Duration) WorkerOption {
	return func(w *Worker) {
		if delay > 0 {
			w.delay = delay
		}
	}
}

func WithWorkerClock(clock func() time.Time) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.now = clock
		}
	}
}

func NewWorker(dequeuer core.JobDequeuer, opts ...WorkerOption) (*Worker, error) {
	if dequeuer == nil {
		return nil, fmt.Errorf("gojob: dequeuer is required")
	}
	w := &Worker{
		dequeuer: dequeuer,
		handlers: map[string]JobHandler{},
		policy:   RetryPolicy{MaxAttempts: 5, MaxDelay: time.Minute, DeadLetterOnMax: true},
		delay:    5 * time.Second,
		now:      func() time.Time { return time.Now().UTC() },
		attempts: map[string]int{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(w)
	}
	return w, nil
}

// Register installs a handler for its job id. Duplicate ids are a conflict.
func (w *Worker) Register(handler JobHandler) error {
	if w == nil {
		return fmt.Errorf("gojob: worker is nil")
	}
	if handler == nil {
		return fmt.Errorf("gojob: handler is required")
	}
	id := strings.TrimSpace(handler.JobID())
	if id == "" {
		return fmt.Errorf("gojob: handler job id is empty")
	}
	if _, exists := w.handlers[id]; exists {
		return fmt.Errorf("gojob: handler already registered for %q", id)
	}
	w.handlers[id] = handler
	return nil
}

// Run drains deliveries until ctx is done or the dequeuer fails.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("gojob: worker is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.RunOnce(ctx); err != nil {
			return err
		}
	}
}

// RunOnce dequeues and processes exactly one delivery. Handler failures are
// absorbed into the nack path; only dequeue/ack/nack transport errors
// surface.
func (w *Worker) RunOnce(ctx context.Context) error {
	if w == nil {
		return fmt.Errorf("gojob: worker is nil")
	}
	delivery, err := w.dequeuer.Dequeue(ctx)
	if err != nil {
		return err
	}
	if delivery == nil {
		return fmt.Errorf("gojob: dequeuer returned nil delivery")
	}
	return w.process(ctx, delivery)
}

func (w *Worker) process(ctx context.Context, delivery core.JobDelivery) error {
	msg := delivery.Message()
	if msg == nil || strings.TrimSpace(msg.JobID) == "" {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "empty job message",
		})
	}

	handler := w.handlers[msg.JobID]
	if handler == nil {
		return delivery.Nack(ctx, core.JobNackOptions{
			DeadLetter: true,
			Reason:     "no handler for " + msg.JobID,
		})
	}

	key := attemptKey(msg)
	attempt := w.attempts[key] + 1
	started := w.now()

	w.emit(ctx, hookStart, core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempt,
		StartedAt: started,
	})

	handlerErr := handler.Handle(ctx, msg)
	event := core.JobWorkerEvent{
		Message:   msg,
		Attempt:   attempt,
		Err:       handlerErr,
		StartedAt: started,
		Duration:  w.now().Sub(started),
	}

	if handlerErr == nil {
		delete(w.attempts, key)
		if err := delivery.Ack(ctx); err != nil {
			return err
		}
		w.emit(ctx, hookSuccess, event)
		return nil
	}

	w.attempts[key] = attempt
	opts := w.policy.Normalize(core.JobNackOptions{
		Delay:   w.delay,
		Requeue: true,
		Reason:  handlerErr.Error(),
	}, attempt)
	event.Delay = opts.Delay

	if opts.Requeue {
		w.emit(ctx, hookRetry, event)
	} else {
		delete(w.attempts, key)
		w.emit(ctx, hookFailure, event)
	}
	return delivery.Nack(ctx, opts)
}

type hookKind int

const (
	hookStart hookKind = iota
	hookSuccess
	hookFailure
	hookRetry
)

func (w *Worker) emit(ctx context.Context, kind hookKind, event core.JobWorkerEvent) {
	if w == nil || w.hook == nil {
		return
	}
	switch kind {
	case hookStart:
		w.hook.OnStart(ctx, event)
	case hookSuccess:
		w.hook.OnSuccess(ctx, event)
	case hookFailure:
		w.hook.OnFailure(ctx, event)
	case hookRetry:
		w.hook.OnRetry(ctx, event)
	}
}

func attemptKey(msg *core.JobExecutionMessage) string {
	if key := strings.TrimSpace(msg.IdempotencyKey); key != "" {
		return msg.JobID + ":" + key
	}
	return msg.JobID
}
