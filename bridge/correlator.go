package bridge

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hostbridge/core"
)

const defaultResponseTimeout = 10 * time.Second

type callResult struct {
	env core.Envelope
	err error
}

// pendingCall tracks one correlated request. Settlement follows the
// Sent -> {Resolved | Rejected | TimedOut} machine; the first terminal
// transition wins and later settlements are no-ops.
type pendingCall struct {
	id      uint64
	msgType core.MessageType
	state   core.CallState
	result  chan callResult
	timer   *time.Timer
}

// Correlator turns the fire-and-forget channel transport into a blocking
// request/response API. One correlator owns the transport's inbound stream
// exclusively; two instances must not share a transport without namespacing
// by app id.
type Correlator struct {
	transport core.ChannelTransport
	source    core.MessageSource
	peer      core.MessageSource
	appID     string
	timeout   time.Duration
	logger    core.Logger
	metrics   core.MetricsRecorder
	now       func() time.Time

	mu        sync.Mutex
	pending   map[uint64]*pendingCall
	handlers  map[core.MessageType]core.EnvelopeHandler
	nextID    uint64
	destroyed bool

	cancelReader context.CancelFunc
	readerDone   chan struct{}
}

type CorrelatorOption func(*Correlator)

func WithCorrelatorTimeout(timeout time.Duration) CorrelatorOption {
	return func(c *Correlator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithCorrelatorAppID(appID string) CorrelatorOption {
	return func(c *Correlator) {
		c.appID = appID
	}
}

func WithCorrelatorLogger(logger core.Logger) CorrelatorOption {
	return func(c *Correlator) {
		c.logger = logger
	}
}

func WithCorrelatorMetrics(recorder core.MetricsRecorder) CorrelatorOption {
	return func(c *Correlator) {
		c.metrics = recorder
	}
}

func WithCorrelatorClock(clock func() time.Time) CorrelatorOption {
	return func(c *Correlator) {
		if clock != nil {
			c.now = clock
		}
	}
}

// NewCorrelator builds a correlator speaking as source and accepting inbound
// envelopes tagged with the opposite role. The reader goroutine starts
// immediately.
func NewCorrelator(transport core.ChannelTransport, source core.MessageSource, opts ...CorrelatorOption) (*Correlator, error) {
	if transport == nil {
		return nil, fmt.Errorf("bridge: channel transport is required")
	}
	peer := core.MessageSourceParent
	if source == core.MessageSourceParent {
		peer = core.MessageSourceChild
	}
	c := &Correlator{
		transport:  transport,
		source:     source,
		peer:       peer,
		timeout:    defaultResponseTimeout,
		metrics:    core.NopMetricsRecorder{},
		now:        func() time.Time { return time.Now().UTC() },
		pending:    map[uint64]*pendingCall{},
		handlers:   map[core.MessageType]core.EnvelopeHandler{},
		readerDone: make(chan struct{}),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}

	readerCtx, cancel := context.WithCancel(context.Background())
	c.cancelReader = cancel
	go c.readLoop(readerCtx)
	return c, nil
}

// RegisterHandler installs a type handler for uncorrelated inbound traffic.
// Registering the same type twice is a conflict.
func (c *Correlator) RegisterHandler(tag core.MessageType, handler core.EnvelopeHandler) error {
	if c == nil {
		return correlatorInternal("bridge: correlator is nil")
	}
	if handler == nil {
		return correlatorBadInput("bridge: handler is nil")
	}
	if !core.KnownMessageType(tag) {
		return correlatorBadInput(fmt.Sprintf("bridge: unknown message type %q", string(tag)))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.handlers[tag]; exists {
		return goerrors.New(
			fmt.Sprintf("bridge: handler already registered for %q", string(tag)),
			goerrors.CategoryConflict,
		).WithCode(http.StatusConflict).WithTextCode(core.BridgeErrorConflict)
	}
	c.handlers[tag] = handler
	return nil
}

// Call transmits a correlated request and blocks until the matching reply,
// the configured timeout, or ctx cancellation. Replies carrying an explicit
// error payload reject the call with that message.
func (c *Correlator) Call(ctx context.Context, tag core.MessageType, payload map[string]any) (core.Envelope, error) {
	if c == nil {
		return core.Envelope{}, correlatorInternal("bridge: correlator is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return core.Envelope{}, core.ErrSessionDestroyed
	}
	c.nextID++
	id := c.nextID
	call := &pendingCall{
		id:      id,
		msgType: tag,
		state:   core.CallStateSent,
		result:  make(chan callResult, 1),
	}
	c.pending[id] = call
	call.timer = time.AfterFunc(c.timeout, func() {
		c.settle(id, core.CallStateTimedOut, core.Envelope{}, goerrors.New(
			fmt.Sprintf("bridge: call %q timed out after %s", string(tag), c.timeout),
			goerrors.CategoryOperation,
		).WithCode(http.StatusGatewayTimeout).WithTextCode(core.BridgeErrorTimeout))
	})
	c.mu.Unlock()

	env := core.NewEnvelope(tag, payload, c.source, c.now())
	env.AppID = c.appID
	env.RequestID = id

	if err := c.transport.Post(ctx, env); err != nil {
		c.settle(id, core.CallStateRejected, core.Envelope{}, err)
	}

	select {
	case res := <-call.result:
		return res.env, res.err
	case <-ctx.Done():
		c.settle(id, core.CallStateRejected, core.Envelope{}, ctx.Err())
		res := <-call.result
		return res.env, res.err
	}
}

// Notify transmits a fire-and-forget envelope. No pending entry is
// registered and the method returns as soon as the transport accepts it.
func (c *Correlator) Notify(ctx context.Context, tag core.MessageType, payload map[string]any) error {
	if c == nil {
		return correlatorInternal("bridge: correlator is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return core.ErrSessionDestroyed
	}
	c.mu.Unlock()

	env := core.NewEnvelope(tag, payload, c.source, c.now())
	env.AppID = c.appID
	return c.transport.Post(ctx, env)
}

// PendingCount reports in-flight correlated calls.
func (c *Correlator) PendingCount() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Destroy tears the correlator down synchronously: every pending call
// rejects, timers stop, handlers are cleared, and the reader goroutine has
// exited before Destroy returns, so no handler fires afterwards. Inbound
// envelopes after Destroy produce no observable side effect. Idempotent.
func (c *Correlator) Destroy() {
	if c == nil {
		return
	}
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	calls := make([]*pendingCall, 0, len(c.pending))
	for _, call := range c.pending {
		calls = append(calls, call)
	}
	c.pending = map[uint64]*pendingCall{}
	c.handlers = map[core.MessageType]core.EnvelopeHandler{}
	c.mu.Unlock()

	// Settle before waiting on the reader: a handler blocked inside Call
	// must be released or the reader could never drain.
	for _, call := range calls {
		if call.timer != nil {
			call.timer.Stop()
		}
		if next, err := call.state.Transition(core.CallStateRejected); err == nil {
			call.state = next
			call.result <- callResult{err: core.ErrSessionDestroyed}
		}
	}
	if c.cancelReader != nil {
		c.cancelReader()
	}
	<-c.readerDone
	_ = c.transport.Close()
}

func (c *Correlator) readLoop(ctx context.Context) {
	defer close(c.readerDone)
	for {
		env, err := c.transport.Receive(ctx)
		if err != nil {
			return
		}
		c.dispatch(ctx, env)
	}
}

// dispatch applies the trust-boundary validation, settles correlated
// replies, and routes the rest by type. Anything malformed is dropped
// without surfacing an error: the channel is broadcast and any frame on the
// page can write to it.
func (c *Correlator) dispatch(ctx context.Context, env core.Envelope) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := env.Validate(c.peer, c.appID); err != nil {
		c.count(ctx, "bridge.inbound.dropped", map[string]string{"reason": "invalid"})
		return
	}

	if env.RequestID != 0 {
		if c.settleFromReply(env) {
			return
		}
		// Late or duplicate reply: the pending entry is gone, fall through to
		// type dispatch so push handlers can still observe the payload.
	}

	c.mu.Lock()
	handler := c.handlers[env.Type]
	c.mu.Unlock()
	if handler == nil {
		c.count(ctx, "bridge.inbound.dropped", map[string]string{"reason": "unhandled"})
		return
	}
	if err := handler(ctx, env); err != nil {
		c.logError(ctx, "inbound handler failed", map[string]any{
			"type":  string(env.Type),
			"error": err.Error(),
		})
	}
}

func (c *Correlator) settleFromReply(env core.Envelope) bool {
	if msg, ok := env.ErrorMessage(); ok {
		return c.settle(env.RequestID, core.CallStateRejected, env, goerrors.New(
			msg, goerrors.CategoryExternal,
		).WithCode(http.StatusBadGateway).WithTextCode(core.BridgeErrorPeerRejected))
	}
	return c.settle(env.RequestID, core.CallStateResolved, env, nil)
}

func (c *Correlator) settle(id uint64, state core.CallState, env core.Envelope, err error) bool {
	c.mu.Lock()
	call, ok := c.pending[id]
	if !ok {
		c.mu.Unlock()
		return false
	}
	next, transitionErr := call.state.Transition(state)
	if transitionErr != nil {
		c.mu.Unlock()
		return false
	}
	call.state = next
	delete(c.pending, id)
	c.mu.Unlock()

	if call.timer != nil {
		call.timer.Stop()
	}
	call.result <- callResult{env: env, err: err}
	return true
}

func (c *Correlator) count(ctx context.Context, name string, tags map[string]string) {
	if c == nil || c.metrics == nil {
		return
	}
	c.metrics.IncCounter(ctx, name, 1, core.CloneTags(tags))
}

func (c *Correlator) logError(ctx context.Context, message string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logger := c.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok {
		logger = fieldsLogger.WithFields(core.CloneFields(fields))
	}
	logger.Error(message)
}

func correlatorInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.BridgeErrorInternal)
}

func correlatorBadInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.BridgeErrorBadInput)
}
