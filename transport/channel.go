package transport

import (
	"context"
	"sync"

	"github.com/goliatone/go-hostbridge/core"
)

const (
	KindLoopback    = "loopback"
	KindNotEmbedded = "none"
)

// NotEmbeddedTransport is the channel a session gets when it is not running
// inside a host frame. Post reports core.ErrNotEmbedded so callers can
// degrade to fallbacks; Receive blocks until the context ends.
type NotEmbeddedTransport struct{}

func NewNotEmbedded() *NotEmbeddedTransport {
	return &NotEmbeddedTransport{}
}

func (*NotEmbeddedTransport) Kind() string {
	return KindNotEmbedded
}

func (*NotEmbeddedTransport) Post(context.Context, core.Envelope) error {
	return core.ErrNotEmbedded
}

func (*NotEmbeddedTransport) Receive(ctx context.Context) (core.Envelope, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	<-ctx.Done()
	return core.Envelope{}, ctx.Err()
}

func (*NotEmbeddedTransport) Close() error {
	return nil
}

// LoopbackTransport is one end of an in-process channel pair. Envelopes
// posted on one end arrive on the peer's Receive, preserving the async,
// unordered nature of the real frame channel.
type LoopbackTransport struct {
	outbound chan core.Envelope
	inbound  chan core.Envelope

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewLoopbackPair builds two crossed transports, conventionally the child
// (embedded app) end and the parent (host) end.
func NewLoopbackPair(buffer int) (*LoopbackTransport, *LoopbackTransport) {
	if buffer <= 0 {
		buffer = 16
	}
	childToParent := make(chan core.Envelope, buffer)
	parentToChild := make(chan core.Envelope, buffer)
	child := &LoopbackTransport{
		outbound: childToParent,
		inbound:  parentToChild,
		done:     make(chan struct{}),
	}
	parent := &LoopbackTransport{
		outbound: parentToChild,
		inbound:  childToParent,
		done:     make(chan struct{}),
	}
	return child, parent
}

func (*LoopbackTransport) Kind() string {
	return KindLoopback
}

func (t *LoopbackTransport) Post(ctx context.Context, env core.Envelope) error {
	if t == nil {
		return core.ErrNotEmbedded
	}
	if ctx == nil {
		ctx = context.Background()
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return core.ErrSessionDestroyed
	}
	t.mu.Unlock()

	select {
	case t.outbound <- env:
		return nil
	case <-t.done:
		return core.ErrSessionDestroyed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *LoopbackTransport) Receive(ctx context.Context) (core.Envelope, error) {
	if t == nil {
		return core.Envelope{}, core.ErrNotEmbedded
	}
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case env := <-t.inbound:
		return env, nil
	case <-t.done:
		return core.Envelope{}, core.ErrSessionDestroyed
	case <-ctx.Done():
		return core.Envelope{}, ctx.Err()
	}
}

func (t *LoopbackTransport) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	close(t.done)
	return nil
}

var (
	_ core.ChannelTransport = (*NotEmbeddedTransport)(nil)
	_ core.ChannelTransport = (*LoopbackTransport)(nil)
)
