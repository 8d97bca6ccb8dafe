package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-hostbridge/core"
)

func TestNotEmbeddedTransport_PostReportsNotEmbedded(t *testing.T) {
	tr := NewNotEmbedded()
	err := tr.Post(context.Background(), core.Envelope{})
	if !errors.Is(err, core.ErrNotEmbedded) {
		t.Fatalf("expected ErrNotEmbedded, got %v", err)
	}
}

func TestNotEmbeddedTransport_ReceiveBlocksUntilContextEnds(t *testing.T) {
	tr := NewNotEmbedded()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := tr.Receive(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestLoopbackPair_CrossDelivery(t *testing.T) {
	child, parent := NewLoopbackPair(4)
	defer child.Close()
	defer parent.Close()

	sent := core.NewEnvelope(core.MessageTypeProfileRequest, map[string]any{"k": "v"}, core.MessageSourceChild, time.Now().UTC())
	if err := child.Post(context.Background(), sent); err != nil {
		t.Fatalf("post: %v", err)
	}

	got, err := parent.Receive(context.Background())
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if got.Type != core.MessageTypeProfileRequest {
		t.Fatalf("expected %s, got %s", core.MessageTypeProfileRequest, got.Type)
	}
}

func TestLoopbackTransport_CloseUnblocksReceive(t *testing.T) {
	child, parent := NewLoopbackPair(1)
	defer parent.Close()

	done := make(chan error, 1)
	go func() {
		_, err := child.Receive(context.Background())
		done <- err
	}()

	if err := child.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, core.ErrSessionDestroyed) {
			t.Fatalf("expected ErrSessionDestroyed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("receive did not unblock after close")
	}
}

func TestLoopbackTransport_CloseIsIdempotent(t *testing.T) {
	child, parent := NewLoopbackPair(1)
	defer parent.Close()
	if err := child.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := child.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := child.Post(context.Background(), core.Envelope{}); !errors.Is(err, core.ErrSessionDestroyed) {
		t.Fatalf("expected ErrSessionDestroyed after close, got %v", err)
	}
}
