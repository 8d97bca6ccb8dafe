package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hostbridge/core"
)

var ErrStateNotFound = errors.New("ratelimit: state not found")

const (
	DefaultLimit  = 100
	DefaultWindow = time.Minute
)

// State holds the admission timestamps for one key, newest last.
type State struct {
	Key       string
	Hits      []time.Time
	UpdatedAt time.Time
}

type StateStore interface {
	Get(ctx context.Context, key string) (State, error)
	Upsert(ctx context.Context, state State) error
}

// ThrottledError reports a rejected admission with a retry hint.
type ThrottledError struct {
	Key        string
	Limit      int
	RetryAfter time.Duration
}

func (e ThrottledError) Error() string {
	return fmt.Sprintf(
		"ratelimit: key %q throttled for %s (limit %d)",
		strings.TrimSpace(e.Key),
		e.RetryAfter,
		e.Limit,
	)
}

func (e ThrottledError) ToBridgeError() *goerrors.Error {
	metadata := map[string]any{
		"key":   strings.TrimSpace(e.Key),
		"limit": e.Limit,
	}
	if e.RetryAfter > 0 {
		metadata["retry_after_ms"] = e.RetryAfter.Milliseconds()
	}
	return goerrors.New(e.Error(), goerrors.CategoryRateLimit).
		WithCode(http.StatusTooManyRequests).
		WithTextCode(core.BridgeErrorRateLimited).
		WithMetadata(metadata)
}

// SlidingWindow admits at most Limit calls per Window per key. Expired
// timestamps are pruned before the check and a call is recorded only when it
// is admitted: rejected attempts never consume budget.
type SlidingWindow struct {
	Store  StateStore
	Limit  int
	Window time.Duration
	Now    func() time.Time
}

func NewSlidingWindow(store StateStore) *SlidingWindow {
	return &SlidingWindow{
		Store:  store,
		Limit:  DefaultLimit,
		Window: DefaultWindow,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// FromConfig builds a window from the resolved session configuration backed
// by an in-memory store.
func FromConfig(cfg core.RateLimitConfig) *SlidingWindow {
	window := NewSlidingWindow(NewMemoryStateStore())
	if cfg.Limit > 0 {
		window.Limit = cfg.Limit
	}
	if cfg.WindowMS > 0 {
		window.Window = time.Duration(cfg.WindowMS) * time.Millisecond
	}
	return window
}

func (w *SlidingWindow) Allow(ctx context.Context, key string) error {
	if w == nil || w.Store == nil {
		return nil
	}
	key = normalizeKey(key)
	now := w.now()

	state, err := w.Store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrStateNotFound) {
			return err
		}
		state = State{Key: key}
	}

	cutoff := now.Add(-w.window())
	pruned := state.Hits[:0:0]
	for _, hit := range state.Hits {
		if hit.After(cutoff) {
			pruned = append(pruned, hit)
		}
	}
	state.Hits = pruned
	state.UpdatedAt = now

	limit := w.limit()
	if len(state.Hits) >= limit {
		retryAfter := state.Hits[0].Add(w.window()).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		if err := w.Store.Upsert(ctx, state); err != nil {
			return err
		}
		return ThrottledError{Key: key, Limit: limit, RetryAfter: retryAfter}
	}

	state.Hits = append(state.Hits, now)
	return w.Store.Upsert(ctx, state)
}

func (w *SlidingWindow) now() time.Time {
	if w != nil && w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func (w *SlidingWindow) limit() int {
	if w != nil && w.Limit > 0 {
		return w.Limit
	}
	return DefaultLimit
}

func (w *SlidingWindow) window() time.Duration {
	if w != nil && w.Window > 0 {
		return w.Window
	}
	return DefaultWindow
}

func normalizeKey(key string) string {
	return strings.TrimSpace(strings.ToLower(key))
}

type MemoryStateStore struct {
	mu    sync.RWMutex
	items map[string]State
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{items: map[string]State{}}
}

func (s *MemoryStateStore) Get(_ context.Context, key string) (State, error) {
	if s == nil {
		return State{}, fmt.Errorf("ratelimit: state store is nil")
	}
	key = normalizeKey(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.items[key]
	if !ok {
		return State{}, ErrStateNotFound
	}
	state.Hits = append([]time.Time(nil), state.Hits...)
	return state, nil
}

func (s *MemoryStateStore) Upsert(_ context.Context, state State) error {
	if s == nil {
		return fmt.Errorf("ratelimit: state store is nil")
	}
	state.Key = normalizeKey(state.Key)
	state.Hits = append([]time.Time(nil), state.Hits...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[state.Key] = state
	return nil
}

var _ core.RateLimitGuard = (*SlidingWindow)(nil)
