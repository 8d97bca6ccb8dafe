package hostbridge

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-hostbridge/core"
)

// HandlerPack is a named set of message handlers for uncorrelated host
// traffic, registered as a unit against the session's correlator.
type HandlerPack struct {
	Name     string
	Handlers map[core.MessageType]core.EnvelopeHandler
}

// HandlerRegistrar is the correlator surface handler packs apply to.
type HandlerRegistrar interface {
	RegisterHandler(tag core.MessageType, handler core.EnvelopeHandler) error
}

type CommandQueryBundleFactory func(session CommandQuerySession) (any, error)

// ExtensionHooks lets downstream apps contribute handler packs and
// command/query bundles before the session is wired into a dispatcher.
type ExtensionHooks struct {
	mu sync.RWMutex

	handlerPacks map[string]HandlerPack
	bundles      map[string]CommandQueryBundleFactory
}

func NewExtensionHooks() *ExtensionHooks {
	return &ExtensionHooks{
		handlerPacks: map[string]HandlerPack{},
		bundles:      map[string]CommandQueryBundleFactory{},
	}
}

func (h *ExtensionHooks) RegisterHandlerPack(pack HandlerPack) error {
	if h == nil {
		return fmt.Errorf("hostbridge: extension hooks are nil")
	}
	name := strings.TrimSpace(pack.Name)
	if name == "" {
		return fmt.Errorf("hostbridge: handler pack name is required")
	}
	if len(pack.Handlers) == 0 {
		return fmt.Errorf("hostbridge: handler pack %q has no handlers", name)
	}
	for tag, handler := range pack.Handlers {
		if strings.TrimSpace(string(tag)) == "" {
			return fmt.Errorf("hostbridge: handler pack %q has a blank message type", name)
		}
		if handler == nil {
			return fmt.Errorf("hostbridge: handler pack %q handler for %q is nil", name, tag)
		}
	}

	normalized := HandlerPack{
		Name:     name,
		Handlers: make(map[core.MessageType]core.EnvelopeHandler, len(pack.Handlers)),
	}
	for tag, handler := range pack.Handlers {
		normalized.Handlers[tag] = handler
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.handlerPacks[name]; exists {
		return fmt.Errorf("hostbridge: handler pack %q already registered", name)
	}
	h.handlerPacks[name] = normalized
	return nil
}

func (h *ExtensionHooks) RegisterCommandQueryBundle(
	name string,
	factory CommandQueryBundleFactory,
) error {
	if h == nil {
		return fmt.Errorf("hostbridge: extension hooks are nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("hostbridge: command/query bundle name is required")
	}
	if factory == nil {
		return fmt.Errorf("hostbridge: command/query bundle %q factory is required", name)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.bundles[name]; exists {
		return fmt.Errorf("hostbridge: command/query bundle %q already registered", name)
	}
	h.bundles[name] = factory
	return nil
}

// ApplyHandlerPacks registers every pack's handlers in deterministic
// pack-name then message-type order.
func (h *ExtensionHooks) ApplyHandlerPacks(registrar HandlerRegistrar) error {
	if h == nil {
		return nil
	}
	if registrar == nil {
		return fmt.Errorf("hostbridge: handler registrar is required")
	}

	for _, pack := range h.HandlerPacks() {
		tags := make([]string, 0, len(pack.Handlers))
		for tag := range pack.Handlers {
			tags = append(tags, string(tag))
		}
		sort.Strings(tags)
		for _, tag := range tags {
			if err := registrar.RegisterHandler(core.MessageType(tag), pack.Handlers[core.MessageType(tag)]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *ExtensionHooks) BuildCommandQueryBundles(
	session CommandQuerySession,
) (map[string]any, error) {
	if h == nil {
		return map[string]any{}, nil
	}
	if session == nil {
		return nil, fmt.Errorf("hostbridge: command/query session is required")
	}

	h.mu.RLock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	factories := make(map[string]CommandQueryBundleFactory, len(h.bundles))
	for name, factory := range h.bundles {
		factories[name] = factory
	}
	h.mu.RUnlock()

	result := make(map[string]any, len(names))
	for _, name := range names {
		bundle, err := factories[name](session)
		if err != nil {
			return nil, err
		}
		result[name] = bundle
	}
	return result, nil
}

func (h *ExtensionHooks) HandlerPacks() []HandlerPack {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.handlerPacks))
	for name := range h.handlerPacks {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]HandlerPack, 0, len(names))
	for _, name := range names {
		pack := h.handlerPacks[name]
		handlers := make(map[core.MessageType]core.EnvelopeHandler, len(pack.Handlers))
		for tag, handler := range pack.Handlers {
			handlers[tag] = handler
		}
		out = append(out, HandlerPack{Name: pack.Name, Handlers: handlers})
	}
	return out
}

func (h *ExtensionHooks) BundleNames() []string {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.bundles))
	for name := range h.bundles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
