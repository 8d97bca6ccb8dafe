package gojob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-hostbridge/core"
)

// BalanceReader is the slice of the session the refresh job needs.
type BalanceReader interface {
	Balance(ctx context.Context) (core.CreditBalance, error)
}

// BalanceRefreshHandler consumes bridge.refresh.balance deliveries: it asks
// the host for a fresh balance and persists the snapshot when a store is
// configured.
type BalanceRefreshHandler struct {
	reader BalanceReader
	store  core.BalanceStore
}

func NewBalanceRefreshHandler(reader BalanceReader, store core.BalanceStore) *BalanceRefreshHandler {
	return &BalanceRefreshHandler{reader: reader, store: store}
}

func (h *BalanceRefreshHandler) JobID() string { return JobIDBalanceRefresh }

func (h *BalanceRefreshHandler) Handle(ctx context.Context, msg *core.JobExecutionMessage) error {
	if h == nil || h.reader == nil {
		return fmt.Errorf("gojob: balance reader is not configured")
	}
	if msg == nil || msg.JobID != JobIDBalanceRefresh {
		return fmt.Errorf("gojob: unexpected job message")
	}
	balance, err := h.reader.Balance(ctx)
	if err != nil {
		return err
	}
	if h.store == nil {
		return nil
	}
	return h.store.Upsert(ctx, core.BalanceSnapshot{
		AppID:     parameterString(msg.Parameters, "app_id"),
		UserID:    balance.UserID,
		Credits:   balance.Credits,
		Source:    "refresh",
		UpdatedAt: balance.UpdatedAt,
	})
}

// UsagePruneHandler consumes bridge.usage.prune deliveries and bounds the
// local ledger. Message parameters override the default policy.
type UsagePruneHandler struct {
	pruner core.UsageRetentionPruner
	policy core.UsageRetentionPolicy
}

func NewUsagePruneHandler(pruner core.UsageRetentionPruner, policy core.UsageRetentionPolicy) *UsagePruneHandler {
	return &UsagePruneHandler{pruner: pruner, policy: policy}
}

func (h *UsagePruneHandler) JobID() string { return JobIDUsagePrune }

func (h *UsagePruneHandler) Handle(ctx context.Context, msg *core.JobExecutionMessage) error {
	if h == nil || h.pruner == nil {
		return fmt.Errorf("gojob: usage pruner is not configured")
	}
	if msg == nil || msg.JobID != JobIDUsagePrune {
		return fmt.Errorf("gojob: unexpected job message")
	}
	policy := h.policy
	if ttl := parameterInt64(msg.Parameters, "ttl_ms"); ttl > 0 {
		policy.TTL = time.Duration(ttl) * time.Millisecond
	}
	if rowCap := parameterInt64(msg.Parameters, "row_cap"); rowCap > 0 {
		policy.RowCap = int(rowCap)
	}
	_, err := h.pruner.Prune(ctx, policy)
	return err
}

func parameterString(params map[string]any, key string) string {
	if len(params) == 0 {
		return ""
	}
	if value, ok := params[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func parameterInt64(params map[string]any, key string) int64 {
	if len(params) == 0 {
		return 0
	}
	switch value := params[key].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case float64:
		return int64(value)
	default:
		return 0
	}
}
