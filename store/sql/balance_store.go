package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-hostbridge/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

var ErrSnapshotNotFound = errors.New("sqlstore: balance snapshot not found")

// BalanceStore persists the last observed credit balance per app and user.
// One row per (app_id, user_id); Upsert overwrites wholesale.
type BalanceStore struct {
	db *bun.DB
}

func NewBalanceStore(db *bun.DB) (*BalanceStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &BalanceStore{db: db}, nil
}

func (s *BalanceStore) Upsert(ctx context.Context, snapshot core.BalanceSnapshot) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: balance store is not configured")
	}
	appID := strings.TrimSpace(snapshot.AppID)
	userID := strings.TrimSpace(snapshot.UserID)
	if appID == "" {
		return fmt.Errorf("sqlstore: balance snapshot requires app_id")
	}
	updatedAt := snapshot.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	source := strings.TrimSpace(snapshot.Source)
	if source == "" {
		source = "host"
	}

	record := &balanceSnapshotRecord{
		ID:        uuid.NewString(),
		AppID:     appID,
		UserID:    userID,
		Credits:   snapshot.Credits,
		Source:    source,
		UpdatedAt: updatedAt,
	}
	_, err := s.db.NewInsert().
		Model(record).
		On("CONFLICT (app_id, user_id) DO UPDATE").
		Set("credits = EXCLUDED.credits").
		Set("source = EXCLUDED.source").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BalanceStore) Get(ctx context.Context, appID string, userID string) (core.BalanceSnapshot, error) {
	if s == nil || s.db == nil {
		return core.BalanceSnapshot{}, fmt.Errorf("sqlstore: balance store is not configured")
	}
	record := &balanceSnapshotRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("app_id = ?", strings.TrimSpace(appID)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.BalanceSnapshot{}, ErrSnapshotNotFound
		}
		return core.BalanceSnapshot{}, err
	}
	return core.BalanceSnapshot{
		AppID:     record.AppID,
		UserID:    record.UserID,
		Credits:   record.Credits,
		Source:    record.Source,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

var _ core.BalanceStore = (*BalanceStore)(nil)
