package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-hostbridge/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UsageStore persists the local usage ledger: activity reports sent and
// credit deductions applied.
type UsageStore struct {
	db   *bun.DB
	repo repository.Repository[*usageEntryRecord]
}

func NewUsageStore(db *bun.DB) (*UsageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*usageEntryRecord](db, usageHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid usage repository wiring: %w", err)
		}
	}
	return &UsageStore{db: db, repo: repo}, nil
}

func (s *UsageStore) Record(ctx context.Context, entry core.UsageEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: usage store is not configured")
	}
	appID := strings.TrimSpace(entry.AppID)
	if appID == "" {
		return fmt.Errorf("sqlstore: usage entry requires app_id")
	}
	kind := strings.TrimSpace(string(entry.Kind))
	if kind == "" {
		kind = string(core.UsageKindActivity)
	}
	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	record := &usageEntryRecord{
		ID:          id,
		AppID:       appID,
		UserID:      strings.TrimSpace(entry.UserID),
		Kind:        kind,
		UsageType:   strings.TrimSpace(entry.UsageType),
		Cost:        strings.TrimSpace(entry.Cost),
		Credits:     entry.Credits,
		Description: strings.TrimSpace(entry.Description),
		Status:      strings.TrimSpace(entry.Status),
		Metadata:    copyAnyMap(entry.Metadata),
		CreatedAt:   createdAt,
	}
	if record.UsageType == "" {
		record.UsageType = "unknown"
	}
	if record.Status == "" {
		record.Status = "recorded"
	}

	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *UsageStore) List(ctx context.Context, filter core.UsageFilter) (core.UsagePage, error) {
	if s == nil || s.repo == nil {
		return core.UsagePage{}, fmt.Errorf("sqlstore: usage store is not configured")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 25
	}
	offset := (page - 1) * perPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, offset),
	}
	if appID := strings.TrimSpace(filter.AppID); appID != "" {
		selectors = append(selectors, repository.SelectBy("app_id", "=", appID))
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		selectors = append(selectors, repository.SelectBy("user_id", "=", userID))
	}
	if kind := strings.TrimSpace(string(filter.Kind)); kind != "" {
		selectors = append(selectors, repository.SelectBy("kind", "=", kind))
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", ">=", filter.From.UTC()))
	}
	if filter.To != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", "<=", filter.To.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.UsagePage{}, err
	}
	items := make([]core.UsageEntry, 0, len(records))
	for _, record := range records {
		items = append(items, usageRecordToDomain(record))
	}
	return core.UsagePage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
		HasNext: offset+len(items) < total,
	}, nil
}

func (s *UsageStore) Prune(ctx context.Context, policy core.UsageRetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: usage store is not configured")
	}
	deleted := 0
	now := time.Now().UTC()

	if policy.TTL > 0 {
		cutoff := now.Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*usageEntryRecord)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*usageEntryRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - policy.RowCap
		if excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM bridge_usage_entries WHERE id IN (SELECT id FROM bridge_usage_entries ORDER BY created_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}

func usageRecordToDomain(record *usageEntryRecord) core.UsageEntry {
	if record == nil {
		return core.UsageEntry{}
	}
	return core.UsageEntry{
		ID:          record.ID,
		AppID:       record.AppID,
		UserID:      record.UserID,
		Kind:        core.UsageKind(record.Kind),
		UsageType:   record.UsageType,
		Cost:        record.Cost,
		Credits:     record.Credits,
		Description: record.Description,
		Status:      record.Status,
		Metadata:    copyAnyMap(record.Metadata),
		CreatedAt:   record.CreatedAt,
	}
}

var (
	_ core.UsageSink            = (*UsageStore)(nil)
	_ core.UsageRetentionPruner = (*UsageStore)(nil)
)
