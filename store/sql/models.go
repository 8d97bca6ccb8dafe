package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type usageEntryRecord struct {
	bun.BaseModel `bun:"table:bridge_usage_entries,alias:bue"`

	ID          string         `bun:"id,pk"`
	AppID       string         `bun:"app_id,notnull"`
	UserID      string         `bun:"user_id"`
	Kind        string         `bun:"kind,notnull"`
	UsageType   string         `bun:"usage_type,notnull"`
	Cost        string         `bun:"cost"`
	Credits     int64          `bun:"credits,notnull,default:0"`
	Description string         `bun:"description"`
	Status      string         `bun:"status,notnull"`
	Metadata    map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt   time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type balanceSnapshotRecord struct {
	bun.BaseModel `bun:"table:bridge_balance_snapshots,alias:bbs"`

	ID        string    `bun:"id,pk"`
	AppID     string    `bun:"app_id,notnull"`
	UserID    string    `bun:"user_id,notnull"`
	Credits   int64     `bun:"credits,notnull,default:0"`
	Source    string    `bun:"source,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func copyAnyMap(input map[string]any) map[string]any {
	if len(input) == 0 {
		return map[string]any{}
	}
	output := make(map[string]any, len(input))
	for key, value := range input {
		output[key] = value
	}
	return output
}
