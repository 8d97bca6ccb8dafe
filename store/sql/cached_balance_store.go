package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-hostbridge/core"
)

const balanceCacheKeyPrefix = "go-hostbridge::balance_snapshot::v1"

// CachedBalanceStore puts a read-through cache in front of a balance store.
// Writes go to the base store first, then invalidate the cache entry.
type CachedBalanceStore struct {
	base  core.BalanceStore
	cache repositorycache.CacheService
}

func NewCachedBalanceStore(
	base core.BalanceStore,
	cacheService repositorycache.CacheService,
) (*CachedBalanceStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base balance store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: balance cache service is required")
	}
	return &CachedBalanceStore{base: base, cache: cacheService}, nil
}

// BalanceCacheKey returns the deterministic cache key contract for balance
// reads: go-hostbridge::balance_snapshot::v1::<app_id>::<user_id>, each
// segment URL-path escaped after trimming.
func BalanceCacheKey(appID string, userID string) (string, error) {
	appID = strings.TrimSpace(appID)
	userID = strings.TrimSpace(userID)
	if appID == "" {
		return "", fmt.Errorf("sqlstore: balance cache key requires app_id")
	}
	segments := []string{url.PathEscape(appID), url.PathEscape(userID)}
	return strings.Join(append([]string{balanceCacheKeyPrefix}, segments...), "::"), nil
}

func (s *CachedBalanceStore) Get(ctx context.Context, appID string, userID string) (core.BalanceSnapshot, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.BalanceSnapshot{}, fmt.Errorf("sqlstore: cached balance store is not configured")
	}
	cacheKey, err := BalanceCacheKey(appID, userID)
	if err != nil {
		return core.BalanceSnapshot{}, err
	}

	snapshot, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.BalanceSnapshot, error) {
		return s.base.Get(ctx, appID, userID)
	})
	if err != nil {
		return core.BalanceSnapshot{}, err
	}
	return snapshot, nil
}

func (s *CachedBalanceStore) Upsert(ctx context.Context, snapshot core.BalanceSnapshot) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached balance store is not configured")
	}
	if err := s.base.Upsert(ctx, snapshot); err != nil {
		return err
	}
	cacheKey, err := BalanceCacheKey(snapshot.AppID, snapshot.UserID)
	if err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, cacheKey); err != nil {
		return err
	}
	return nil
}

var _ core.BalanceStore = (*CachedBalanceStore)(nil)
