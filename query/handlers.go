package query

import (
	"context"

	"github.com/goliatone/go-hostbridge/core"
)

type ProfileReader interface {
	Profile(ctx context.Context) (core.UserProfile, error)
}

type BalanceReader interface {
	Balance(ctx context.Context) (core.CreditBalance, error)
}

type UsageReader interface {
	ListUsage(ctx context.Context, filter core.UsageFilter) (core.UsagePage, error)
}

type GetProfileQuery struct {
	reader ProfileReader
}

func NewGetProfileQuery(reader ProfileReader) *GetProfileQuery {
	return &GetProfileQuery{reader: reader}
}

func (q *GetProfileQuery) Query(ctx context.Context, _ GetProfileMessage) (core.UserProfile, error) {
	if q == nil || q.reader == nil {
		return core.UserProfile{}, queryDependencyError("query: profile reader is required")
	}
	return q.reader.Profile(ctx)
}

type GetBalanceQuery struct {
	reader BalanceReader
}

func NewGetBalanceQuery(reader BalanceReader) *GetBalanceQuery {
	return &GetBalanceQuery{reader: reader}
}

func (q *GetBalanceQuery) Query(ctx context.Context, _ GetBalanceMessage) (core.CreditBalance, error) {
	if q == nil || q.reader == nil {
		return core.CreditBalance{}, queryDependencyError("query: balance reader is required")
	}
	return q.reader.Balance(ctx)
}

type ListUsageQuery struct {
	reader UsageReader
}

func NewListUsageQuery(reader UsageReader) *ListUsageQuery {
	return &ListUsageQuery{reader: reader}
}

func (q *ListUsageQuery) Query(ctx context.Context, msg ListUsageMessage) (core.UsagePage, error) {
	if q == nil || q.reader == nil {
		return core.UsagePage{}, queryDependencyError("query: usage reader is required")
	}
	return q.reader.ListUsage(ctx, msg.Filter)
}
