package query

import (
	"github.com/goliatone/go-hostbridge/core"
)

const (
	TypeGetProfile = "bridge.query.profile.get"
	TypeGetBalance = "bridge.query.balance.get"
	TypeListUsage  = "bridge.query.usage.list"
)

type GetProfileMessage struct{}

func (GetProfileMessage) Type() string { return TypeGetProfile }

func (GetProfileMessage) Validate() error { return nil }

type GetBalanceMessage struct{}

func (GetBalanceMessage) Type() string { return TypeGetBalance }

func (GetBalanceMessage) Validate() error { return nil }

type ListUsageMessage struct {
	Filter core.UsageFilter
}

func (ListUsageMessage) Type() string { return TypeListUsage }

func (m ListUsageMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryInvalidInputError("query: page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryInvalidInputError("query: per_page must be >= 0")
	}
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.To.Before(*m.Filter.From) {
		return queryInvalidInputError("query: time range is inverted")
	}
	return nil
}
