package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-hostbridge/core"
)

var (
	_ gocmd.Querier[GetProfileMessage, core.UserProfile]   = (*GetProfileQuery)(nil)
	_ gocmd.Querier[GetBalanceMessage, core.CreditBalance] = (*GetBalanceQuery)(nil)
	_ gocmd.Querier[ListUsageMessage, core.UsagePage]      = (*ListUsageQuery)(nil)
)
