package hostbridge

import (
	"fmt"

	bridgecommand "github.com/goliatone/go-hostbridge/command"
	bridgequery "github.com/goliatone/go-hostbridge/query"
)

// CommandQuerySession is the session surface the command/query wrappers
// need. *bridge.Session satisfies it.
type CommandQuerySession interface {
	bridgecommand.MutatingSession
	bridgequery.ProfileReader
	bridgequery.BalanceReader
	bridgequery.UsageReader
}

var _ CommandQuerySession = (*Session)(nil)

type Commands struct {
	ValidateCredentials *bridgecommand.ValidateCredentialsCommand
	DeductCredits       *bridgecommand.DeductCreditsCommand
	ReportActivity      *bridgecommand.ReportActivityCommand
	RequestPermission   *bridgecommand.RequestPermissionCommand
	RefreshBalance      *bridgecommand.RefreshBalanceCommand
	DestroySession      *bridgecommand.DestroySessionCommand
}

type Queries struct {
	GetProfile *bridgequery.GetProfileQuery
	GetBalance *bridgequery.GetBalanceQuery
	ListUsage  *bridgequery.ListUsageQuery
}

// Facade bundles the command/query wrappers around one session so hosts
// can register the whole set against a go-command registry in one step.
type Facade struct {
	session  CommandQuerySession
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	usageReader bridgequery.UsageReader
}

// WithUsageReader overrides the usage reader behind ListUsage, letting
// hosts serve ledger reads straight from a store instead of the
// session's throttled path.
func WithUsageReader(reader bridgequery.UsageReader) FacadeOption {
	return func(options *facadeOptions) {
		options.usageReader = reader
	}
}

func NewFacade(session CommandQuerySession, opts ...FacadeOption) (*Facade, error) {
	if session == nil {
		return nil, fmt.Errorf("hostbridge: command/query session is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.usageReader
	if reader == nil {
		reader = session
	}

	facade := &Facade{session: session}
	facade.commands = Commands{
		ValidateCredentials: bridgecommand.NewValidateCredentialsCommand(session),
		DeductCredits:       bridgecommand.NewDeductCreditsCommand(session),
		ReportActivity:      bridgecommand.NewReportActivityCommand(session),
		RequestPermission:   bridgecommand.NewRequestPermissionCommand(session),
		RefreshBalance:      bridgecommand.NewRefreshBalanceCommand(session),
		DestroySession:      bridgecommand.NewDestroySessionCommand(session),
	}
	facade.queries = Queries{
		GetProfile: bridgequery.NewGetProfileQuery(session),
		GetBalance: bridgequery.NewGetBalanceQuery(session),
		ListUsage:  bridgequery.NewListUsageQuery(reader),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Session() CommandQuerySession {
	if f == nil {
		return nil
	}
	return f.session
}
