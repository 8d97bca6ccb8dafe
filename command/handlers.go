package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-hostbridge/core"
)

// MutatingSession is the slice of the bridge session the command layer
// drives. The session itself satisfies it.
type MutatingSession interface {
	Init(ctx context.Context) (core.ValidationResult, error)
	DeductCredits(ctx context.Context, req core.DeductionRequest) (core.DeductionResult, error)
	ReportActivity(ctx context.Context, report core.ActivityReport) error
	RequestPermission(ctx context.Context, req core.PermissionRequest) (core.PermissionDecision, error)
	EnqueueBalanceRefresh(ctx context.Context, userID string) error
	Destroy()
}

type ValidateCredentialsCommand struct {
	session MutatingSession
}

func NewValidateCredentialsCommand(session MutatingSession) *ValidateCredentialsCommand {
	return &ValidateCredentialsCommand{session: session}
}

func (c *ValidateCredentialsCommand) Execute(ctx context.Context, _ ValidateCredentialsMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: credential session is required")
	}
	out, err := c.session.Init(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DeductCreditsCommand struct {
	session MutatingSession
}

func NewDeductCreditsCommand(session MutatingSession) *DeductCreditsCommand {
	return &DeductCreditsCommand{session: session}
}

func (c *DeductCreditsCommand) Execute(ctx context.Context, msg DeductCreditsMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: credit session is required")
	}
	out, err := c.session.DeductCredits(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ReportActivityCommand struct {
	session MutatingSession
}

func NewReportActivityCommand(session MutatingSession) *ReportActivityCommand {
	return &ReportActivityCommand{session: session}
}

func (c *ReportActivityCommand) Execute(ctx context.Context, msg ReportActivityMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: activity session is required")
	}
	return c.session.ReportActivity(ctx, msg.Report)
}

type RequestPermissionCommand struct {
	session MutatingSession
}

func NewRequestPermissionCommand(session MutatingSession) *RequestPermissionCommand {
	return &RequestPermissionCommand{session: session}
}

func (c *RequestPermissionCommand) Execute(ctx context.Context, msg RequestPermissionMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: permission session is required")
	}
	out, err := c.session.RequestPermission(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshBalanceCommand struct {
	session MutatingSession
}

func NewRefreshBalanceCommand(session MutatingSession) *RefreshBalanceCommand {
	return &RefreshBalanceCommand{session: session}
}

func (c *RefreshBalanceCommand) Execute(ctx context.Context, msg RefreshBalanceMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: balance session is required")
	}
	return c.session.EnqueueBalanceRefresh(ctx, msg.UserID)
}

type DestroySessionCommand struct {
	session MutatingSession
}

func NewDestroySessionCommand(session MutatingSession) *DestroySessionCommand {
	return &DestroySessionCommand{session: session}
}

func (c *DestroySessionCommand) Execute(_ context.Context, _ DestroySessionMessage) error {
	if c == nil || c.session == nil {
		return commandDependencyError("command: session is required")
	}
	c.session.Destroy()
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
