package command

import (
	"strings"

	"github.com/goliatone/go-hostbridge/core"
)

const (
	TypeValidateCredentials = "bridge.command.credentials.validate"
	TypeDeductCredits       = "bridge.command.credits.deduct"
	TypeReportActivity      = "bridge.command.activity.report"
	TypeRequestPermission   = "bridge.command.permission.request"
	TypeRefreshBalance      = "bridge.command.balance.refresh"
	TypeDestroySession      = "bridge.command.session.destroy"
)

type ValidateCredentialsMessage struct{}

func (ValidateCredentialsMessage) Type() string { return TypeValidateCredentials }

func (ValidateCredentialsMessage) Validate() error { return nil }

type DeductCreditsMessage struct {
	Request core.DeductionRequest
}

func (DeductCreditsMessage) Type() string { return TypeDeductCredits }

func (m DeductCreditsMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: deduction request is invalid")
}

type ReportActivityMessage struct {
	Report core.ActivityReport
}

func (ReportActivityMessage) Type() string { return TypeReportActivity }

func (m ReportActivityMessage) Validate() error {
	return commandWrapValidation(m.Report.Validate(), "command: activity report is invalid")
}

type RequestPermissionMessage struct {
	Request core.PermissionRequest
}

func (RequestPermissionMessage) Type() string { return TypeRequestPermission }

func (m RequestPermissionMessage) Validate() error {
	return commandWrapValidation(m.Request.Validate(), "command: permission request is invalid")
}

type RefreshBalanceMessage struct {
	UserID string
}

func (RefreshBalanceMessage) Type() string { return TypeRefreshBalance }

func (m RefreshBalanceMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return commandInvalidInputError("command: user id is required")
	}
	return nil
}

type DestroySessionMessage struct{}

func (DestroySessionMessage) Type() string { return TypeDestroySession }

func (DestroySessionMessage) Validate() error { return nil }
