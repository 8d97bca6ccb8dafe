package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[ValidateCredentialsMessage] = (*ValidateCredentialsCommand)(nil)
	_ gocmd.Commander[DeductCreditsMessage]       = (*DeductCreditsCommand)(nil)
	_ gocmd.Commander[ReportActivityMessage]      = (*ReportActivityCommand)(nil)
	_ gocmd.Commander[RequestPermissionMessage]   = (*RequestPermissionCommand)(nil)
	_ gocmd.Commander[RefreshBalanceMessage]      = (*RefreshBalanceCommand)(nil)
	_ gocmd.Commander[DestroySessionMessage]      = (*DestroySessionCommand)(nil)
)
