// Package hostbridge is the root composition surface for the embedded
// app bridge. It re-exports the core contracts and the session
// constructor so downstream apps can depend on a single import path,
// while the subpackages (bridge, transport, auth, security, ratelimit,
// store, adapters) stay importable for finer-grained wiring.
package hostbridge

import (
	"context"

	"github.com/goliatone/go-hostbridge/bridge"
	"github.com/goliatone/go-hostbridge/core"
)

// Domain types.
type (
	Config            = core.Config
	RateLimitConfig   = core.RateLimitConfig
	ObfuscationConfig = core.ObfuscationConfig
	ValidationConfig  = core.ValidationConfig

	Envelope      = core.Envelope
	MessageType   = core.MessageType
	MessageSource = core.MessageSource

	UserProfile        = core.UserProfile
	CreditBalance      = core.CreditBalance
	DeductionRequest   = core.DeductionRequest
	DeductionResult    = core.DeductionResult
	ActivityReport     = core.ActivityReport
	PermissionRequest  = core.PermissionRequest
	PermissionDecision = core.PermissionDecision
	ValidationResult   = core.ValidationResult
	RateLimits         = core.RateLimits

	UsageKind            = core.UsageKind
	UsageEntry           = core.UsageEntry
	UsageFilter          = core.UsageFilter
	UsagePage            = core.UsagePage
	UsageRetentionPolicy = core.UsageRetentionPolicy
	BalanceSnapshot      = core.BalanceSnapshot
)

// Pluggable contracts.
type (
	ChannelTransport     = core.ChannelTransport
	EnvelopeHandler      = core.EnvelopeHandler
	TransportAdapter     = core.TransportAdapter
	CredentialValidator  = core.CredentialValidator
	RateLimitGuard       = core.RateLimitGuard
	ParamCodec           = core.ParamCodec
	SecretProvider       = core.SecretProvider
	UsageSink            = core.UsageSink
	UsageRetentionPruner = core.UsageRetentionPruner
	BalanceStore         = core.BalanceStore
	JobEnqueuer          = core.JobEnqueuer
	JobDequeuer          = core.JobDequeuer
	JobDelivery          = core.JobDelivery
	JobWorkerHook        = core.JobWorkerHook
	Logger               = core.Logger
	LoggerProvider       = core.LoggerProvider
	MetricsRecorder      = core.MetricsRecorder
)

// Option configures the session builder.
type Option = core.Option

// Session is the embedded-side runtime. It owns the correlator, the
// caches, and the throttled host operations.
type Session = bridge.Session

const (
	MessageSourceParent = core.MessageSourceParent
	MessageSourceChild  = core.MessageSourceChild

	MessageTypeProfileRequest     = core.MessageTypeProfileRequest
	MessageTypeProfileResponse    = core.MessageTypeProfileResponse
	MessageTypeCreditDeduct       = core.MessageTypeCreditDeduct
	MessageTypeCreditDeductResult = core.MessageTypeCreditDeductResult
	MessageTypeBalanceRequest     = core.MessageTypeBalanceRequest
	MessageTypeBalanceResponse    = core.MessageTypeBalanceResponse
	MessageTypeActivityReport     = core.MessageTypeActivityReport
	MessageTypePermissionRequest  = core.MessageTypePermissionRequest
	MessageTypePermissionResponse = core.MessageTypePermissionResponse
	MessageTypeError              = core.MessageTypeError
)

// Builder options, re-exported so callers composing a session never
// need to import core directly.
var (
	WithLogger              = core.WithLogger
	WithLoggerProvider      = core.WithLoggerProvider
	WithMetricsRecorder     = core.WithMetricsRecorder
	WithErrorFactory        = core.WithErrorFactory
	WithErrorMapper         = core.WithErrorMapper
	WithConfigProvider      = core.WithConfigProvider
	WithOptionsResolver     = core.WithOptionsResolver
	WithTransport           = core.WithTransport
	WithHTTPTransport       = core.WithHTTPTransport
	WithCredentialValidator = core.WithCredentialValidator
	WithRateLimitGuard      = core.WithRateLimitGuard
	WithParamCodec          = core.WithParamCodec
	WithSecretProvider      = core.WithSecretProvider
	WithUsageSink           = core.WithUsageSink
	WithBalanceStore        = core.WithBalanceStore
	WithJobEnqueuer         = core.WithJobEnqueuer
	WithPageQuery           = core.WithPageQuery
	WithClock               = core.WithClock
)

// DefaultConfig returns the runtime defaults: 10s response timeout,
// 100 requests per 60s window, XOR obfuscation.
func DefaultConfig() Config {
	return core.DefaultConfig()
}

// NewSession builds the embedded-side session. It is the main entry
// point for downstream apps; see bridge.NewSession for the underlying
// constructor.
func NewSession(ctx context.Context, runtime Config, options ...Option) (*Session, error) {
	return bridge.NewSession(ctx, runtime, options...)
}
