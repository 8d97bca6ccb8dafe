package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hostbridge/auth"
	"github.com/goliatone/go-hostbridge/core"
	"github.com/goliatone/go-hostbridge/security"
	"github.com/goliatone/go-hostbridge/transport"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// Rate limiter keys, one budget bucket per outbound operation class.
const (
	rateKeyProfile    = "profile"
	rateKeyCredit     = "credit"
	rateKeyActivity   = "activity"
	rateKeyPermission = "permission"
)

const jobIDBalanceRefresh = "bridge.refresh.balance"

// Session is the embedded app's handle to the host platform: correlated
// request/response operations, fire-and-forget activity reporting, cached
// profile and balance snapshots, and a synchronous Destroy.
type Session struct {
	cfg        core.Config
	correlator *Correlator
	validator  core.CredentialValidator
	guard      core.RateLimitGuard
	usage      core.UsageSink
	balances   core.BalanceStore
	enqueuer   core.JobEnqueuer
	codec      core.ParamCodec
	logger     core.Logger
	metrics    core.MetricsRecorder
	errs       core.ErrorFactory
	mapError   core.ErrorMapper
	pageQuery  url.Values
	now        func() time.Time

	mu         sync.RWMutex
	profile    *core.UserProfile
	balance    *core.CreditBalance
	rateLimits core.RateLimits
	destroyed  bool
}

// NewSession resolves configuration through the defaults < loaded < runtime
// stack, assembles collaborators from the builder, and starts the inbound
// reader. A session without an explicit transport behaves as not embedded.
func NewSession(ctx context.Context, runtime core.Config, options ...core.Option) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	builder := core.DefaultSessionBuilder(runtime)
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}

	cfg, err := core.ResolveConfig(ctx, builder)
	if err != nil {
		return nil, err
	}

	channel := builder.Transport
	if channel == nil {
		channel = transport.NewNotEmbedded()
	}

	clock := builder.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}

	provider, logger := glog.Resolve("hostbridge", builder.LoggerProvider, builder.Logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("hostbridge"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	errs := builder.ErrorFactory
	if errs == nil {
		errs = goerrors.New
	}

	validator := builder.Validator
	if validator == nil {
		validator, err = buildValidator(cfg, builder.HTTPTransport)
		if err != nil {
			return nil, err
		}
	}

	codec := builder.ParamCodec
	if codec == nil {
		codec, err = buildParamCodec(ctx, cfg, builder.SecretProvider)
		if err != nil {
			return nil, err
		}
	}

	correlator, err := NewCorrelator(channel, core.MessageSourceChild,
		WithCorrelatorTimeout(cfg.ResponseTimeout()),
		WithCorrelatorAppID(cfg.AppID),
		WithCorrelatorLogger(logger),
		WithCorrelatorMetrics(builder.MetricsRecorder),
		WithCorrelatorClock(clock),
	)
	if err != nil {
		return nil, err
	}

	mapper := builder.ErrorMapper
	if mapper == nil {
		mapper = core.DefaultErrorMapper
	}

	session := &Session{
		cfg:        cfg,
		correlator: correlator,
		validator:  validator,
		guard:      builder.RateLimitGuard,
		usage:      builder.UsageSink,
		balances:   builder.BalanceStore,
		enqueuer:   builder.JobEnqueuer,
		codec:      codec,
		logger:     logger,
		metrics:    builder.MetricsRecorder,
		errs:       errs,
		mapError:   mapper,
		pageQuery:  builder.PageQuery,
		now:        clock,
	}
	session.registerBuiltinHandlers()
	return session, nil
}

// buildValidator assembles the signed credential validator from
// configuration when the session carries an HTTP transport but no explicit
// validator. Sessions configured without an endpoint or secret skip the
// check entirely.
func buildValidator(cfg core.Config, httpTransport core.TransportAdapter) (core.CredentialValidator, error) {
	if httpTransport == nil {
		return nil, nil
	}
	secret := strings.TrimSpace(cfg.Validation.Secret)
	if strings.TrimSpace(cfg.Validation.Endpoint) == "" || secret == "" {
		return nil, nil
	}
	return auth.FromConfig(cfg, secret, httpTransport)
}

// buildParamCodec derives the obfuscation codec from configured key
// material. A secret provider, when present, unseals the key first so the
// plaintext never sits in loaded configuration.
func buildParamCodec(ctx context.Context, cfg core.Config, secrets core.SecretProvider) (core.ParamCodec, error) {
	key := strings.TrimSpace(cfg.Obfuscation.Key)
	if key == "" {
		return nil, nil
	}
	material := []byte(key)
	if secrets != nil {
		plain, err := secrets.Decrypt(ctx, material)
		if err != nil {
			return nil, err
		}
		material = plain
	}
	return security.FromConfig(cfg.Obfuscation, material)
}

// Config returns the resolved session configuration.
func (s *Session) Config() core.Config {
	if s == nil {
		return core.Config{}
	}
	return s.cfg
}

// Correlator exposes the underlying correlator, mostly for handler
// registration and introspection in tests.
func (s *Session) Correlator() *Correlator {
	if s == nil {
		return nil
	}
	return s.correlator
}

// Init runs the signed credential validation round trip. Sessions without a
// configured validator skip the check and report status "skipped".
func (s *Session) Init(ctx context.Context) (core.ValidationResult, error) {
	if s == nil {
		return core.ValidationResult{}, sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return core.ValidationResult{}, s.mapped(err)
	}
	if s.validator == nil {
		return core.ValidationResult{Valid: true, Status: "skipped"}, nil
	}

	var result core.ValidationResult
	err := observeOperation(ctx, s.metrics, s.now, "init", func() error {
		var callErr error
		result, callErr = s.validator.Validate(ctx)
		return callErr
	})
	if err != nil {
		return core.ValidationResult{}, s.mapped(err)
	}
	if !result.Valid {
		return result, s.mapped(s.newError(
			"bridge: credential validation rejected: "+result.Status,
			goerrors.CategoryAuth,
		).WithCode(http.StatusUnauthorized).WithTextCode(core.BridgeErrorUnauthorized))
	}

	s.mu.Lock()
	s.rateLimits = result.RateLimits
	s.mu.Unlock()
	return result, nil
}

// Profile fetches the host-provided user profile. When the host does not
// answer, answers with an error payload, or the session is not embedded, the
// call degrades to a synthesized fallback profile with zero credits instead
// of failing. The cache is overwritten wholesale on every resolution.
func (s *Session) Profile(ctx context.Context) (core.UserProfile, error) {
	if s == nil {
		return core.UserProfile{}, sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return core.UserProfile{}, s.mapped(err)
	}
	if err := s.allow(ctx, rateKeyProfile); err != nil {
		return core.UserProfile{}, s.mapped(err)
	}

	var profile core.UserProfile
	_ = observeOperation(ctx, s.metrics, s.now, "profile", func() error {
		env, err := s.correlator.Call(ctx, core.MessageTypeProfileRequest, map[string]any{})
		if err != nil {
			profile = s.fallbackProfile()
			s.logWarn(ctx, "profile degraded to fallback", map[string]any{"error": err.Error()})
			return err
		}
		decoded, ok := decodeProfile(env.Payload)
		if !ok {
			profile = s.fallbackProfile()
			s.logWarn(ctx, "profile payload empty, using fallback", nil)
			return nil
		}
		profile = decoded
		return nil
	})

	s.mu.Lock()
	cached := profile
	s.profile = &cached
	s.mu.Unlock()
	return profile, nil
}

// CachedProfile returns the last resolved profile, if any.
func (s *Session) CachedProfile() (core.UserProfile, bool) {
	if s == nil {
		return core.UserProfile{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return core.UserProfile{}, false
	}
	return *s.profile, true
}

// DeductCredits sends a base-currency cost to the host, verbatim. The host
// owns the conversion to credits; on success only the balance fields from
// the reply are patched into the cache and the deduction is recorded in the
// usage ledger.
func (s *Session) DeductCredits(ctx context.Context, req core.DeductionRequest) (core.DeductionResult, error) {
	if s == nil {
		return core.DeductionResult{}, sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return core.DeductionResult{}, s.mapped(err)
	}
	if err := req.Validate(); err != nil {
		return core.DeductionResult{}, s.mapped(err)
	}
	if err := s.allow(ctx, rateKeyCredit); err != nil {
		return core.DeductionResult{}, s.mapped(err)
	}

	var result core.DeductionResult
	err := observeOperation(ctx, s.metrics, s.now, "credit.deduct", func() error {
		env, callErr := s.correlator.Call(ctx, core.MessageTypeCreditDeduct, map[string]any{
			"cost":        req.Cost,
			"usage_type":  req.UsageType,
			"description": req.Description,
			"estimate":    req.Estimate,
		})
		if callErr != nil {
			return callErr
		}
		result = decodeDeductionResult(env.Payload)
		return nil
	})
	if err != nil {
		return core.DeductionResult{}, s.mapped(err)
	}

	if result.Success && !result.Estimate {
		s.patchBalance(ctx, result.Balance)
		s.recordUsage(ctx, core.UsageEntry{
			Kind:        core.UsageKindDeduction,
			UsageType:   req.UsageType,
			Cost:        req.Cost,
			Credits:     result.CreditsDebited,
			Description: req.Description,
			Status:      "applied",
		})
	}
	return result, nil
}

// Balance asks the host for the current credit balance and overwrites the
// cached snapshot wholesale. Outside a host frame it degrades like Profile:
// a synthesized zero-credit snapshot instead of an error. Other failures
// (timeout, destroyed session, rate limit) still reject.
func (s *Session) Balance(ctx context.Context) (core.CreditBalance, error) {
	if s == nil {
		return core.CreditBalance{}, sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return core.CreditBalance{}, s.mapped(err)
	}
	if err := s.allow(ctx, rateKeyCredit); err != nil {
		return core.CreditBalance{}, s.mapped(err)
	}

	var balance core.CreditBalance
	err := observeOperation(ctx, s.metrics, s.now, "credit.balance", func() error {
		env, callErr := s.correlator.Call(ctx, core.MessageTypeBalanceRequest, map[string]any{})
		if callErr != nil {
			return callErr
		}
		balance = decodeBalance(env.Payload, s.now())
		return nil
	})
	if err != nil {
		if !errors.Is(err, core.ErrNotEmbedded) {
			return core.CreditBalance{}, s.mapped(err)
		}
		balance = s.fallbackBalance()
		s.logWarn(ctx, "balance degraded to fallback", map[string]any{"error": err.Error()})
	}

	s.storeBalance(ctx, balance, balanceSource(err))
	return balance, nil
}

// CachedBalance returns the last observed balance, if any.
func (s *Session) CachedBalance() (core.CreditBalance, bool) {
	if s == nil {
		return core.CreditBalance{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.balance == nil {
		return core.CreditBalance{}, false
	}
	return *s.balance, true
}

// ReportActivity transmits fire-and-forget usage telemetry. The call settles
// as soon as the transport accepts the envelope; no reply is expected and no
// pending entry is registered.
func (s *Session) ReportActivity(ctx context.Context, report core.ActivityReport) error {
	if s == nil {
		return sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return s.mapped(err)
	}
	if err := report.Validate(); err != nil {
		return s.mapped(err)
	}
	if err := s.allow(ctx, rateKeyActivity); err != nil {
		return s.mapped(err)
	}

	err := observeOperation(ctx, s.metrics, s.now, "activity.report", func() error {
		return s.correlator.Notify(ctx, core.MessageTypeActivityReport, map[string]any{
			"action":   report.Action,
			"object":   report.Object,
			"metadata": core.CloneFields(report.Metadata),
		})
	})
	if err != nil {
		return s.mapped(err)
	}

	s.recordUsage(ctx, core.UsageEntry{
		Kind:      core.UsageKindActivity,
		UsageType: report.Action,
		Status:    "sent",
		Metadata:  core.CloneFields(report.Metadata),
	})
	return nil
}

// RequestPermission asks the host to grant a capability and blocks for the
// decision.
func (s *Session) RequestPermission(ctx context.Context, req core.PermissionRequest) (core.PermissionDecision, error) {
	if s == nil {
		return core.PermissionDecision{}, sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return core.PermissionDecision{}, s.mapped(err)
	}
	if err := req.Validate(); err != nil {
		return core.PermissionDecision{}, s.mapped(err)
	}
	if err := s.allow(ctx, rateKeyPermission); err != nil {
		return core.PermissionDecision{}, s.mapped(err)
	}

	var decision core.PermissionDecision
	err := observeOperation(ctx, s.metrics, s.now, "permission.request", func() error {
		env, callErr := s.correlator.Call(ctx, core.MessageTypePermissionRequest, map[string]any{
			"permission": req.Permission,
			"reason":     req.Reason,
		})
		if callErr != nil {
			return callErr
		}
		decision = core.PermissionDecision{
			Permission: readString(env.Payload, "permission"),
			Granted:    readBool(env.Payload, "granted"),
			Reason:     readString(env.Payload, "reason"),
		}
		if decision.Permission == "" {
			decision.Permission = req.Permission
		}
		return nil
	})
	if err != nil {
		return core.PermissionDecision{}, s.mapped(err)
	}
	return decision, nil
}

// ListUsage pages through the local usage ledger.
func (s *Session) ListUsage(ctx context.Context, filter core.UsageFilter) (core.UsagePage, error) {
	if s == nil {
		return core.UsagePage{}, sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return core.UsagePage{}, s.mapped(err)
	}
	if s.usage == nil {
		return core.UsagePage{}, s.mapped(s.newError(
			"bridge: usage ledger is not configured",
			goerrors.CategoryNotFound,
		).WithCode(http.StatusNotFound).WithTextCode(core.BridgeErrorNotFound))
	}
	if filter.AppID == "" {
		filter.AppID = s.cfg.AppID
	}
	page, err := s.usage.List(ctx, filter)
	if err != nil {
		return core.UsagePage{}, s.mapped(err)
	}
	return page, nil
}

// EnqueueBalanceRefresh schedules a background balance refresh through the
// configured job queue. Duplicate requests for the same user collapse on the
// idempotency key.
func (s *Session) EnqueueBalanceRefresh(ctx context.Context, userID string) error {
	if s == nil {
		return sessionInternal("bridge: session is nil")
	}
	if err := s.ensureLive(); err != nil {
		return s.mapped(err)
	}
	if s.enqueuer == nil {
		return s.mapped(s.newError(
			"bridge: job enqueuer is not configured",
			goerrors.CategoryNotFound,
		).WithCode(http.StatusNotFound).WithTextCode(core.BridgeErrorNotFound))
	}
	msg := &core.JobExecutionMessage{
		JobID: jobIDBalanceRefresh,
		Parameters: map[string]any{
			"app_id":  s.cfg.AppID,
			"user_id": userID,
		},
		IdempotencyKey: s.cfg.AppID + ":" + userID,
		DedupPolicy:    "drop",
	}
	if err := s.enqueuer.Enqueue(ctx, msg); err != nil {
		return s.mapped(err)
	}
	return nil
}

// ObfuscateParams encodes the allow-listed page parameters with the
// configured codec. Non-listed parameters pass through untouched.
func (s *Session) ObfuscateParams(query url.Values) (url.Values, error) {
	if s == nil {
		return nil, sessionInternal("bridge: session is nil")
	}
	if s.codec == nil || query == nil {
		return query, nil
	}
	allowed := map[string]bool{}
	for _, name := range s.cfg.Obfuscation.AllowList {
		allowed[name] = true
	}
	encoded := url.Values{}
	for name, values := range query {
		for _, value := range values {
			if !allowed[name] {
				encoded.Add(name, value)
				continue
			}
			obscured, err := s.codec.EncodeValue(name, value)
			if err != nil {
				return nil, s.mapped(err)
			}
			encoded.Add(name, obscured)
		}
	}
	return encoded, nil
}

// Destroy tears the session down synchronously and idempotently: pending
// calls reject, the inbound reader stops, caches clear, and every later
// operation fails with a session-destroyed error.
func (s *Session) Destroy() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	s.destroyed = true
	s.profile = nil
	s.balance = nil
	s.mu.Unlock()

	s.correlator.Destroy()
}

// Destroyed reports whether Destroy completed.
func (s *Session) Destroyed() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.destroyed
}

func (s *Session) registerBuiltinHandlers() {
	// Uncorrelated host pushes keep the caches warm. Late correlated replies
	// land here too once their pending entry is gone.
	_ = s.correlator.RegisterHandler(core.MessageTypeProfileResponse, func(ctx context.Context, env core.Envelope) error {
		if profile, ok := decodeProfile(env.Payload); ok {
			s.mu.Lock()
			if !s.destroyed {
				s.profile = &profile
			}
			s.mu.Unlock()
		}
		return nil
	})
	_ = s.correlator.RegisterHandler(core.MessageTypeBalanceResponse, func(ctx context.Context, env core.Envelope) error {
		s.storeBalance(ctx, decodeBalance(env.Payload, s.now()), "push")
		return nil
	})
	_ = s.correlator.RegisterHandler(core.MessageTypeError, func(ctx context.Context, env core.Envelope) error {
		message, _ := env.ErrorMessage()
		s.logWarn(ctx, "host reported error", map[string]any{"error": message})
		return nil
	})
}

func (s *Session) ensureLive() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.destroyed {
		return core.ErrSessionDestroyed
	}
	return nil
}

func (s *Session) allow(ctx context.Context, key string) error {
	if s.guard == nil {
		return nil
	}
	return s.guard.Allow(ctx, s.cfg.AppID+":"+key)
}

func (s *Session) fallbackProfile() core.UserProfile {
	query := decodeQuery(s.pageQuery, s.codec, s.cfg.Obfuscation.AllowList)
	return SynthesizeProfile(query)
}

// fallbackBalance mirrors the synthesized profile: the page-query identity
// with zero credits, never a fabricated figure.
func (s *Session) fallbackBalance() core.CreditBalance {
	return core.CreditBalance{
		UserID:    s.fallbackProfile().UserID,
		Credits:   0,
		UpdatedAt: s.now(),
	}
}

func balanceSource(err error) string {
	if err != nil {
		return "fallback"
	}
	return "host"
}

// patchBalance updates only the credit figure from a deduction reply; the
// rest of the cached snapshot stays as last observed.
func (s *Session) patchBalance(ctx context.Context, credits int64) {
	s.mu.Lock()
	userID := ""
	if s.balance != nil {
		s.balance.Credits = credits
		s.balance.UpdatedAt = s.now()
		userID = s.balance.UserID
	} else if s.profile != nil {
		userID = s.profile.UserID
		s.balance = &core.CreditBalance{UserID: userID, Credits: credits, UpdatedAt: s.now()}
	} else {
		s.balance = &core.CreditBalance{Credits: credits, UpdatedAt: s.now()}
	}
	if s.profile != nil {
		s.profile.Credits = credits
	}
	s.mu.Unlock()

	s.upsertSnapshot(ctx, core.BalanceSnapshot{
		AppID:     s.cfg.AppID,
		UserID:    userID,
		Credits:   credits,
		Source:    "deduction",
		UpdatedAt: s.now(),
	})
}

func (s *Session) storeBalance(ctx context.Context, balance core.CreditBalance, source string) {
	s.mu.Lock()
	if s.destroyed {
		s.mu.Unlock()
		return
	}
	cached := balance
	s.balance = &cached
	if s.profile != nil {
		s.profile.Credits = balance.Credits
	}
	s.mu.Unlock()

	s.upsertSnapshot(ctx, core.BalanceSnapshot{
		AppID:     s.cfg.AppID,
		UserID:    balance.UserID,
		Credits:   balance.Credits,
		Source:    source,
		UpdatedAt: balance.UpdatedAt,
	})
}

func (s *Session) upsertSnapshot(ctx context.Context, snapshot core.BalanceSnapshot) {
	if s.balances == nil {
		return
	}
	if err := s.balances.Upsert(ctx, snapshot); err != nil {
		s.logWarn(ctx, "balance snapshot upsert failed", map[string]any{"error": err.Error()})
	}
}

func (s *Session) recordUsage(ctx context.Context, entry core.UsageEntry) {
	if s.usage == nil {
		return
	}
	entry.ID = uuid.NewString()
	entry.AppID = s.cfg.AppID
	entry.CreatedAt = s.now()
	s.mu.RLock()
	if entry.UserID == "" && s.profile != nil {
		entry.UserID = s.profile.UserID
	}
	s.mu.RUnlock()
	if err := s.usage.Record(ctx, entry); err != nil {
		s.logWarn(ctx, "usage ledger record failed", map[string]any{"error": err.Error()})
	}
}

func (s *Session) mapped(err error) error {
	if err == nil {
		return nil
	}
	if s != nil && s.mapError != nil {
		if mapped := s.mapError(err); mapped != nil {
			return mapped
		}
	}
	return err
}

func (s *Session) logWarn(ctx context.Context, message string, fields map[string]any) {
	if s == nil || s.logger == nil {
		return
	}
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(core.FieldsLogger); ok && len(fields) > 0 {
		logger = fieldsLogger.WithFields(core.CloneFields(fields))
	}
	logger.Warn(message)
}

// newError builds rich errors through the configured factory so hosts can
// decorate every session error uniformly.
func (s *Session) newError(message string, category goerrors.Category) *goerrors.Error {
	if s != nil && s.errs != nil {
		return s.errs(message, category)
	}
	return goerrors.New(message, category)
}

func sessionInternal(message string) error {
	return goerrors.New(message, goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(core.BridgeErrorInternal)
}

func decodeProfile(payload map[string]any) (core.UserProfile, bool) {
	raw, ok := payload["profile"].(map[string]any)
	if !ok || len(raw) == 0 {
		return core.UserProfile{}, false
	}
	profile := core.UserProfile{
		UserID:      readString(raw, "user_id"),
		Username:    readString(raw, "username"),
		DisplayName: readString(raw, "display_name"),
		AvatarURL:   readString(raw, "avatar_url"),
		Locale:      readString(raw, "locale"),
		Credits:     readInt64(raw, "credits"),
	}
	if meta, ok := raw["metadata"].(map[string]any); ok {
		profile.Metadata = core.CloneFields(meta)
	}
	if profile.UserID == "" {
		return core.UserProfile{}, false
	}
	return profile, true
}

func decodeDeductionResult(payload map[string]any) core.DeductionResult {
	return core.DeductionResult{
		Success:        readBool(payload, "success"),
		CreditsDebited: readInt64(payload, "credits_debited"),
		Balance:        readInt64(payload, "balance"),
		Estimate:       readBool(payload, "estimate"),
		Message:        readString(payload, "message"),
	}
}

func decodeBalance(payload map[string]any, now time.Time) core.CreditBalance {
	balance := core.CreditBalance{
		UserID:    readString(payload, "user_id"),
		Credits:   readInt64(payload, "credits"),
		UpdatedAt: now,
	}
	if stamp := readString(payload, "updated_at"); stamp != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
			balance.UpdatedAt = parsed.UTC()
		}
	}
	return balance
}

func readString(payload map[string]any, key string) string {
	if payload == nil {
		return ""
	}
	if value, ok := payload[key].(string); ok {
		return value
	}
	return ""
}

func readBool(payload map[string]any, key string) bool {
	if payload == nil {
		return false
	}
	if value, ok := payload[key].(bool); ok {
		return value
	}
	return false
}

func readInt64(payload map[string]any, key string) int64 {
	if payload == nil {
		return 0
	}
	switch value := payload[key].(type) {
	case int64:
		return value
	case int:
		return int64(value)
	case float64:
		return int64(value)
	case json.Number:
		parsed, err := value.Int64()
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}
