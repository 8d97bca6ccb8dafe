package bridge_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hostbridge/bridge"
	"github.com/goliatone/go-hostbridge/core"
	"github.com/goliatone/go-hostbridge/security"
	"github.com/goliatone/go-hostbridge/transport"
)

type recordingGuard struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (g *recordingGuard) Allow(_ context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.keys = append(g.keys, key)
	return g.err
}

func (g *recordingGuard) seen() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.keys...)
}

type memoryUsageSink struct {
	mu         sync.Mutex
	entries    []core.UsageEntry
	lastFilter core.UsageFilter
}

func (s *memoryUsageSink) Record(_ context.Context, entry core.UsageEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *memoryUsageSink) List(_ context.Context, filter core.UsageFilter) (core.UsagePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	items := append([]core.UsageEntry(nil), s.entries...)
	return core.UsagePage{Items: items, Page: 1, PerPage: len(items), Total: len(items)}, nil
}

func (s *memoryUsageSink) all() []core.UsageEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.UsageEntry(nil), s.entries...)
}

type memoryBalanceStore struct {
	mu    sync.Mutex
	snaps map[string]core.BalanceSnapshot
}

func (s *memoryBalanceStore) Upsert(_ context.Context, snapshot core.BalanceSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snaps == nil {
		s.snaps = map[string]core.BalanceSnapshot{}
	}
	s.snaps[snapshot.AppID+"|"+snapshot.UserID] = snapshot
	return nil
}

func (s *memoryBalanceStore) Get(_ context.Context, appID string, userID string) (core.BalanceSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[appID+"|"+userID]
	if !ok {
		return core.BalanceSnapshot{}, errors.New("snapshot not found")
	}
	return snap, nil
}

func (s *memoryBalanceStore) get(appID string, userID string) (core.BalanceSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snaps[appID+"|"+userID]
	return snap, ok
}

type staticValidator struct {
	result core.ValidationResult
	err    error
}

func (v staticValidator) Validate(context.Context) (core.ValidationResult, error) {
	return v.result, v.err
}

type capturingEnqueuer struct {
	mu   sync.Mutex
	msgs []*core.JobExecutionMessage
}

func (e *capturingEnqueuer) Enqueue(_ context.Context, msg *core.JobExecutionMessage) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, msg)
	return nil
}

type recordingHTTPAdapter struct {
	mu       sync.Mutex
	requests []core.TransportRequest
	response core.TransportResponse
	err      error
}

func (a *recordingHTTPAdapter) Kind() string {
	return "http"
}

func (a *recordingHTTPAdapter) Do(_ context.Context, req core.TransportRequest) (core.TransportResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, req)
	return a.response, a.err
}

func (a *recordingHTTPAdapter) seen() []core.TransportRequest {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]core.TransportRequest(nil), a.requests...)
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Trace(string, ...any) {}
func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Fatal(string, ...any) {}

func (l *recordingLogger) Warn(message string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, message)
}

func (l *recordingLogger) WithContext(context.Context) core.Logger {
	return l
}

func (l *recordingLogger) seen() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

type stubLoggerProvider struct {
	logger core.Logger
}

func (p stubLoggerProvider) GetLogger(string) core.Logger {
	return p.logger
}

type prefixCodec struct{}

func (prefixCodec) EncodeValue(_ string, value string) (string, error) {
	return "enc:" + value, nil
}

func (prefixCodec) DecodeValue(_ string, value string) (string, error) {
	if !strings.HasPrefix(value, "enc:") {
		return "", errors.New("not an encoded value")
	}
	return strings.TrimPrefix(value, "enc:"), nil
}

func testRuntimeConfig() core.Config {
	return core.Config{AppID: testAppID, ResponseTimeoutMS: 200}
}

func newTestSession(t *testing.T, responder func(core.Envelope) *core.Envelope, options ...core.Option) *bridge.Session {
	t.Helper()
	child, parent := transport.NewLoopbackPair(8)
	if responder == nil {
		responder = func(core.Envelope) *core.Envelope { return nil }
	}
	stop := serveHost(parent, responder)
	t.Cleanup(stop)

	session, err := bridge.NewSession(context.Background(), testRuntimeConfig(),
		append([]core.Option{core.WithTransport(child)}, options...)...)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)
	return session
}

func TestNewSession_BuildsValidatorFromConfiguredTransport(t *testing.T) {
	adapter := &recordingHTTPAdapter{response: core.TransportResponse{
		StatusCode: 200,
		Body:       []byte(`{"valid":true,"status":"active"}`),
	}}
	cfg := testRuntimeConfig()
	cfg.Validation = core.ValidationConfig{
		Endpoint:  "https://host.example/api/validate",
		Secret:    "s3cret",
		TimeoutMS: 1_000,
	}
	session, err := bridge.NewSession(context.Background(), cfg, core.WithHTTPTransport(adapter))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	result, err := session.Init(context.Background())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !result.Valid || result.Status != "active" {
		t.Fatalf("unexpected result %+v", result)
	}
	requests := adapter.seen()
	if len(requests) != 1 {
		t.Fatalf("expected one validation round trip, got %d", len(requests))
	}
	if requests[0].URL != cfg.Validation.Endpoint {
		t.Fatalf("unexpected validation url %q", requests[0].URL)
	}
}

func TestNewSession_ExplicitValidatorWinsOverTransport(t *testing.T) {
	adapter := &recordingHTTPAdapter{}
	cfg := testRuntimeConfig()
	cfg.Validation = core.ValidationConfig{Endpoint: "https://host.example/api/validate", Secret: "s3cret"}
	session, err := bridge.NewSession(context.Background(), cfg,
		core.WithHTTPTransport(adapter),
		core.WithCredentialValidator(staticValidator{
			result: core.ValidationResult{Valid: true, Status: "active"},
		}),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	if _, err := session.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if got := adapter.seen(); len(got) != 0 {
		t.Fatalf("explicit validator must bypass the http transport, saw %d requests", len(got))
	}
}

func TestNewSession_UnsealsObfuscationKeyThroughSecretProvider(t *testing.T) {
	secrets, err := security.NewAppKeySecretProvider([]byte("master key material"))
	if err != nil {
		t.Fatalf("new secret provider: %v", err)
	}
	sealed, err := secrets.Encrypt(context.Background(), []byte("param key material"))
	if err != nil {
		t.Fatalf("seal key: %v", err)
	}

	cfg := testRuntimeConfig()
	cfg.Obfuscation.Key = string(sealed)
	session, err := bridge.NewSession(context.Background(), cfg, core.WithSecretProvider(secrets))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	query := url.Values{}
	query.Set("uid", "usr_1")
	encoded, err := session.ObfuscateParams(query)
	if err != nil {
		t.Fatalf("obfuscate: %v", err)
	}
	got := encoded.Get("uid")
	if got == "usr_1" {
		t.Fatalf("expected the configured key to build a codec, value passed through")
	}

	codec, err := security.NewParamObfuscator([]byte("param key material"), "")
	if err != nil {
		t.Fatalf("new obfuscator: %v", err)
	}
	plain, err := codec.DecodeValue("uid", got)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if plain != "usr_1" {
		t.Fatalf("expected round trip through the unsealed key, got %q", plain)
	}
}

func TestNewSession_PlainObfuscationKeyBuildsCodec(t *testing.T) {
	cfg := testRuntimeConfig()
	cfg.Obfuscation.Key = "plain key material"
	session, err := bridge.NewSession(context.Background(), cfg)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	query := url.Values{}
	query.Set("uid", "usr_1")
	encoded, err := session.ObfuscateParams(query)
	if err != nil {
		t.Fatalf("obfuscate: %v", err)
	}
	if encoded.Get("uid") == "usr_1" {
		t.Fatalf("expected the plain key to build a codec, value passed through")
	}
}

func TestNewSession_ErrorFactoryDecoratesSessionErrors(t *testing.T) {
	factory := func(message string, category ...goerrors.Category) *goerrors.Error {
		return goerrors.New("hosted: "+message, category...)
	}
	session := newTestSession(t, nil, core.WithErrorFactory(factory))

	_, err := session.ListUsage(context.Background(), core.UsageFilter{})
	if err == nil {
		t.Fatalf("expected missing ledger to fail")
	}
	if !strings.Contains(err.Error(), "hosted: bridge: usage ledger is not configured") {
		t.Fatalf("expected factory-built error, got %v", err)
	}
}

func TestNewSession_LoggerProviderSuppliesSessionLogger(t *testing.T) {
	logger := &recordingLogger{}
	session, err := bridge.NewSession(context.Background(), testRuntimeConfig(),
		core.WithLoggerProvider(stubLoggerProvider{logger: logger}),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	if _, err := session.Profile(context.Background()); err != nil {
		t.Fatalf("profile: %v", err)
	}
	for _, warned := range logger.seen() {
		if strings.Contains(warned, "degraded to fallback") {
			return
		}
	}
	t.Fatalf("expected the provider-resolved logger to record the fallback warning, got %v", logger.seen())
}

func TestSessionInit_SkipsWithoutValidator(t *testing.T) {
	session := newTestSession(t, nil)
	result, err := session.Init(context.Background())
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if !result.Valid || result.Status != "skipped" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestSessionInit_RejectedCredentials(t *testing.T) {
	session := newTestSession(t, nil, core.WithCredentialValidator(staticValidator{
		result: core.ValidationResult{Valid: false, Status: "revoked"},
	}))
	_, err := session.Init(context.Background())
	if err == nil {
		t.Fatalf("expected rejection")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.BridgeErrorUnauthorized {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}

func TestSessionProfile_DecodesHostReply(t *testing.T) {
	session := newTestSession(t, func(env core.Envelope) *core.Envelope {
		if env.Type != core.MessageTypeProfileRequest {
			return nil
		}
		reply := parentEnvelope(core.MessageTypeProfileResponse, map[string]any{
			"profile": map[string]any{
				"user_id":      "usr_1",
				"username":     "kaye",
				"display_name": "Kaye",
				"credits":      int64(42),
			},
		}, env.RequestID)
		return &reply
	})

	profile, err := session.Profile(context.Background())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.UserID != "usr_1" || profile.Username != "kaye" || profile.Credits != 42 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	if profile.Fallback {
		t.Fatalf("host-provided profile must not be flagged as fallback")
	}
	cached, ok := session.CachedProfile()
	if !ok || cached.UserID != "usr_1" {
		t.Fatalf("expected cached profile, got %+v ok=%v", cached, ok)
	}
}

func TestSessionProfile_FallsBackWhenHostSilent(t *testing.T) {
	query := url.Values{}
	query.Set("uid", "usr_9")
	query.Set("uname", "guest")
	session := newTestSession(t, nil, core.WithPageQuery(query))

	profile, err := session.Profile(context.Background())
	if err != nil {
		t.Fatalf("profile must degrade, not fail: %v", err)
	}
	if !profile.Fallback {
		t.Fatalf("expected fallback profile, got %+v", profile)
	}
	if profile.UserID != "usr_9" || profile.Username != "guest" {
		t.Fatalf("unexpected fallback identity %+v", profile)
	}
	if profile.Credits != 0 {
		t.Fatalf("fallback profile must carry zero credits, got %d", profile.Credits)
	}
}

func TestSessionProfile_NotEmbeddedFallsBack(t *testing.T) {
	session, err := bridge.NewSession(context.Background(), testRuntimeConfig())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	profile, profileErr := session.Profile(context.Background())
	if profileErr != nil {
		t.Fatalf("profile must degrade, not fail: %v", profileErr)
	}
	if !profile.Fallback || profile.UserID != "anonymous" {
		t.Fatalf("expected anonymous fallback, got %+v", profile)
	}
}

func TestSessionProfile_DecodesObfuscatedFallbackParams(t *testing.T) {
	query := url.Values{}
	query.Set("uid", "enc:usr_7")
	query.Set("uname", "enc:masked")
	session := newTestSession(t, nil,
		core.WithPageQuery(query),
		core.WithParamCodec(prefixCodec{}),
	)

	profile, err := session.Profile(context.Background())
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.UserID != "usr_7" || profile.Username != "masked" {
		t.Fatalf("expected decoded fallback params, got %+v", profile)
	}
}

func TestSessionDeductCredits_PatchesBalanceAndRecordsUsage(t *testing.T) {
	sink := &memoryUsageSink{}
	store := &memoryBalanceStore{}
	session := newTestSession(t, func(env core.Envelope) *core.Envelope {
		if env.Type != core.MessageTypeCreditDeduct {
			return nil
		}
		if got := env.Payload["cost"]; got != "0.05" {
			t.Errorf("cost must travel verbatim, got %v", got)
		}
		reply := parentEnvelope(core.MessageTypeCreditDeductResult, map[string]any{
			"success":         true,
			"credits_debited": int64(5),
			"balance":         int64(95),
		}, env.RequestID)
		return &reply
	}, core.WithUsageSink(sink), core.WithBalanceStore(store))

	result, err := session.DeductCredits(context.Background(), core.DeductionRequest{
		Cost:        "0.05",
		UsageType:   "llm.tokens",
		Description: "chat completion",
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if !result.Success || result.CreditsDebited != 5 || result.Balance != 95 {
		t.Fatalf("unexpected result %+v", result)
	}

	balance, ok := session.CachedBalance()
	if !ok || balance.Credits != 95 {
		t.Fatalf("expected cached balance 95, got %+v ok=%v", balance, ok)
	}

	entries := sink.all()
	if len(entries) != 1 {
		t.Fatalf("expected 1 ledger entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Kind != core.UsageKindDeduction || entry.Status != "applied" {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}
	if entry.Cost != "0.05" || entry.Credits != 5 || entry.AppID != testAppID {
		t.Fatalf("unexpected ledger entry %+v", entry)
	}

	snap, ok := store.get(testAppID, "")
	if !ok || snap.Credits != 95 || snap.Source != "deduction" {
		t.Fatalf("expected deduction snapshot, got %+v ok=%v", snap, ok)
	}
}

func TestSessionDeductCredits_EstimateDoesNotPatch(t *testing.T) {
	sink := &memoryUsageSink{}
	session := newTestSession(t, func(env core.Envelope) *core.Envelope {
		reply := parentEnvelope(core.MessageTypeCreditDeductResult, map[string]any{
			"success":         true,
			"credits_debited": int64(5),
			"balance":         int64(95),
			"estimate":        true,
		}, env.RequestID)
		return &reply
	}, core.WithUsageSink(sink))

	result, err := session.DeductCredits(context.Background(), core.DeductionRequest{
		Cost:      "0.05",
		UsageType: "llm.tokens",
		Estimate:  true,
	})
	if err != nil {
		t.Fatalf("deduct: %v", err)
	}
	if !result.Estimate {
		t.Fatalf("expected estimate result, got %+v", result)
	}
	if _, ok := session.CachedBalance(); ok {
		t.Fatalf("estimate must not patch the cached balance")
	}
	if entries := sink.all(); len(entries) != 0 {
		t.Fatalf("estimate must not hit the ledger, got %d entries", len(entries))
	}
}

func TestSessionDeductCredits_ValidatesRequest(t *testing.T) {
	session := newTestSession(t, nil)
	for _, req := range []core.DeductionRequest{
		{},
		{Cost: "abc", UsageType: "llm.tokens"},
		{Cost: "-1.00", UsageType: "llm.tokens"},
		{Cost: "0.05"},
	} {
		if _, err := session.DeductCredits(context.Background(), req); err == nil {
			t.Fatalf("expected validation failure for %+v", req)
		}
	}
}

func TestSessionBalance_OverwritesCachedSnapshot(t *testing.T) {
	store := &memoryBalanceStore{}
	stamp := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	session := newTestSession(t, func(env core.Envelope) *core.Envelope {
		if env.Type != core.MessageTypeBalanceRequest {
			return nil
		}
		reply := parentEnvelope(core.MessageTypeBalanceResponse, map[string]any{
			"user_id":    "usr_1",
			"credits":    int64(77),
			"updated_at": stamp.Format(time.RFC3339Nano),
		}, env.RequestID)
		return &reply
	}, core.WithBalanceStore(store))

	balance, err := session.Balance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.UserID != "usr_1" || balance.Credits != 77 || !balance.UpdatedAt.Equal(stamp) {
		t.Fatalf("unexpected balance %+v", balance)
	}
	cached, ok := session.CachedBalance()
	if !ok || cached.Credits != 77 {
		t.Fatalf("expected cached balance, got %+v ok=%v", cached, ok)
	}
	snap, ok := store.get(testAppID, "usr_1")
	if !ok || snap.Source != "host" {
		t.Fatalf("expected host snapshot, got %+v ok=%v", snap, ok)
	}
}

func TestSessionBalance_NotEmbeddedDegradesToZeroSnapshot(t *testing.T) {
	store := &memoryBalanceStore{}
	query := url.Values{}
	query.Set("uid", "usr_9")
	session, err := bridge.NewSession(context.Background(), testRuntimeConfig(),
		core.WithPageQuery(query),
		core.WithBalanceStore(store),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	balance, balanceErr := session.Balance(context.Background())
	if balanceErr != nil {
		t.Fatalf("balance must degrade outside a host frame, not fail: %v", balanceErr)
	}
	if balance.UserID != "usr_9" || balance.Credits != 0 {
		t.Fatalf("expected zero-credit page-query snapshot, got %+v", balance)
	}
	if balance.UpdatedAt.IsZero() {
		t.Fatalf("expected a stamped snapshot, got %+v", balance)
	}

	cached, ok := session.CachedBalance()
	if !ok || cached.Credits != 0 {
		t.Fatalf("expected cached zero-credit snapshot, got %+v ok=%v", cached, ok)
	}
	snap, ok := store.get(testAppID, "usr_9")
	if !ok || snap.Source != "fallback" || snap.Credits != 0 {
		t.Fatalf("expected fallback snapshot, got %+v ok=%v", snap, ok)
	}
}

func TestSessionBalance_SilentHostStillRejects(t *testing.T) {
	session := newTestSession(t, nil)

	_, err := session.Balance(context.Background())
	if err == nil {
		t.Fatalf("expected a timeout rejection with a silent host")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.BridgeErrorTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if _, ok := session.CachedBalance(); ok {
		t.Fatalf("a rejected call must not fabricate a cached balance")
	}
}

func TestSessionReportActivity_FireAndForget(t *testing.T) {
	sink := &memoryUsageSink{}
	received := make(chan core.Envelope, 1)
	session := newTestSession(t, func(env core.Envelope) *core.Envelope {
		if env.Type == core.MessageTypeActivityReport {
			received <- env
		}
		return nil
	}, core.WithUsageSink(sink))

	err := session.ReportActivity(context.Background(), core.ActivityReport{
		Action: "document.export",
		Object: "doc_42",
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}

	select {
	case env := <-received:
		if env.RequestID != 0 {
			t.Fatalf("activity report must not be correlated, got request id %d", env.RequestID)
		}
		if got := env.Payload["action"]; got != "document.export" {
			t.Fatalf("unexpected payload %+v", env.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("host never received the report")
	}

	entries := sink.all()
	if len(entries) != 1 || entries[0].Kind != core.UsageKindActivity || entries[0].Status != "sent" {
		t.Fatalf("unexpected ledger entries %+v", entries)
	}
}

func TestSessionReportActivity_RequiresAction(t *testing.T) {
	session := newTestSession(t, nil)
	if err := session.ReportActivity(context.Background(), core.ActivityReport{}); err == nil {
		t.Fatalf("expected missing action to fail")
	}
}

func TestSessionRequestPermission_DecodesDecision(t *testing.T) {
	session := newTestSession(t, func(env core.Envelope) *core.Envelope {
		if env.Type != core.MessageTypePermissionRequest {
			return nil
		}
		reply := parentEnvelope(core.MessageTypePermissionResponse, map[string]any{
			"permission": "clipboard.write",
			"granted":    true,
		}, env.RequestID)
		return &reply
	})

	decision, err := session.RequestPermission(context.Background(), core.PermissionRequest{
		Permission: "clipboard.write",
		Reason:     "export results",
	})
	if err != nil {
		t.Fatalf("request permission: %v", err)
	}
	if decision.Permission != "clipboard.write" || !decision.Granted {
		t.Fatalf("unexpected decision %+v", decision)
	}
}

func TestSessionRateLimit_RejectionIsMapped(t *testing.T) {
	guard := &recordingGuard{err: errors.New("rate limit exceeded for app_1")}
	session := newTestSession(t, nil, core.WithRateLimitGuard(guard))

	_, err := session.Profile(context.Background())
	if err == nil {
		t.Fatalf("expected rate-limit rejection")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) || rich.TextCode != core.BridgeErrorRateLimited {
		t.Fatalf("expected rate-limited error, got %v", err)
	}
	keys := guard.seen()
	if len(keys) != 1 || keys[0] != testAppID+":profile" {
		t.Fatalf("unexpected guard keys %v", keys)
	}
}

func TestSessionListUsage_DefaultsAppID(t *testing.T) {
	sink := &memoryUsageSink{}
	session := newTestSession(t, nil, core.WithUsageSink(sink))

	if _, err := session.ListUsage(context.Background(), core.UsageFilter{}); err != nil {
		t.Fatalf("list usage: %v", err)
	}
	sink.mu.Lock()
	filter := sink.lastFilter
	sink.mu.Unlock()
	if filter.AppID != testAppID {
		t.Fatalf("expected filter scoped to %q, got %q", testAppID, filter.AppID)
	}
}

func TestSessionListUsage_WithoutSinkFails(t *testing.T) {
	session := newTestSession(t, nil)
	if _, err := session.ListUsage(context.Background(), core.UsageFilter{}); err == nil {
		t.Fatalf("expected missing ledger to fail")
	}
}

func TestSessionEnqueueBalanceRefresh(t *testing.T) {
	enqueuer := &capturingEnqueuer{}
	session := newTestSession(t, nil, core.WithJobEnqueuer(enqueuer))

	if err := session.EnqueueBalanceRefresh(context.Background(), "usr_1"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	enqueuer.mu.Lock()
	msgs := append([]*core.JobExecutionMessage(nil), enqueuer.msgs...)
	enqueuer.mu.Unlock()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	msg := msgs[0]
	if msg.JobID != "bridge.refresh.balance" {
		t.Fatalf("unexpected job id %q", msg.JobID)
	}
	if msg.IdempotencyKey != testAppID+":usr_1" || msg.DedupPolicy != "drop" {
		t.Fatalf("unexpected dedupe settings %+v", msg)
	}
}

func TestSessionObfuscateParams_OnlyAllowListed(t *testing.T) {
	session := newTestSession(t, nil, core.WithParamCodec(prefixCodec{}))

	query := url.Values{}
	query.Set("uid", "usr_1")
	query.Set("theme", "dark")
	encoded, err := session.ObfuscateParams(query)
	if err != nil {
		t.Fatalf("obfuscate: %v", err)
	}
	if got := encoded.Get("uid"); got != "enc:usr_1" {
		t.Fatalf("expected uid to be encoded, got %q", got)
	}
	if got := encoded.Get("theme"); got != "dark" {
		t.Fatalf("non-listed params must pass through, got %q", got)
	}
}

func TestSessionPush_UpdatesBalanceCache(t *testing.T) {
	child, parent := transport.NewLoopbackPair(8)
	session, err := bridge.NewSession(context.Background(), testRuntimeConfig(), core.WithTransport(child))
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	t.Cleanup(session.Destroy)

	push := parentEnvelope(core.MessageTypeBalanceResponse, map[string]any{
		"user_id": "usr_1",
		"credits": int64(12),
	}, 0)
	if err := parent.Post(context.Background(), push); err != nil {
		t.Fatalf("post push: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if balance, ok := session.CachedBalance(); ok && balance.Credits == 12 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("push never reached the balance cache")
}

func TestSessionDestroy_SynchronousAndIdempotent(t *testing.T) {
	session := newTestSession(t, func(env core.Envelope) *core.Envelope {
		reply := parentEnvelope(core.MessageTypeProfileResponse, map[string]any{
			"profile": map[string]any{"user_id": "usr_1"},
		}, env.RequestID)
		return &reply
	})

	if _, err := session.Profile(context.Background()); err != nil {
		t.Fatalf("profile: %v", err)
	}

	session.Destroy()
	session.Destroy()

	if !session.Destroyed() {
		t.Fatalf("expected destroyed state")
	}
	if _, ok := session.CachedProfile(); ok {
		t.Fatalf("destroy must clear the profile cache")
	}
	if _, err := session.Profile(context.Background()); err == nil {
		t.Fatalf("expected operations after destroy to fail")
	}
	var rich *goerrors.Error
	_, err := session.Balance(context.Background())
	if !goerrors.As(err, &rich) || rich.TextCode != core.BridgeErrorSessionDestroyed {
		t.Fatalf("expected session-destroyed error, got %v", err)
	}
}
