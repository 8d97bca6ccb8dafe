package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

// SessionBuilder collects the dependencies the bridge session is assembled
// from. Options mutate it; unset fields fall back to defaults.
type SessionBuilder struct {
	RuntimeConfig    Config
	Logger           Logger
	LoggerProvider   LoggerProvider
	MetricsRecorder  MetricsRecorder
	ErrorFactory     ErrorFactory
	ErrorMapper      ErrorMapper
	ConfigProvider   ConfigProvider
	OptionsResolver  OptionsResolver
	Transport        ChannelTransport
	HTTPTransport    TransportAdapter
	Validator        CredentialValidator
	RateLimitGuard   RateLimitGuard
	ParamCodec       ParamCodec
	SecretProvider   SecretProvider
	UsageSink        UsageSink
	BalanceStore     BalanceStore
	JobEnqueuer      JobEnqueuer
	PageQuery        url.Values
	Clock            func() time.Time
}

type Option func(*SessionBuilder)

func WithLogger(logger Logger) Option {
	return func(b *SessionBuilder) {
		b.Logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *SessionBuilder) {
		b.LoggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *SessionBuilder) {
		b.MetricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *SessionBuilder) {
		b.ErrorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *SessionBuilder) {
		b.ErrorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *SessionBuilder) {
		b.ConfigProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *SessionBuilder) {
		b.OptionsResolver = resolver
	}
}

func WithTransport(transport ChannelTransport) Option {
	return func(b *SessionBuilder) {
		b.Transport = transport
	}
}

func WithHTTPTransport(adapter TransportAdapter) Option {
	return func(b *SessionBuilder) {
		b.HTTPTransport = adapter
	}
}

func WithCredentialValidator(validator CredentialValidator) Option {
	return func(b *SessionBuilder) {
		b.Validator = validator
	}
}

func WithRateLimitGuard(guard RateLimitGuard) Option {
	return func(b *SessionBuilder) {
		b.RateLimitGuard = guard
	}
}

func WithParamCodec(codec ParamCodec) Option {
	return func(b *SessionBuilder) {
		b.ParamCodec = codec
	}
}

func WithSecretProvider(provider SecretProvider) Option {
	return func(b *SessionBuilder) {
		b.SecretProvider = provider
	}
}

func WithUsageSink(sink UsageSink) Option {
	return func(b *SessionBuilder) {
		b.UsageSink = sink
	}
}

func WithBalanceStore(store BalanceStore) Option {
	return func(b *SessionBuilder) {
		b.BalanceStore = store
	}
}

func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *SessionBuilder) {
		b.JobEnqueuer = enqueuer
	}
}

// WithPageQuery supplies the embedding page's own query parameters, used to
// synthesize the fallback profile when the host does not answer.
func WithPageQuery(query url.Values) Option {
	return func(b *SessionBuilder) {
		b.PageQuery = query
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *SessionBuilder) {
		b.Clock = clock
	}
}

// DefaultSessionBuilder leaves the logger pair unset so an explicit
// WithLogger or WithLoggerProvider governs resolution inside NewSession.
func DefaultSessionBuilder(runtime Config) SessionBuilder {
	return SessionBuilder{
		RuntimeConfig:   runtime,
		MetricsRecorder: NopMetricsRecorder{},
		ErrorFactory:    goerrors.New,
		ErrorMapper:     DefaultErrorMapper,
		ConfigProvider:  NewCfgxConfigProvider(nil),
		OptionsResolver: GoOptionsResolver{},
		Clock:           func() time.Time { return time.Now().UTC() },
	}
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.AppID) != "" {
		layer["app_id"] = cfg.AppID
	}
	if includeZero || cfg.ResponseTimeoutMS > 0 {
		layer["response_timeout_ms"] = cfg.ResponseTimeoutMS
	}
	if includeZero || cfg.RateLimit.Limit > 0 || cfg.RateLimit.WindowMS > 0 {
		layer["rate_limit"] = map[string]any{
			"limit":     cfg.RateLimit.Limit,
			"window_ms": cfg.RateLimit.WindowMS,
		}
	}
	if includeZero || strings.TrimSpace(cfg.Obfuscation.Algorithm) != "" || len(cfg.Obfuscation.AllowList) > 0 || strings.TrimSpace(cfg.Obfuscation.Key) != "" {
		layer["obfuscation"] = map[string]any{
			"algorithm":  cfg.Obfuscation.Algorithm,
			"allow_list": append([]string(nil), cfg.Obfuscation.AllowList...),
			"key":        cfg.Obfuscation.Key,
		}
	}
	if includeZero || strings.TrimSpace(cfg.Validation.Endpoint) != "" || strings.TrimSpace(cfg.Validation.Secret) != "" || cfg.Validation.TimeoutMS > 0 {
		layer["validation"] = map[string]any{
			"endpoint":   cfg.Validation.Endpoint,
			"secret":     cfg.Validation.Secret,
			"timeout_ms": cfg.Validation.TimeoutMS,
		}
	}
	return layer
}

// ResolveConfig applies the precedence defaults < loaded < runtime and
// validates the result.
func ResolveConfig(ctx context.Context, builder SessionBuilder) (Config, error) {
	defaults := DefaultConfig()
	provider := builder.ConfigProvider
	if provider == nil {
		provider = NewCfgxConfigProvider(nil)
	}
	loaded, err := provider.Load(ctx, defaults)
	if err != nil {
		return Config{}, err
	}
	resolver := builder.OptionsResolver
	if resolver == nil {
		resolver = GoOptionsResolver{}
	}
	return resolver.Resolve(defaults, loaded, builder.RuntimeConfig)
}
