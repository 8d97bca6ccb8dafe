package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// ChannelTransport is the asynchronous, broadcast-style channel to the host
// frame. Post never waits for a reply; replies arrive on Receive in arbitrary
// order and are correlated by request id. A transport that is not embedded in
// a host frame returns ErrNotEmbedded from Post so callers can degrade.
type ChannelTransport interface {
	Kind() string
	Post(ctx context.Context, env Envelope) error
	Receive(ctx context.Context) (Envelope, error)
	Close() error
}

// EnvelopeHandler consumes uncorrelated inbound envelopes dispatched by type.
type EnvelopeHandler func(ctx context.Context, env Envelope) error

// TransportRequest/TransportResponse model the synchronous HTTP round trip
// the credential validator performs, independent of the channel transport.
type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

// CredentialValidator performs the signed validation round trip against the
// host platform. Out-of-band from the correlator; one blocking call with its
// own timeout.
type CredentialValidator interface {
	Validate(ctx context.Context) (ValidationResult, error)
}

// RateLimitGuard admits or rejects one outbound call for key. Rejections
// carry retry-after metadata via the error.
type RateLimitGuard interface {
	Allow(ctx context.Context, key string) error
}

// ParamCodec is the reversible obfuscation applied to allow-listed URL
// parameters. Advisory concealment only, not a cryptographic boundary.
type ParamCodec interface {
	EncodeValue(name string, value string) (string, error)
	DecodeValue(name string, value string) (string, error)
}

type SecretProvider interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// UsageSink records what the session did locally. Optional; a nil sink
// disables the ledger.
type UsageSink interface {
	Record(ctx context.Context, entry UsageEntry) error
	List(ctx context.Context, filter UsageFilter) (UsagePage, error)
}

type UsageRetentionPruner interface {
	Prune(ctx context.Context, policy UsageRetentionPolicy) (int, error)
}

type BalanceStore interface {
	Upsert(ctx context.Context, snapshot BalanceSnapshot) error
	Get(ctx context.Context, appID string, userID string) (BalanceSnapshot, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

// JobExecutionMessage and friends are the queue contracts background refresh
// rides on; adapters/gojob maps them to go-job.
type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type CommandMessage interface {
	Type() string
}

type CommandDispatcher interface {
	Dispatch(ctx context.Context, msg any) error
}

// StoreProvider and RepositoryStoreFactory let hosts wire the optional SQL
// ledger from a persistence client without the core package importing bun.
type StoreProvider interface {
	UsageStore() UsageSink
	BalanceStore() BalanceStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}
