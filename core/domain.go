package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNotEmbedded              = errors.New("core: not running inside a host frame")
	ErrInvalidEnvelope          = errors.New("core: invalid message envelope")
	ErrInvalidCallTransition    = errors.New("core: invalid pending-call state transition")
	ErrSessionDestroyed         = errors.New("core: session is destroyed")
	ErrInvalidDeductionRequest  = errors.New("core: invalid deduction request")
	ErrInvalidActivityReport    = errors.New("core: invalid activity report")
	ErrInvalidPermissionRequest = errors.New("core: invalid permission request")
)

// MessageSource identifies which side of the frame boundary produced an
// envelope. The value is fixed per direction and is part of inbound
// validation: a child session only accepts envelopes tagged MessageSourceParent.
type MessageSource string

const (
	MessageSourceParent MessageSource = "parent"
	MessageSourceChild  MessageSource = "child"
)

// MessageType is the closed set of envelope tags exchanged with the host.
// Unknown tags are counted and dropped; new tags are compile-time additions.
type MessageType string

const (
	MessageTypeProfileRequest     MessageType = "bridge.profile.request"
	MessageTypeProfileResponse    MessageType = "bridge.profile.response"
	MessageTypeCreditDeduct       MessageType = "bridge.credit.deduct"
	MessageTypeCreditDeductResult MessageType = "bridge.credit.deduct.response"
	MessageTypeBalanceRequest     MessageType = "bridge.credit.balance"
	MessageTypeBalanceResponse    MessageType = "bridge.credit.balance.response"
	MessageTypeActivityReport     MessageType = "bridge.activity.report"
	MessageTypePermissionRequest  MessageType = "bridge.permission.request"
	MessageTypePermissionResponse MessageType = "bridge.permission.response"
	MessageTypeError              MessageType = "bridge.error"
)

// KnownMessageType reports whether tag belongs to the closed catalog.
func KnownMessageType(tag MessageType) bool {
	switch tag {
	case MessageTypeProfileRequest, MessageTypeProfileResponse,
		MessageTypeCreditDeduct, MessageTypeCreditDeductResult,
		MessageTypeBalanceRequest, MessageTypeBalanceResponse,
		MessageTypeActivityReport,
		MessageTypePermissionRequest, MessageTypePermissionResponse,
		MessageTypeError:
		return true
	default:
		return false
	}
}

// Envelope is the wire format both directions share. Payload is a free-form
// key/value map; RequestID correlates replies to calls and is zero for
// fire-and-forget traffic.
type Envelope struct {
	Type      MessageType    `json:"type"`
	Payload   map[string]any `json:"payload"`
	Timestamp string         `json:"timestamp"`
	Source    MessageSource  `json:"source"`
	AppID     string         `json:"app_id,omitempty"`
	RequestID uint64         `json:"request_id,omitempty"`
}

// NewEnvelope builds an outbound envelope stamped with now. The envelope is
// immutable once handed to a transport; callers must not mutate Payload after.
func NewEnvelope(tag MessageType, payload map[string]any, source MessageSource, now time.Time) Envelope {
	if payload == nil {
		payload = map[string]any{}
	}
	return Envelope{
		Type:      tag,
		Payload:   payload,
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Source:    source,
	}
}

// Validate applies the structural trust-boundary checks for inbound traffic:
// a recognized type tag, a timestamp, and the expected peer source. AppID is
// only enforced when both sides carry one. Failing envelopes are dropped
// silently by the dispatcher; Validate never inspects the payload.
func (e Envelope) Validate(expectedSource MessageSource, appID string) error {
	if !KnownMessageType(e.Type) {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEnvelope, string(e.Type))
	}
	if strings.TrimSpace(e.Timestamp) == "" {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEnvelope)
	}
	if e.Source != expectedSource {
		return fmt.Errorf("%w: source %q, want %q", ErrInvalidEnvelope, e.Source, expectedSource)
	}
	if appID != "" && e.AppID != "" && e.AppID != appID {
		return fmt.Errorf("%w: app id mismatch", ErrInvalidEnvelope)
	}
	return nil
}

// ErrorMessage extracts an explicit error payload from a correlated reply.
func (e Envelope) ErrorMessage() (string, bool) {
	if len(e.Payload) == 0 {
		return "", false
	}
	value, ok := e.Payload["error"]
	if !ok || value == nil {
		return "", false
	}
	text := strings.TrimSpace(fmt.Sprint(value))
	if text == "" || text == "<nil>" {
		return "", false
	}
	return text, true
}

// CallState is the lifecycle of one correlated call. Sent is the only
// non-terminal state; terminal states are final and idempotent against
// duplicate replies.
type CallState string

const (
	CallStateSent     CallState = "sent"
	CallStateResolved CallState = "resolved"
	CallStateRejected CallState = "rejected"
	CallStateTimedOut CallState = "timed_out"
)

func (s CallState) Terminal() bool {
	return s == CallStateResolved || s == CallStateRejected || s == CallStateTimedOut
}

// Transition returns the state after applying next, or an error when the
// move is not allowed. Terminal -> terminal is reported as invalid so the
// caller can treat duplicate settlement as a no-op.
func (s CallState) Transition(next CallState) (CallState, error) {
	if s == CallStateSent && next.Terminal() {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s -> %s", ErrInvalidCallTransition, s, next)
}

// UserProfile is the host-provided user snapshot. It is cached wholesale on
// the session and overwritten on each successful refresh.
type UserProfile struct {
	UserID      string         `json:"user_id"`
	Username    string         `json:"username"`
	DisplayName string         `json:"display_name"`
	AvatarURL   string         `json:"avatar_url"`
	Locale      string         `json:"locale"`
	Credits     int64          `json:"credits"`
	Fallback    bool           `json:"fallback"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CreditBalance is the host-side accounting snapshot. Credits are the host
// platform's internal unit, derived from base-currency cost by the host's
// fixed conversion rule.
type CreditBalance struct {
	UserID    string    `json:"user_id"`
	Credits   int64     `json:"credits"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeductionRequest carries a base-currency cost. The host converts cost to
// credits with its fixed markup/unit-price formula; the SDK never
// pre-converts and transmits Cost verbatim.
type DeductionRequest struct {
	Cost        string `json:"cost"`
	UsageType   string `json:"usage_type"`
	Description string `json:"description"`
	Estimate    bool   `json:"estimate"`
}

func (r DeductionRequest) Validate() error {
	cost := strings.TrimSpace(r.Cost)
	if cost == "" {
		return fmt.Errorf("%w: cost is required", ErrInvalidDeductionRequest)
	}
	parsed, err := strconv.ParseFloat(cost, 64)
	if err != nil {
		return fmt.Errorf("%w: cost %q is not a decimal", ErrInvalidDeductionRequest, cost)
	}
	if parsed < 0 {
		return fmt.Errorf("%w: cost must not be negative", ErrInvalidDeductionRequest)
	}
	if strings.TrimSpace(r.UsageType) == "" {
		return fmt.Errorf("%w: usage type is required", ErrInvalidDeductionRequest)
	}
	return nil
}

// DeductionResult patches only the balance fields the host returned; other
// cached profile fields are left untouched.
type DeductionResult struct {
	Success        bool   `json:"success"`
	CreditsDebited int64  `json:"credits_debited"`
	Balance        int64  `json:"balance"`
	Estimate       bool   `json:"estimate"`
	Message        string `json:"message,omitempty"`
}

// ActivityReport is fire-and-forget usage telemetry. No reply is expected.
type ActivityReport struct {
	Action   string         `json:"action"`
	Object   string         `json:"object,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (r ActivityReport) Validate() error {
	if strings.TrimSpace(r.Action) == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidActivityReport)
	}
	return nil
}

type PermissionRequest struct {
	Permission string `json:"permission"`
	Reason     string `json:"reason,omitempty"`
}

func (r PermissionRequest) Validate() error {
	if strings.TrimSpace(r.Permission) == "" {
		return fmt.Errorf("%w: permission is required", ErrInvalidPermissionRequest)
	}
	return nil
}

type PermissionDecision struct {
	Permission string `json:"permission"`
	Granted    bool   `json:"granted"`
	Reason     string `json:"reason,omitempty"`
}

// RateLimits are host-assigned outbound call budgets returned by the
// credential validator.
type RateLimits struct {
	PerMinute int `json:"per_minute"`
	PerDay    int `json:"per_day"`
}

// ValidationResult is the credential validator's verdict for one app.
type ValidationResult struct {
	Valid      bool       `json:"valid"`
	Status     string     `json:"status"`
	RateLimits RateLimits `json:"rate_limits"`
}

// UsageKind distinguishes ledger entries.
type UsageKind string

const (
	UsageKindActivity  UsageKind = "activity"
	UsageKindDeduction UsageKind = "deduction"
)

// UsageEntry is one row of the local usage ledger: an activity report sent
// or a credit deduction applied.
type UsageEntry struct {
	ID          string
	AppID       string
	UserID      string
	Kind        UsageKind
	UsageType   string
	Cost        string
	Credits     int64
	Description string
	Status      string
	Metadata    map[string]any
	CreatedAt   time.Time
}

type UsageFilter struct {
	AppID   string
	UserID  string
	Kind    UsageKind
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

type UsagePage struct {
	Items   []UsageEntry
	Page    int
	PerPage int
	Total   int
	HasNext bool
}

// UsageRetentionPolicy bounds the local ledger. Zero values disable the
// corresponding pruning dimension.
type UsageRetentionPolicy struct {
	TTL    time.Duration
	RowCap int
}

// BalanceSnapshot is the persisted form of a CreditBalance observation.
type BalanceSnapshot struct {
	AppID     string
	UserID    string
	Credits   int64
	Source    string
	UpdatedAt time.Time
}
