package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hostbridge/core"
)

const defaultValidationTimeout = 5 * time.Second

type ValidatorConfig struct {
	AppID           string
	Secret          string
	Endpoint        string
	Timeout         time.Duration
	AppIDHeader     string
	TimestampHeader string
	SignatureHeader string
}

// Validator performs the credential check against the host platform. The
// round trip is synchronous HTTP, separate from the frame channel, and runs
// once during session initialization.
type Validator struct {
	config    ValidatorConfig
	signer    *Signer
	transport core.TransportAdapter
	Now       func() time.Time
}

func NewValidator(cfg ValidatorConfig, transport core.TransportAdapter) (*Validator, error) {
	cfg.AppID = strings.TrimSpace(cfg.AppID)
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	if cfg.AppID == "" {
		return nil, validatorBadInput("auth: app id is required")
	}
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, validatorBadInput("auth: signing secret is required")
	}
	if cfg.Endpoint == "" {
		return nil, validatorBadInput("auth: validation endpoint is required")
	}
	if transport == nil {
		return nil, validatorBadInput("auth: transport adapter is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultValidationTimeout
	}
	if strings.TrimSpace(cfg.AppIDHeader) == "" {
		cfg.AppIDHeader = defaultAppIDHeader
	}
	if strings.TrimSpace(cfg.TimestampHeader) == "" {
		cfg.TimestampHeader = defaultTimestampHeader
	}
	if strings.TrimSpace(cfg.SignatureHeader) == "" {
		cfg.SignatureHeader = defaultSignatureHeader
	}
	return &Validator{
		config:    cfg,
		signer:    NewSigner(cfg.Secret),
		transport: transport,
		Now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// FromConfig builds a validator from the resolved session configuration.
func FromConfig(cfg core.Config, secret string, transport core.TransportAdapter) (*Validator, error) {
	return NewValidator(ValidatorConfig{
		AppID:    cfg.AppID,
		Secret:   secret,
		Endpoint: cfg.Validation.Endpoint,
		Timeout:  cfg.ValidationTimeout(),
	}, transport)
}

func (v *Validator) Validate(ctx context.Context) (core.ValidationResult, error) {
	if v == nil {
		return core.ValidationResult{}, goerrors.New(
			"auth: validator is nil",
			goerrors.CategoryInternal,
		).WithCode(http.StatusInternalServerError).WithTextCode(core.BridgeErrorInternal)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := json.Marshal(map[string]any{"app_id": v.config.AppID})
	if err != nil {
		return core.ValidationResult{}, goerrors.Wrap(err, goerrors.CategoryInternal, "auth: encode validation body").
			WithCode(http.StatusInternalServerError).
			WithTextCode(core.BridgeErrorInternal)
	}

	timestamp := strconv.FormatInt(v.now().Unix(), 10)
	signature := v.signer.Sign(v.config.AppID, timestamp, body)

	res, err := v.transport.Do(ctx, core.TransportRequest{
		Method: http.MethodPost,
		URL:    v.config.Endpoint,
		Headers: map[string]string{
			"Content-Type":           "application/json",
			v.config.AppIDHeader:     v.config.AppID,
			v.config.TimestampHeader: timestamp,
			v.config.SignatureHeader: signature,
		},
		Body:    body,
		Timeout: v.config.Timeout,
	})
	if err != nil {
		return core.ValidationResult{}, err
	}

	switch {
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		return core.ValidationResult{}, goerrors.New(
			fmt.Sprintf("auth: credentials rejected with status %d", res.StatusCode),
			goerrors.CategoryAuth,
		).WithCode(http.StatusUnauthorized).WithTextCode(core.BridgeErrorUnauthorized)
	case res.StatusCode < 200 || res.StatusCode >= 300:
		return core.ValidationResult{}, goerrors.New(
			fmt.Sprintf("auth: validation endpoint answered %d", res.StatusCode),
			goerrors.CategoryExternal,
		).WithCode(http.StatusBadGateway).WithTextCode(core.BridgeErrorExternalFailure)
	}

	var result core.ValidationResult
	if err := json.Unmarshal(res.Body, &result); err != nil {
		return core.ValidationResult{}, goerrors.Wrap(err, goerrors.CategoryExternal, "auth: decode validation response").
			WithCode(http.StatusBadGateway).
			WithTextCode(core.BridgeErrorExternalFailure)
	}
	if strings.TrimSpace(result.Status) == "" {
		result.Status = "unknown"
	}
	return result, nil
}

func (v *Validator) now() time.Time {
	if v != nil && v.Now != nil {
		return v.Now().UTC()
	}
	return time.Now().UTC()
}

func validatorBadInput(message string) error {
	return goerrors.New(message, goerrors.CategoryBadInput).
		WithCode(http.StatusBadRequest).
		WithTextCode(core.BridgeErrorBadInput)
}

var _ core.CredentialValidator = (*Validator)(nil)
