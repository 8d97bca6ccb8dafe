package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	BridgeErrorBadInput         = "BRIDGE_BAD_INPUT"
	BridgeErrorBadEnvelope      = "BRIDGE_BAD_ENVELOPE"
	BridgeErrorTimeout          = "BRIDGE_TIMEOUT"
	BridgeErrorNotEmbedded      = "BRIDGE_NOT_EMBEDDED"
	BridgeErrorRateLimited      = "BRIDGE_RATE_LIMITED"
	BridgeErrorUnauthorized     = "BRIDGE_UNAUTHORIZED"
	BridgeErrorForbidden        = "BRIDGE_FORBIDDEN"
	BridgeErrorPeerRejected     = "BRIDGE_PEER_REJECTED"
	BridgeErrorCreditDeclined   = "BRIDGE_CREDIT_DECLINED"
	BridgeErrorSessionDestroyed = "BRIDGE_SESSION_DESTROYED"
	BridgeErrorConflict         = "BRIDGE_CONFLICT"
	BridgeErrorNotFound         = "BRIDGE_NOT_FOUND"
	BridgeErrorExternalFailure  = "BRIDGE_EXTERNAL_FAILURE"
	BridgeErrorOperationFailed  = "BRIDGE_OPERATION_FAILED"
	BridgeErrorInternal         = "BRIDGE_INTERNAL_ERROR"
)

func bridgeErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureBridgeErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not running inside a host frame"):
		return newBridgeError(err.Error(), goerrors.CategoryOperation, BridgeErrorNotEmbedded)
	case strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout"):
		return newBridgeError(err.Error(), goerrors.CategoryOperation, BridgeErrorTimeout)
	case strings.Contains(msg, "throttl"), strings.Contains(msg, "rate limit"):
		return newBridgeError(err.Error(), goerrors.CategoryRateLimit, BridgeErrorRateLimited)
	case strings.Contains(msg, "destroyed"):
		return newBridgeError(err.Error(), goerrors.CategoryConflict, BridgeErrorSessionDestroyed)
	case strings.Contains(msg, "envelope"):
		return newBridgeError(err.Error(), goerrors.CategoryBadInput, BridgeErrorBadEnvelope)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newBridgeError(err.Error(), goerrors.CategoryBadInput, BridgeErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureBridgeErrorEnvelope(mapped)
}

func newBridgeError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureBridgeErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureBridgeErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = bridgeHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultBridgeTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultBridgeTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return BridgeErrorBadInput
	case goerrors.CategoryNotFound:
		return BridgeErrorNotFound
	case goerrors.CategoryAuth:
		return BridgeErrorUnauthorized
	case goerrors.CategoryAuthz:
		return BridgeErrorForbidden
	case goerrors.CategoryConflict:
		return BridgeErrorConflict
	case goerrors.CategoryRateLimit:
		return BridgeErrorRateLimited
	case goerrors.CategoryExternal:
		return BridgeErrorExternalFailure
	case goerrors.CategoryOperation:
		return BridgeErrorOperationFailed
	default:
		return BridgeErrorInternal
	}
}

func bridgeHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DefaultErrorMapper is the package-level mapper the session and the
// command/query layers share.
func DefaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return bridgeErrorMapper(err)
}
