package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestDefaultErrorMapper_NilError(t *testing.T) {
	if got := DefaultErrorMapper(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestDefaultErrorMapper_NotEmbedded(t *testing.T) {
	mapped := DefaultErrorMapper(ErrNotEmbedded)
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode != BridgeErrorNotEmbedded {
		t.Fatalf("expected %s, got %s", BridgeErrorNotEmbedded, mapped.TextCode)
	}
}

func TestDefaultErrorMapper_Timeout(t *testing.T) {
	mapped := DefaultErrorMapper(fmt.Errorf("bridge: call %q timed out after 10s", "bridge.profile.request"))
	if mapped.TextCode != BridgeErrorTimeout {
		t.Fatalf("expected %s, got %s", BridgeErrorTimeout, mapped.TextCode)
	}
}

func TestDefaultErrorMapper_RateLimited(t *testing.T) {
	mapped := DefaultErrorMapper(errors.New("ratelimit: key throttled for 3s"))
	if mapped.TextCode != BridgeErrorRateLimited {
		t.Fatalf("expected %s, got %s", BridgeErrorRateLimited, mapped.TextCode)
	}
	if mapped.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", mapped.Code)
	}
}

func TestDefaultErrorMapper_PreservesRichErrors(t *testing.T) {
	source := goerrors.New("auth: signature rejected", goerrors.CategoryAuth)
	mapped := DefaultErrorMapper(source)
	if mapped.Category != goerrors.CategoryAuth {
		t.Fatalf("expected auth category, got %s", mapped.Category)
	}
	if mapped.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", mapped.Code)
	}
	if mapped.TextCode != BridgeErrorUnauthorized {
		t.Fatalf("expected %s, got %s", BridgeErrorUnauthorized, mapped.TextCode)
	}
}

func TestDefaultErrorMapper_EnvelopeErrors(t *testing.T) {
	mapped := DefaultErrorMapper(fmt.Errorf("%w: missing timestamp", ErrInvalidEnvelope))
	if mapped.TextCode != BridgeErrorBadEnvelope {
		t.Fatalf("expected %s, got %s", BridgeErrorBadEnvelope, mapped.TextCode)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", mapped.Code)
	}
}
