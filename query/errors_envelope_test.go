package query

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-hostbridge/core"
)

func TestListUsageMessage_ValidateReturnsRichError(t *testing.T) {
	err := (ListUsageMessage{Filter: core.UsageFilter{Page: -1}}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryBadInput {
		t.Fatalf("expected bad input category, got %q", rich.Category)
	}
	if rich.TextCode != core.BridgeErrorBadInput || rich.Code != http.StatusBadRequest {
		t.Fatalf("unexpected envelope: %v", rich)
	}
}

func TestGetProfileQuery_NilReaderReturnsRichError(t *testing.T) {
	var q *GetProfileQuery
	_, err := q.Query(context.Background(), GetProfileMessage{})
	if err == nil {
		t.Fatalf("expected query dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
}
