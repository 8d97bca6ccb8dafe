package query

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-hostbridge/core"
)

func TestGetProfileQuery_DelegatesToReader(t *testing.T) {
	expected := core.UserProfile{UserID: "usr_1", Username: "kaye", Credits: 42}
	called := false

	q := NewGetProfileQuery(stubReader{
		profileFn: func(context.Context) (core.UserProfile, error) {
			called = true
			return expected, nil
		},
	})

	profile, err := q.Query(context.Background(), GetProfileMessage{})
	if err != nil {
		t.Fatalf("query profile: %v", err)
	}
	if !called {
		t.Fatalf("expected reader invocation")
	}
	if profile.UserID != expected.UserID || profile.Credits != expected.Credits {
		t.Fatalf("unexpected profile: %#v", profile)
	}
}

func TestGetBalanceQuery_DelegatesToReader(t *testing.T) {
	expected := core.CreditBalance{UserID: "usr_1", Credits: 95}

	q := NewGetBalanceQuery(stubReader{
		balanceFn: func(context.Context) (core.CreditBalance, error) {
			return expected, nil
		},
	})

	balance, err := q.Query(context.Background(), GetBalanceMessage{})
	if err != nil {
		t.Fatalf("query balance: %v", err)
	}
	if balance.Credits != expected.Credits {
		t.Fatalf("unexpected balance: %#v", balance)
	}
}

func TestListUsageQuery_DelegatesToReader(t *testing.T) {
	q := NewListUsageQuery(stubReader{
		usageFn: func(_ context.Context, filter core.UsageFilter) (core.UsagePage, error) {
			if filter.AppID != "app_1" || filter.Kind != core.UsageKindDeduction {
				t.Fatalf("unexpected filter: %#v", filter)
			}
			return core.UsagePage{Total: 3, Page: 1, PerPage: 25}, nil
		},
	})

	page, err := q.Query(context.Background(), ListUsageMessage{Filter: core.UsageFilter{
		AppID: "app_1",
		Kind:  core.UsageKindDeduction,
	}})
	if err != nil {
		t.Fatalf("query usage: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("unexpected page: %#v", page)
	}
}

func TestQueries_PropagateReaderErrors(t *testing.T) {
	q := NewGetBalanceQuery(stubReader{
		balanceFn: func(context.Context) (core.CreditBalance, error) {
			return core.CreditBalance{}, fmt.Errorf("host unavailable")
		},
	})
	if _, err := q.Query(context.Background(), GetBalanceMessage{}); err == nil {
		t.Fatalf("expected reader error to pass through")
	}
}

func TestQueryMessages_Validate(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)

	tests := []struct {
		name    string
		msg     interface{ Validate() error }
		wantErr bool
	}{
		{name: "get profile", msg: GetProfileMessage{}, wantErr: false},
		{name: "get balance", msg: GetBalanceMessage{}, wantErr: false},
		{name: "list usage empty filter", msg: ListUsageMessage{}, wantErr: false},
		{
			name:    "list usage negative page",
			msg:     ListUsageMessage{Filter: core.UsageFilter{Page: -1}},
			wantErr: true,
		},
		{
			name:    "list usage negative per page",
			msg:     ListUsageMessage{Filter: core.UsageFilter{PerPage: -1}},
			wantErr: true,
		},
		{
			name:    "list usage inverted range",
			msg:     ListUsageMessage{Filter: core.UsageFilter{From: &from, To: &to}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

type stubReader struct {
	profileFn func(ctx context.Context) (core.UserProfile, error)
	balanceFn func(ctx context.Context) (core.CreditBalance, error)
	usageFn   func(ctx context.Context, filter core.UsageFilter) (core.UsagePage, error)
}

func (s stubReader) Profile(ctx context.Context) (core.UserProfile, error) {
	if s.profileFn == nil {
		return core.UserProfile{}, fmt.Errorf("profile not configured")
	}
	return s.profileFn(ctx)
}

func (s stubReader) Balance(ctx context.Context) (core.CreditBalance, error) {
	if s.balanceFn == nil {
		return core.CreditBalance{}, fmt.Errorf("balance not configured")
	}
	return s.balanceFn(ctx)
}

func (s stubReader) ListUsage(ctx context.Context, filter core.UsageFilter) (core.UsagePage, error) {
	if s.usageFn == nil {
		return core.UsagePage{}, fmt.Errorf("usage not configured")
	}
	return s.usageFn(ctx, filter)
}

var (
	_ ProfileReader = stubReader{}
	_ BalanceReader = stubReader{}
	_ UsageReader   = stubReader{}
)
