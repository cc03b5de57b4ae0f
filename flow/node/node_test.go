package node

import (
	"context"
	"testing"
)

func TestParamsFromContextRoundTrip(t *testing.T) {
	if got := ParamsFromContext(context.Background()); got != nil {
		t.Fatalf("expected nil for bare context, got %v", got)
	}

	params := map[string]interface{}{"url": "https://example.com"}
	ctx := WithParams(context.Background(), params)
	got := ParamsFromContext(ctx)
	if got["url"] != "https://example.com" {
		t.Fatalf("got %v", got)
	}
}

func TestPolicyProviderZeroValueMeansUseDefault(t *testing.T) {
	var p Policy
	if p.MaxRetries != 0 || p.MaxVisits != 0 || p.TimeoutSeconds != 0 {
		t.Fatalf("expected zero Policy, got %+v", p)
	}
}
