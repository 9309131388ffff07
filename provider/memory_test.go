package provider_test

import (
	"context"
	"testing"

	"github.com/f0rbit/timeline/provider"
)

func TestMemoryProviderReturnsSeededResult(t *testing.T) {
	p := provider.NewMemoryProvider(provider.Twitter)
	p.SetTweets(provider.TwitterMeta{Username: "alice"}, []provider.Tweet{{ID: "1", Text: "hi"}})

	result, err := p.Fetch(context.Background(), "token")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.Twitter == nil || len(result.Twitter.Tweets) != 1 {
		t.Fatalf("expected one seeded tweet, got %+v", result.Twitter)
	}
	if got := p.GetCallCount(); got != 1 {
		t.Fatalf("GetCallCount() = %d, want 1", got)
	}
}

func TestMemoryProviderSimulatesRateLimit(t *testing.T) {
	p := provider.NewMemoryProvider(provider.GitHub)
	p.SetSimulateRateLimit(120)

	_, err := p.Fetch(context.Background(), "token")
	var provErr *provider.Error
	if !asProviderError(err, &provErr) {
		t.Fatalf("expected *provider.Error, got %T", err)
	}
	if provErr.Kind != provider.KindRateLimited {
		t.Fatalf("Kind = %v, want rate_limited", provErr.Kind)
	}
	if provErr.RetryAfter != 120 {
		t.Fatalf("RetryAfter = %d, want 120", provErr.RetryAfter)
	}
}

func TestMemoryProviderSimulatesAuthExpired(t *testing.T) {
	p := provider.NewMemoryProvider(provider.Reddit)
	p.SetSimulateAuthExpired()

	_, err := p.Fetch(context.Background(), "token")
	var provErr *provider.Error
	if !asProviderError(err, &provErr) {
		t.Fatalf("expected *provider.Error, got %T", err)
	}
	if provErr.Kind != provider.KindAuthExpired {
		t.Fatalf("Kind = %v, want auth_expired", provErr.Kind)
	}
}

func TestMemoryProviderResetClearsState(t *testing.T) {
	p := provider.NewMemoryProvider(provider.GitHub)
	p.SetSimulateRateLimit(5)
	_, _ = p.Fetch(context.Background(), "token")

	p.Reset()
	if got := p.GetCallCount(); got != 0 {
		t.Fatalf("GetCallCount() after Reset = %d, want 0", got)
	}
	if _, err := p.Fetch(context.Background(), "token"); err != nil {
		t.Fatalf("Fetch after Reset should succeed, got %v", err)
	}
}

func asProviderError(err error, target **provider.Error) bool {
	pe, ok := err.(*provider.Error)
	if !ok {
		return false
	}
	*target = pe
	return true
}
