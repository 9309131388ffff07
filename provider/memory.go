package provider

import (
	"context"
	"sync"
)

// MemoryProvider is the test double named in §9: a fake provider exposing
// setter methods used by test scenarios to script a platform's fetch result
// or failure mode, plus a call counter. It can stand in for any platform by
// construction.
type MemoryProvider struct {
	mu sync.Mutex

	platform Platform
	result   Result

	simulateRateLimit   bool
	retryAfter          int
	simulateAuthExpired bool
	simulateNetworkErr  bool

	callCount int
}

// NewMemoryProvider constructs a test double for the given platform,
// returning an empty payload for that platform until seeded via the
// setters below.
func NewMemoryProvider(platform Platform) *MemoryProvider {
	p := &MemoryProvider{platform: platform}
	switch platform {
	case GitHub:
		p.result.GitHub = &GitHubResult{}
	case Reddit:
		p.result.Reddit = &RedditResult{}
	case Twitter:
		p.result.Twitter = &TwitterResult{}
	case Bluesky:
		p.result.Bluesky = &BlueskyResult{}
	case YouTube:
		p.result.YouTube = &YouTubeResult{}
	case Devpad:
		p.result.Devpad = &DevpadResult{}
	}
	return p
}

func (p *MemoryProvider) Platform() Platform { return p.platform }

func (p *MemoryProvider) Fetch(_ context.Context, _ string) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callCount++

	if p.simulateRateLimit {
		return Result{}, RateLimited(p.retryAfter)
	}
	if p.simulateAuthExpired {
		return Result{}, AuthExpired()
	}
	if p.simulateNetworkErr {
		return Result{}, NetworkError(errNetworkSimulated)
	}
	return p.result, nil
}

// SetGitHub seeds the result returned for platform GitHub.
func (p *MemoryProvider) SetGitHub(meta GitHubMeta, repos map[string]GitHubRepoActivity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = Result{GitHub: &GitHubResult{Meta: meta, Repos: repos}}
}

// SetTweets seeds the result returned for platform Twitter.
func (p *MemoryProvider) SetTweets(meta TwitterMeta, tweets []Tweet) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = Result{Twitter: &TwitterResult{Meta: meta, Tweets: tweets}}
}

// SetRedditPosts seeds posts+comments for platform Reddit.
func (p *MemoryProvider) SetRedditPosts(meta RedditMeta, posts []RedditPost, comments []RedditComment) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.result = Result{Reddit: &RedditResult{Meta: meta, Posts: posts, Comments: comments}}
}

// SetSimulateRateLimit makes every subsequent Fetch return a rate_limited
// ProviderError with the given retry-after.
func (p *MemoryProvider) SetSimulateRateLimit(retryAfterSeconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.simulateRateLimit = true
	p.retryAfter = retryAfterSeconds
}

// SetSimulateAuthExpired makes every subsequent Fetch return auth_expired.
func (p *MemoryProvider) SetSimulateAuthExpired() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.simulateAuthExpired = true
}

// SetSimulateNetworkError makes every subsequent Fetch return network_error.
func (p *MemoryProvider) SetSimulateNetworkError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.simulateNetworkErr = true
}

// Reset clears every simulated failure mode and the call counter.
func (p *MemoryProvider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.simulateRateLimit = false
	p.simulateAuthExpired = false
	p.simulateNetworkErr = false
	p.callCount = 0
}

// GetCallCount returns how many times Fetch has been called since
// construction or the last Reset.
func (p *MemoryProvider) GetCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.callCount
}

var errNetworkSimulated = &simulatedNetworkError{}

type simulatedNetworkError struct{}

func (*simulatedNetworkError) Error() string { return "simulated network failure" }
