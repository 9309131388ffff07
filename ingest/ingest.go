package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/corpus"
	"github.com/f0rbit/timeline/crypto"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/gate"
	"github.com/f0rbit/timeline/provider"
)

// Status discriminates the outcome of IngestAccount.
type Status string

const (
	StatusIngested Status = "ingested"
	StatusSkipped  Status = "skipped" // gate rejected the fetch
)

// Result is the structured outcome of one account's ingestion (§4.3:
// "a structured result listing written versions and per-shard stats").
type Result struct {
	Status Status
	Written
}

// Ingester runs the per-account pipeline: decrypt token, gate check,
// provider fetch, merge-and-put each shard, record gate state.
type Ingester struct {
	Box       *crypto.Box
	Gate      *gate.Gate
	Backend   corpus.Backend
	Providers map[db.Platform]provider.Provider

	locks sync.Map // accountID -> *sync.Mutex, enforces §5's per-account serialization
}

func NewIngester(box *crypto.Box, g *gate.Gate, backend corpus.Backend, providers map[db.Platform]provider.Provider) *Ingester {
	return &Ingester{Box: box, Gate: g, Backend: backend, Providers: providers}
}

func (ing *Ingester) lockFor(accountID string) *sync.Mutex {
	mu, _ := ing.locks.LoadOrStore(accountID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// IngestAccount runs §4.3's pipeline for one account. A gate rejection
// yields Result{Status: StatusSkipped} with a nil error, not a failure.
func (ing *Ingester) IngestAccount(ctx context.Context, account db.Account) (Result, error) {
	mu := ing.lockFor(account.ID)
	mu.Lock()
	defer mu.Unlock()

	token, err := ing.Box.DecryptString(account.AccessTokenEncrypted)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: decrypt token: %w", err)
	}

	allowed, err := ing.Gate.ShouldFetch(ctx, account.ID)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: gate check: %w", err)
	}
	if !allowed {
		return Result{Status: StatusSkipped}, nil
	}

	p, ok := ing.Providers[account.Platform]
	if !ok {
		return Result{}, provider.UnknownPlatform(string(account.Platform))
	}

	fetched, err := p.Fetch(ctx, token)
	if err != nil {
		ing.recordFailure(ctx, account.ID, err)
		return Result{}, err
	}

	written, err := ing.writeShards(ctx, account, fetched)
	if err != nil {
		return Result{}, err
	}

	if err := ing.Gate.RecordSuccess(ctx, account.ID, fetched.RateLimit); err != nil {
		return Result{}, fmt.Errorf("ingest: record success: %w", err)
	}

	return Result{Status: StatusIngested, Written: written}, nil
}

// recordFailure classifies a provider error into the gate's transition
// table (§4.2): rate_limited carries its own retry_after, every other
// kind (auth_expired, api_error, network_error) is a plain failure.
func (ing *Ingester) recordFailure(ctx context.Context, accountID string, err error) {
	var perr *provider.Error
	if pe, ok := err.(*provider.Error); ok {
		perr = pe
	}
	if perr != nil && perr.Kind == provider.KindRateLimited {
		_ = ing.Gate.RecordRateLimited(ctx, accountID, perr.RetryAfter)
		return
	}
	_ = ing.Gate.RecordFailure(ctx, accountID)
}

func (ing *Ingester) writeShards(ctx context.Context, account db.Account, result provider.Result) (Written, error) {
	switch account.Platform {
	case db.PlatformGitHub:
		if result.GitHub == nil {
			return Written{}, apierr.Internal(fmt.Errorf("ingest: github fetch returned no result"))
		}
		return writeGitHub(ctx, ing.Backend, account.ID, *result.GitHub)
	case db.PlatformReddit:
		if result.Reddit == nil {
			return Written{}, apierr.Internal(fmt.Errorf("ingest: reddit fetch returned no result"))
		}
		return writeReddit(ctx, ing.Backend, account.ID, *result.Reddit)
	case db.PlatformTwitter:
		if result.Twitter == nil {
			return Written{}, apierr.Internal(fmt.Errorf("ingest: twitter fetch returned no result"))
		}
		return writeTwitter(ctx, ing.Backend, account.ID, *result.Twitter)
	case db.PlatformBluesky:
		if result.Bluesky == nil {
			return Written{}, apierr.Internal(fmt.Errorf("ingest: bluesky fetch returned no result"))
		}
		return writeRaw(ctx, ing.Backend, "bluesky", account.ID, *result.Bluesky)
	case db.PlatformYouTube:
		if result.YouTube == nil {
			return Written{}, apierr.Internal(fmt.Errorf("ingest: youtube fetch returned no result"))
		}
		return writeRaw(ctx, ing.Backend, "youtube", account.ID, *result.YouTube)
	case db.PlatformDevpad:
		if result.Devpad == nil {
			return Written{}, apierr.Internal(fmt.Errorf("ingest: devpad fetch returned no result"))
		}
		return writeRaw(ctx, ing.Backend, "devpad", account.ID, *result.Devpad)
	default:
		return Written{}, provider.UnknownPlatform(string(account.Platform))
	}
}
