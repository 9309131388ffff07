// Package refresh implements the §4.7 refresh orchestrator: a small
// state machine that dispatches per-account ingestion (cooperatively in
// the background for some platforms, inline for others) and recomputes
// a user's timeline once its sources have changed.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/ingest"
	"github.com/f0rbit/timeline/timeline"
)

// ErrInactive is returned when a refresh targets a deactivated account.
var ErrInactive = errors.New("refresh: account is inactive")

// cooperativePlatforms enqueue a background task instead of running
// inline (§4.7: "GitHub, Reddit").
var cooperativePlatforms = map[db.Platform]bool{
	db.PlatformGitHub: true,
	db.PlatformReddit: true,
}

func isCooperative(p db.Platform) bool { return cooperativePlatforms[p] }

// Hook is the host-provided "run-until-done" background task primitive
// (§9: "in tests this is an awaited call; in production it is the
// host's deferred-execution primitive"). A nil Hook runs synchronously.
type Hook func(ctx context.Context, task func(context.Context))

// Orchestrator ties the ingester and timeline assembler together behind
// the §4.7 state machine.
type Orchestrator struct {
	Accounts  *db.AccountRepo
	Ingester  *ingest.Ingester
	Assembler *timeline.Assembler
	Hook      Hook
}

func New(accounts *db.AccountRepo, ingester *ingest.Ingester, assembler *timeline.Assembler, hook Hook) *Orchestrator {
	return &Orchestrator{Accounts: accounts, Ingester: ingester, Assembler: assembler, Hook: hook}
}

func (o *Orchestrator) runBackground(ctx context.Context, task func(context.Context)) {
	if o.Hook != nil {
		o.Hook(ctx, task)
		return
	}
	task(ctx)
}

// SingleStatus discriminates RefreshSingleAccount's outcome.
type SingleStatus string

const (
	SingleProcessing SingleStatus = "processing"
	SingleRefreshed  SingleStatus = "refreshed"
	SingleSkipped    SingleStatus = "skipped"
)

// SingleResult is the §4.7 `refreshSingleAccount` return shape.
type SingleResult struct {
	Status   SingleStatus
	Platform string
}

// RefreshSingleAccount implements §4.7's single-account dispatch.
func (o *Orchestrator) RefreshSingleAccount(ctx context.Context, userID, accountID string) (SingleResult, error) {
	account, err := o.Accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return SingleResult{}, apierr.NotFound("account")
		}
		return SingleResult{}, fmt.Errorf("refresh: load account: %w", err)
	}
	if !account.IsActive {
		return SingleResult{}, ErrInactive
	}

	if isCooperative(account.Platform) {
		o.runBackground(ctx, func(bgCtx context.Context) {
			o.ingestAndReassemble(bgCtx, userID, account)
		})
		return SingleResult{Status: SingleProcessing, Platform: string(account.Platform)}, nil
	}

	result, err := o.Ingester.IngestAccount(ctx, account)
	if err != nil {
		return SingleResult{}, fmt.Errorf("refresh: ingest account: %w", err)
	}
	if result.Status != ingest.StatusIngested {
		return SingleResult{Status: SingleSkipped}, nil
	}
	if err := o.reassemble(ctx, userID); err != nil {
		return SingleResult{}, err
	}
	return SingleResult{Status: SingleRefreshed}, nil
}

// ingestAndReassemble is the background-task body for a cooperative
// platform: an ingest failure or skip ends the task without reassembly;
// the error is neither logged nor surfaced — the original request has
// already returned "processing".
func (o *Orchestrator) ingestAndReassemble(ctx context.Context, userID string, account db.Account) {
	result, err := o.Ingester.IngestAccount(ctx, account)
	if err != nil || result.Status != ingest.StatusIngested {
		return
	}
	_ = o.reassemble(ctx, userID)
}

func (o *Orchestrator) reassemble(ctx context.Context, userID string) error {
	accounts, err := o.Accounts.ListActiveByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("refresh: list accounts: %w", err)
	}
	if _, err := o.Assembler.AssembleForUser(ctx, userID, accounts, timeline.Window{}); err != nil {
		return fmt.Errorf("refresh: reassemble timeline: %w", err)
	}
	return nil
}

// AllStatus discriminates RefreshAllAccounts' outcome.
type AllStatus string

const (
	AllProcessing AllStatus = "processing"
	AllCompleted  AllStatus = "completed"
)

// AllResult is the §4.7 `refreshAllAccounts` return shape.
type AllResult struct {
	Status            AllStatus
	Succeeded         int
	Failed            int
	Total             int
	CooperativeQueued map[string]int // platform -> count queued as background tasks
}

// RefreshAllAccounts implements §4.7's multi-account dispatch: inline
// platforms run sequentially and are counted; cooperative platforms are
// queued as grouped background tasks. After all inline work completes the
// timeline is reassembled once, covering every account, and only if at
// least one inline account ingested new data.
func (o *Orchestrator) RefreshAllAccounts(ctx context.Context, userID string) (AllResult, error) {
	accounts, err := o.Accounts.ListActiveByUser(ctx, userID)
	if err != nil {
		return AllResult{}, fmt.Errorf("refresh: list accounts: %w", err)
	}

	result := AllResult{Total: len(accounts), CooperativeQueued: make(map[string]int)}

	var inline []db.Account
	for _, acct := range accounts {
		if isCooperative(acct.Platform) {
			result.CooperativeQueued[string(acct.Platform)]++
			continue
		}
		inline = append(inline, acct)
	}

	anyInlineChanged := false
	for _, acct := range inline {
		ingestResult, err := o.Ingester.IngestAccount(ctx, acct)
		if err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
		if ingestResult.Status == ingest.StatusIngested {
			anyInlineChanged = true
		}
	}

	if anyInlineChanged {
		if err := o.reassemble(ctx, userID); err != nil {
			return result, err
		}
	}

	if len(result.CooperativeQueued) > 0 {
		var wg sync.WaitGroup
		for _, acct := range accounts {
			if !isCooperative(acct.Platform) {
				continue
			}
			wg.Add(1)
			acct := acct
			o.runBackground(ctx, func(bgCtx context.Context) {
				defer wg.Done()
				o.ingestAndReassemble(bgCtx, userID, acct)
			})
		}
		if o.Hook == nil {
			wg.Wait()
		}
		result.Status = AllProcessing
		return result, nil
	}

	result.Status = AllCompleted
	return result, nil
}
