// Package sweep implements the §4.8 scheduled sweep: a periodic trigger
// that pages through every active account across all users, ingests
// each one, and reassembles each user's timeline once after all of
// their accounts have been processed for that pass.
package sweep

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/f0rbit/timeline/db"
	"github.com/f0rbit/timeline/ingest"
	"github.com/f0rbit/timeline/timeline"
)

// pageSize bounds how many accounts ListAllActivePaged fetches per page.
const pageSize = 200

// Sweeper pages through active accounts and ingests each, reassembling
// every affected user's timeline once per pass.
type Sweeper struct {
	Accounts  *db.AccountRepo
	Ingester  *ingest.Ingester
	Assembler *timeline.Assembler
	Log       zerolog.Logger
}

func New(accounts *db.AccountRepo, ingester *ingest.Ingester, assembler *timeline.Assembler, log zerolog.Logger) *Sweeper {
	return &Sweeper{Accounts: accounts, Ingester: ingester, Assembler: assembler, Log: log.With().Str("component", "sweep").Logger()}
}

// Result summarizes one completed sweep pass.
type Result struct {
	AccountsProcessed int
	AccountsFailed    int
	UsersReassembled  int
}

// Run performs one full sweep pass: page through every active account,
// ingest each (logging and continuing past individual failures), and
// reassemble each touched user's timeline once at the end of the pass.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	changedUsers := make(map[string]struct{})
	var result Result

	afterID := ""
	for {
		page, err := s.Accounts.ListAllActivePaged(ctx, afterID, pageSize)
		if err != nil {
			return result, err
		}
		if len(page) == 0 {
			break
		}

		for _, account := range page {
			userID, err := s.Accounts.OwnerUserID(ctx, account.ID)
			if err != nil {
				s.Log.Error().Err(err).Str("account_id", account.ID).Msg("sweep: resolve account owner failed")
				result.AccountsFailed++
				continue
			}

			ingestResult, err := s.Ingester.IngestAccount(ctx, account)
			if err != nil {
				s.Log.Error().Err(err).Str("account_id", account.ID).Str("platform", string(account.Platform)).Msg("sweep: ingest failed")
				result.AccountsFailed++
				continue
			}
			result.AccountsProcessed++
			if ingestResult.Status == ingest.StatusIngested {
				changedUsers[userID] = struct{}{}
			}
		}

		afterID = page[len(page)-1].ID
	}

	for userID := range changedUsers {
		accounts, err := s.Accounts.ListActiveByUser(ctx, userID)
		if err != nil {
			s.Log.Error().Err(err).Str("user_id", userID).Msg("sweep: list accounts for reassembly failed")
			continue
		}
		if _, err := s.Assembler.AssembleForUser(ctx, userID, accounts, timeline.Window{}); err != nil {
			s.Log.Error().Err(err).Str("user_id", userID).Msg("sweep: reassemble timeline failed")
			continue
		}
		result.UsersReassembled++
	}

	return result, nil
}

// Scheduler drives a Sweeper on a cron schedule using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
}

// NewScheduler builds a Scheduler that runs the sweeper on the given
// cron expression (standard 5-field syntax, e.g. "*/15 * * * *").
func NewScheduler(sweeper *Sweeper, spec string) (*Scheduler, error) {
	c := cron.New()
	sched := &Scheduler{cron: c, sweeper: sweeper}
	_, err := c.AddFunc(spec, sched.runOnce)
	if err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	result, err := s.sweeper.Run(ctx)
	if err != nil {
		s.sweeper.Log.Error().Err(err).Msg("sweep: pass failed")
		return
	}
	s.sweeper.Log.Info().
		Int("accounts_processed", result.AccountsProcessed).
		Int("accounts_failed", result.AccountsFailed).
		Int("users_reassembled", result.UsersReassembled).
		Msg("sweep: pass complete")
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler and waits for any in-flight pass to finish.
func (s *Scheduler) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}
