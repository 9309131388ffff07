package middleware

import (
	"context"
	"errors"

	"github.com/f0rbit/timeline/apierr"
	"github.com/f0rbit/timeline/db"
)

// RequireProfileOwner loads a profile and confirms it belongs to
// userID, translating a missing row or wrong owner into the matching
// §7 error.
func RequireProfileOwner(ctx context.Context, profiles *db.ProfileRepo, userID, profileID string) (db.Profile, error) {
	profile, err := profiles.Get(ctx, profileID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Profile{}, apierr.NotFound("profile")
		}
		return db.Profile{}, apierr.Internal(err)
	}
	if profile.UserID != userID {
		return db.Profile{}, apierr.WrongOwner("profile does not belong to the authenticated user")
	}
	return profile, nil
}

// RequireAccountOwner loads an account and confirms its profile belongs
// to userID.
func RequireAccountOwner(ctx context.Context, accounts *db.AccountRepo, userID, accountID string) (db.Account, error) {
	account, err := accounts.Get(ctx, accountID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.Account{}, apierr.NotFound("account")
		}
		return db.Account{}, apierr.Internal(err)
	}
	owner, err := accounts.OwnerUserID(ctx, accountID)
	if err != nil {
		return db.Account{}, apierr.Internal(err)
	}
	if owner != userID {
		return db.Account{}, apierr.WrongOwner("account does not belong to the authenticated user")
	}
	return account, nil
}

// RequireFilterOwner loads a profile filter and confirms its profile
// belongs to userID.
func RequireFilterOwner(ctx context.Context, filters *db.FilterRepo, profiles *db.ProfileRepo, userID, filterID string) (db.ProfileFilter, error) {
	filter, err := filters.Get(ctx, filterID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return db.ProfileFilter{}, apierr.NotFound("filter")
		}
		return db.ProfileFilter{}, apierr.Internal(err)
	}
	if _, err := RequireProfileOwner(ctx, profiles, userID, filter.ProfileID); err != nil {
		return db.ProfileFilter{}, err
	}
	return filter, nil
}
