package db

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/f0rbit/timeline/apierr"
)

// FilterRepo is the relational store for ProfileFilter rows (§4.6).
type FilterRepo struct {
	db *sql.DB
}

func NewFilterRepo(db *sql.DB) *FilterRepo { return &FilterRepo{db: db} }

func ValidFilterKey(k string) bool {
	switch FilterKey(k) {
	case FilterKeyRepo, FilterKeySubreddit, FilterKeyKeyword:
		return true
	}
	return false
}

func ValidFilterType(t string) bool {
	switch FilterType(t) {
	case FilterInclude, FilterExclude:
		return true
	}
	return false
}

func (r *FilterRepo) Create(ctx context.Context, profileID, accountID string, filterType FilterType, filterKey FilterKey, value string) (ProfileFilter, error) {
	f := ProfileFilter{
		ID:          uuid.NewString(),
		ProfileID:   profileID,
		AccountID:   accountID,
		FilterType:  filterType,
		FilterKey:   filterKey,
		FilterValue: value,
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profile_filters (id, profile_id, account_id, filter_type, filter_key, filter_value)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.ProfileID, f.AccountID, f.FilterType, f.FilterKey, f.FilterValue,
	)
	if err != nil {
		return ProfileFilter{}, err
	}
	return f, nil
}

func (r *FilterRepo) Get(ctx context.Context, id string) (ProfileFilter, error) {
	var f ProfileFilter
	err := r.db.QueryRowContext(ctx,
		`SELECT id, profile_id, account_id, filter_type, filter_key, filter_value FROM profile_filters WHERE id = $1`, id,
	).Scan(&f.ID, &f.ProfileID, &f.AccountID, &f.FilterType, &f.FilterKey, &f.FilterValue)
	if errors.Is(err, sql.ErrNoRows) {
		return ProfileFilter{}, ErrNotFound
	}
	return f, err
}

func (r *FilterRepo) ListByProfile(ctx context.Context, profileID string) ([]ProfileFilter, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, profile_id, account_id, filter_type, filter_key, filter_value
		 FROM profile_filters WHERE profile_id = $1 ORDER BY account_id, filter_key, filter_type`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProfileFilter
	for rows.Next() {
		var f ProfileFilter
		if err := rows.Scan(&f.ID, &f.ProfileID, &f.AccountID, &f.FilterType, &f.FilterKey, &f.FilterValue); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *FilterRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM profile_filters WHERE id = $1`, id)
	return err
}

// AssertFilterTypeAndKey returns apierr.InvalidEnum if either value is
// outside its enumeration, per the §6 400 behavior for filter creation.
func AssertFilterTypeAndKey(filterType, filterKey string) error {
	if !ValidFilterType(filterType) {
		return apierr.InvalidEnum("filter_type must be one of: include, exclude")
	}
	if !ValidFilterKey(filterKey) {
		return apierr.InvalidEnum("filter_key must be one of: repo, subreddit, keyword")
	}
	return nil
}
