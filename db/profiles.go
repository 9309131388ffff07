package db

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/f0rbit/timeline/apierr"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("db: not found")

var slugPattern = regexp.MustCompile(`^[a-z0-9-]{3,}$`)

// ValidSlug reports whether s satisfies the profile slug grammar
// (lowercase alphanumeric+hyphen, 3+ chars, §3 Profile).
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// ProfileRepo is the relational store for Profile rows.
type ProfileRepo struct {
	db *sql.DB
}

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

func (r *ProfileRepo) Create(ctx context.Context, userID, slug, name string, description, theme *string) (Profile, error) {
	if !ValidSlug(slug) {
		return Profile{}, apierr.InvalidFormat("slug must be lowercase alphanumeric or hyphen, at least 3 characters")
	}
	p := Profile{
		ID:          uuid.NewString(),
		UserID:      userID,
		Slug:        slug,
		Name:        name,
		Description: description,
		Theme:       theme,
		CreatedAt:   time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO profiles (id, user_id, slug, name, description, theme, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.UserID, p.Slug, p.Name, p.Description, p.Theme, p.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return Profile{}, apierr.SlugTaken(slug)
		}
		return Profile{}, err
	}
	return p, nil
}

func (r *ProfileRepo) Get(ctx context.Context, id string) (Profile, error) {
	return r.scanOne(ctx, `SELECT id, user_id, slug, name, description, theme, created_at FROM profiles WHERE id = $1`, id)
}

func (r *ProfileRepo) GetBySlug(ctx context.Context, userID, slug string) (Profile, error) {
	return r.scanOne(ctx, `SELECT id, user_id, slug, name, description, theme, created_at
		FROM profiles WHERE user_id = $1 AND slug = $2`, userID, slug)
}

func (r *ProfileRepo) scanOne(ctx context.Context, query string, args ...any) (Profile, error) {
	var p Profile
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.UserID, &p.Slug, &p.Name, &p.Description, &p.Theme, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Profile{}, ErrNotFound
	}
	return p, err
}

func (r *ProfileRepo) ListByUser(ctx context.Context, userID string) ([]Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, slug, name, description, theme, created_at
		 FROM profiles WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Profile
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.UserID, &p.Slug, &p.Name, &p.Description, &p.Theme, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProfileRepo) Update(ctx context.Context, id string, name *string, description, theme *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			theme = COALESCE($4, theme)
		 WHERE id = $1`,
		id, name, description, theme,
	)
	return err
}

func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	return err
}
