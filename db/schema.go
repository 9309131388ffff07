package db

// Schema is the relational DDL this package assumes exists. Migration
// tooling itself is out of scope (§1 Non-goals); this is the shape the
// hand-written queries below are written against.
const Schema = `
CREATE TABLE IF NOT EXISTS profiles (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	slug        TEXT NOT NULL,
	name        TEXT NOT NULL,
	description TEXT,
	theme       TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (user_id, slug)
);

CREATE TABLE IF NOT EXISTS accounts (
	id                       TEXT PRIMARY KEY,
	profile_id               TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	platform                 TEXT NOT NULL,
	platform_user_id         TEXT,
	platform_username        TEXT,
	access_token_encrypted   TEXT NOT NULL,
	refresh_token_encrypted  TEXT,
	token_expires_at         TIMESTAMPTZ,
	is_active                BOOLEAN NOT NULL DEFAULT true,
	last_fetched_at          TIMESTAMPTZ,
	created_at               TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (profile_id, platform, platform_user_id)
);

CREATE TABLE IF NOT EXISTS api_keys (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	key_hash      TEXT NOT NULL UNIQUE,
	name          TEXT NOT NULL,
	last_used_at  TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS rate_limits (
	account_id            TEXT PRIMARY KEY REFERENCES accounts (id) ON DELETE CASCADE,
	remaining             INTEGER,
	limit_total           INTEGER,
	reset_at              TIMESTAMPTZ,
	consecutive_failures  INTEGER NOT NULL DEFAULT 0,
	last_failure_at       TIMESTAMPTZ,
	circuit_open_until    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS profile_filters (
	id           TEXT PRIMARY KEY,
	profile_id   TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	account_id   TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	filter_type  TEXT NOT NULL,
	filter_key   TEXT NOT NULL,
	filter_value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS platform_credentials (
	id                        TEXT PRIMARY KEY,
	profile_id                TEXT NOT NULL REFERENCES profiles (id) ON DELETE CASCADE,
	platform                  TEXT NOT NULL,
	client_id                 TEXT NOT NULL,
	client_secret_encrypted   TEXT NOT NULL,
	redirect_uri              TEXT,
	reddit_username           TEXT,
	is_verified               BOOLEAN NOT NULL DEFAULT false,
	metadata                  JSONB,
	created_at                TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (profile_id, platform)
);

CREATE TABLE IF NOT EXISTS account_settings (
	account_id TEXT NOT NULL REFERENCES accounts (id) ON DELETE CASCADE,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	PRIMARY KEY (account_id, key)
);
`
