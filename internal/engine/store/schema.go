package store

import "database/sql"

// Migrate applies the engine schema. Idempotent; meant for local and test
// environments, production uses the same DDL under migration tooling.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rounds (
			id          TEXT PRIMARY KEY,
			season_id   TEXT NOT NULL,
			start_time  TIMESTAMPTZ NOT NULL,
			end_time    TIMESTAMPTZ NOT NULL,
			status      TEXT NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS match_pools (
			round_id      TEXT NOT NULL REFERENCES rounds(id),
			idx           INT NOT NULL,
			home_cents    BIGINT NOT NULL DEFAULT 0,
			away_cents    BIGINT NOT NULL DEFAULT 0,
			draw_cents    BIGINT NOT NULL DEFAULT 0,
			final_outcome TEXT NOT NULL DEFAULT 'NONE',
			PRIMARY KEY (round_id, idx)
		)`,
		`CREATE TABLE IF NOT EXISTS locked_odds (
			round_id TEXT NOT NULL,
			idx      INT NOT NULL,
			outcome  TEXT NOT NULL,
			odds     NUMERIC(18,6) NOT NULL,
			PRIMARY KEY (round_id, idx, outcome)
		)`,
		`CREATE TABLE IF NOT EXISTS bets (
			id                     TEXT PRIMARY KEY,
			bettor                 TEXT NOT NULL,
			round_id               TEXT NOT NULL REFERENCES rounds(id),
			stake_cents            BIGINT NOT NULL,
			locked_multiplier      NUMERIC(24,6) NOT NULL,
			potential_payout_cents BIGINT NOT NULL,
			status                 TEXT NOT NULL,
			created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_bettor ON bets(bettor)`,
		`CREATE INDEX IF NOT EXISTS idx_bets_round ON bets(round_id, status)`,
		`CREATE TABLE IF NOT EXISTS bet_legs (
			bet_id      TEXT NOT NULL REFERENCES bets(id),
			match_idx   INT NOT NULL,
			outcome     TEXT NOT NULL,
			share_cents BIGINT NOT NULL,
			PRIMARY KEY (bet_id, match_idx)
		)`,
		`CREATE TABLE IF NOT EXISTS round_pools (
			round_id            TEXT PRIMARY KEY REFERENCES rounds(id),
			total_locked_cents  BIGINT NOT NULL DEFAULT 0,
			total_claimed_cents BIGINT NOT NULL DEFAULT 0,
			sweep_deadline      TIMESTAMPTZ NOT NULL,
			swept               BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS randomness_requests (
			id         TEXT PRIMARY KEY,
			round_id   TEXT NOT NULL REFERENCES rounds(id),
			status     TEXT NOT NULL,
			value      TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS reserve (
			id              INT PRIMARY KEY CHECK (id = 1),
			available_cents BIGINT NOT NULL DEFAULT 0,
			locked_cents    BIGINT NOT NULL DEFAULT 0
		)`,
		`INSERT INTO reserve (id, available_cents, locked_cents)
			VALUES (1, 0, 0) ON CONFLICT (id) DO NOTHING`,
		`CREATE TABLE IF NOT EXISTS season_pools (
			season_id     TEXT PRIMARY KEY,
			balance_cents BIGINT NOT NULL DEFAULT 0
		)`,
	}

	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}
