package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// migration is one idempotent schema step.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "accounts",
		sql: `
		CREATE TABLE IF NOT EXISTS accounts (
			id UUID PRIMARY KEY,
			username VARCHAR(32) NOT NULL,
			email VARCHAR(255) NOT NULL,
			password_hash TEXT NOT NULL,
			balance BIGINT NOT NULL DEFAULT 0,
			level INT NOT NULL DEFAULT 1 CHECK (level >= 1),
			xp BIGINT NOT NULL DEFAULT 0 CHECK (xp >= 0),
			total_wagered BIGINT NOT NULL DEFAULT 0,
			total_won BIGINT NOT NULL DEFAULT 0,
			games_played BIGINT NOT NULL DEFAULT 0,
			role VARCHAR(16) NOT NULL DEFAULT 'user',
			is_tester BOOLEAN NOT NULL DEFAULT FALSE,
			infinite_funds BOOLEAN NOT NULL DEFAULT FALSE,
			avatar_url TEXT,
			last_daily_bonus DATE,
			banned_until TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT accounts_balance_non_negative CHECK (balance >= 0 OR infinite_funds)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_username ON accounts (LOWER(username));
		CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts (LOWER(email));
		`,
	},
	{
		name: "transactions",
		sql: `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			type VARCHAR(32) NOT NULL,
			amount BIGINT NOT NULL,
			game_type VARCHAR(32),
			description TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_transactions_account_time ON transactions (account_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_transactions_type_time ON transactions (type, created_at DESC);
		`,
	},
	{
		name: "game_history",
		sql: `
		CREATE TABLE IF NOT EXISTS game_history (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			game_type VARCHAR(32) NOT NULL,
			bet_amount BIGINT NOT NULL,
			win_amount BIGINT NOT NULL,
			multiplier DOUBLE PRECISION,
			result JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_game_history_account_time ON game_history (account_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_game_history_game_time ON game_history (game_type, created_at DESC);
		`,
	},
	{
		name: "game_sessions",
		sql: `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			game_type VARCHAR(32) NOT NULL,
			bet_amount BIGINT NOT NULL,
			state JSONB NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_game_sessions_one_active
			ON game_sessions (account_id, game_type) WHERE status = 'active';
		`,
	},
	{
		name: "challenges",
		sql: `
		CREATE TABLE IF NOT EXISTS challenges (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			challenge_type VARCHAR(16) NOT NULL DEFAULT 'daily',
			metric VARCHAR(32) NOT NULL,
			target_value BIGINT NOT NULL CHECK (target_value > 0),
			game_type VARCHAR(32),
			reward_type VARCHAR(16) NOT NULL,
			reward_amount BIGINT NOT NULL CHECK (reward_amount >= 0),
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS challenge_progress (
			challenge_id UUID NOT NULL REFERENCES challenges(id) ON DELETE CASCADE,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			progress BIGINT NOT NULL DEFAULT 0,
			completed_at TIMESTAMPTZ,
			reward_claimed BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (challenge_id, account_id)
		);
		`,
	},
	{
		name: "tournaments",
		sql: `
		CREATE TABLE IF NOT EXISTS tournaments (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			game_type VARCHAR(32) NOT NULL,
			entry_fee BIGINT NOT NULL DEFAULT 0 CHECK (entry_fee >= 0),
			prize_pool BIGINT NOT NULL DEFAULT 0 CHECK (prize_pool >= 0),
			max_participants INT NOT NULL DEFAULT 100 CHECK (max_participants > 0),
			participant_count INT NOT NULL DEFAULT 0,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			finalized BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT tournaments_capacity CHECK (participant_count <= max_participants)
		);
		CREATE TABLE IF NOT EXISTS tournament_participants (
			tournament_id UUID NOT NULL REFERENCES tournaments(id) ON DELETE CASCADE,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			score BIGINT NOT NULL DEFAULT 0,
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (tournament_id, account_id)
		);
		CREATE INDEX IF NOT EXISTS idx_tournament_participants_account ON tournament_participants (account_id);
		`,
	},
	{
		name: "clans",
		sql: `
		CREATE TABLE IF NOT EXISTS clans (
			id UUID PRIMARY KEY,
			name VARCHAR(50) NOT NULL,
			tag VARCHAR(6) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			owner_id UUID NOT NULL REFERENCES accounts(id),
			member_count INT NOT NULL DEFAULT 0,
			max_members INT NOT NULL DEFAULT 50,
			is_public BOOLEAN NOT NULL DEFAULT TRUE,
			total_winnings BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT clans_capacity CHECK (member_count <= max_members)
		);
		CREATE UNIQUE INDEX IF NOT EXISTS idx_clans_name ON clans (LOWER(name));
		CREATE UNIQUE INDEX IF NOT EXISTS idx_clans_tag ON clans (LOWER(tag));
		CREATE TABLE IF NOT EXISTS clan_members (
			clan_id UUID NOT NULL REFERENCES clans(id) ON DELETE CASCADE,
			account_id UUID NOT NULL UNIQUE REFERENCES accounts(id) ON DELETE CASCADE,
			role VARCHAR(16) NOT NULL DEFAULT 'member',
			joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (clan_id, account_id)
		);
		`,
	},
	{
		name: "stocks",
		sql: `
		CREATE TABLE IF NOT EXISTS stocks (
			id UUID PRIMARY KEY,
			symbol VARCHAR(10) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL,
			current_price NUMERIC(18,4) NOT NULL CHECK (current_price > 0),
			previous_price NUMERIC(18,4) NOT NULL,
			change_percent NUMERIC(9,4) NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_stocks (
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			stock_id UUID NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
			quantity BIGINT NOT NULL CHECK (quantity > 0),
			avg_buy_price NUMERIC(18,4) NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (account_id, stock_id)
		);
		CREATE TABLE IF NOT EXISTS stock_transactions (
			id UUID PRIMARY KEY,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			stock_id UUID NOT NULL REFERENCES stocks(id) ON DELETE CASCADE,
			type VARCHAR(8) NOT NULL,
			quantity BIGINT NOT NULL,
			price_per_share NUMERIC(18,4) NOT NULL,
			total_amount BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		`,
	},
	{
		name: "leaderboards",
		sql: `
		CREATE TABLE IF NOT EXISTS leaderboards (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			leaderboard_type VARCHAR(16) NOT NULL,
			game_type VARCHAR(32),
			metric VARCHAR(32) NOT NULL,
			prize_pool BIGINT NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS leaderboard_entries (
			leaderboard_id UUID NOT NULL REFERENCES leaderboards(id) ON DELETE CASCADE,
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			score BIGINT NOT NULL,
			rank INT NOT NULL,
			computed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (leaderboard_id, account_id)
		);
		CREATE INDEX IF NOT EXISTS idx_leaderboard_entries_rank ON leaderboard_entries (leaderboard_id, rank);
		`,
	},
	{
		name: "titles",
		sql: `
		CREATE TABLE IF NOT EXISTS titles (
			id UUID PRIMARY KEY,
			name VARCHAR(64) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			required_level INT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS account_titles (
			account_id UUID NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
			title_id UUID NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			acquired_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (account_id, title_id)
		);
		`,
	},
}

// Migrate creates the schema. Every statement is idempotent, so it runs
// on each startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Int("count", len(migrations)).Msg("Running database migrations")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Debug().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
