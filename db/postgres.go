package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	trmcontext "github.com/avito-tech/go-transaction-manager/trm/v2/context"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"virtualArena/config"
	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/state"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// NewPostgresPool connects, pings and makes sure the schema exists.
func NewPostgresPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	log.Info("🔌 Connecting to PostgreSQL...")

	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}

	connectCtx, cancel := context.WithTimeout(ctx, config.ConnectTimeout)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = config.MaxConns
	poolConfig.MinConns = config.MinConns
	poolConfig.MaxConnLifetime = config.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info("✅ PostgreSQL connected successfully")

	if err := InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return pool, nil
}

// InitSchema creates the database tables if they don't exist
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info("📋 Initializing database schema...")

	accountsSchema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		balance NUMERIC(18, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		frozen BOOLEAN NOT NULL DEFAULT FALSE,
		suspended BOOLEAN NOT NULL DEFAULT FALSE,
		betting_limit NUMERIC(18, 2) NOT NULL DEFAULT 5000,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`
	if _, err := pool.Exec(ctx, accountsSchema); err != nil {
		return fmt.Errorf("failed to create accounts table: %w", err)
	}

	historySchema := `
	CREATE TABLE IF NOT EXISTS wager_history (
		id UUID PRIMARY KEY,
		wager_id UUID NOT NULL UNIQUE,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		game TEXT NOT NULL,
		mode TEXT NOT NULL,
		stake NUMERIC(18, 2) NOT NULL,
		payout NUMERIC(18, 2) NOT NULL,
		multiplier DOUBLE PRECISION NOT NULL,
		is_win BOOLEAN NOT NULL,
		label TEXT NOT NULL,
		balance_after NUMERIC(18, 2) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	-- Index on account for per-player history
	CREATE INDEX IF NOT EXISTS idx_wager_history_account ON wager_history(account_id, created_at DESC);
	`
	if _, err := pool.Exec(ctx, historySchema); err != nil {
		return fmt.Errorf("failed to create wager_history table: %w", err)
	}

	roundsSchema := `
	CREATE TABLE IF NOT EXISTS crash_rounds (
		round_id TEXT PRIMARY KEY,
		crash_point DOUBLE PRECISION NOT NULL,
		server_seed TEXT NOT NULL,
		seed_hash TEXT NOT NULL,
		bets INTEGER NOT NULL,
		cash_outs INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_crash_rounds_created_at ON crash_rounds(created_at DESC);
	`
	if _, err := pool.Exec(ctx, roundsSchema); err != nil {
		return fmt.Errorf("failed to create crash_rounds table: %w", err)
	}

	log.Info("✅ Database schema initialized")
	return nil
}

/* =========================
   ACCOUNTS (settlement.Ledger)
========================= */

// PostgresLedger reads and writes through the transaction in ctx when one
// is open, so balance changes and history rows commit together.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

func NewPostgresLedger(pool *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{pool: pool, getter: trmpgx.DefaultCtxGetter}
}

// CreateAccount inserts an account or resets an existing one.
func (l *PostgresLedger) CreateAccount(ctx context.Context, acct *settlement.Account) error {
	query, args, err := psql.Insert("accounts").
		Columns("id", "balance", "frozen", "suspended", "betting_limit").
		Values(acct.ID, acct.Balance.String(), acct.Frozen, acct.Suspended, acct.BettingLimit.String()).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			balance = EXCLUDED.balance,
			frozen = EXCLUDED.frozen,
			suspended = EXCLUDED.suspended,
			betting_limit = EXCLUDED.betting_limit`).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := l.getter.DefaultTrOrDB(ctx, l.pool).Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// Account reads the account row. Inside a transaction the row is locked
// until commit; outside one it is a plain read.
func (l *PostgresLedger) Account(ctx context.Context, accountID string) (*settlement.Account, error) {
	builder := psql.Select("id", "balance::text", "frozen", "suspended", "betting_limit::text").
		From("accounts").
		Where(sq.Eq{"id": accountID})
	if inTx(ctx) {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	var (
		acct           settlement.Account
		balance, limit string
	)
	err = l.getter.DefaultTrOrDB(ctx, l.pool).QueryRow(ctx, query, args...).
		Scan(&acct.ID, &balance, &acct.Frozen, &acct.Suspended, &limit)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", settlement.ErrAccountNotFound, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if acct.Balance, err = decimal.NewFromString(balance); err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	if acct.BettingLimit, err = decimal.NewFromString(limit); err != nil {
		return nil, fmt.Errorf("failed to parse betting limit: %w", err)
	}
	return &acct, nil
}

func inTx(ctx context.Context) bool {
	return trmcontext.DefaultManager.Default(ctx) != nil
}

func (l *PostgresLedger) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acct, err := l.Account(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Balance, nil
}

// Adjust applies delta in one conditional UPDATE; a miss is explained by
// re-reading the account.
func (l *PostgresLedger) Adjust(ctx context.Context, accountID string, delta decimal.Decimal) (decimal.Decimal, error) {
	query, args, err := psql.Update("accounts").
		Set("balance", sq.Expr("balance + ?::numeric", delta.String())).
		Where(sq.Eq{"id": accountID, "frozen": false}).
		Where(sq.Expr("balance + ?::numeric >= 0", delta.String())).
		Suffix("RETURNING balance::text").
		ToSql()
	if err != nil {
		return decimal.Zero, err
	}

	var balance string
	err = l.getter.DefaultTrOrDB(ctx, l.pool).QueryRow(ctx, query, args...).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		acct, lookupErr := l.Account(ctx, accountID)
		if lookupErr != nil {
			return decimal.Zero, lookupErr
		}
		if acct.Frozen {
			return decimal.Zero, settlement.ErrAccountFrozen
		}
		return decimal.Zero, settlement.ErrInsufficientBalance
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust balance: %w", err)
	}
	return decimal.NewFromString(balance)
}

/* =========================
   WAGER HISTORY (settlement.HistoryStore)
========================= */

type PostgresHistory struct {
	pool   *pgxpool.Pool
	getter *trmpgx.CtxGetter
}

func NewPostgresHistory(pool *pgxpool.Pool) *PostgresHistory {
	return &PostgresHistory{pool: pool, getter: trmpgx.DefaultCtxGetter}
}

func (h *PostgresHistory) Append(ctx context.Context, rec *settlement.HistoryRecord) (string, error) {
	id := uuid.NewString()
	query, args, err := psql.Insert("wager_history").
		Columns("id", "wager_id", "account_id", "game", "mode", "stake", "payout",
			"multiplier", "is_win", "label", "balance_after", "created_at").
		Values(id, rec.WagerID.String(), rec.AccountID, string(rec.Game), string(rec.Mode),
			rec.Stake.String(), rec.Payout.String(), rec.Multiplier, rec.IsWin, rec.Label,
			rec.BalanceAfter.String(), rec.CreatedAt).
		ToSql()
	if err != nil {
		return "", err
	}

	if _, err := h.getter.DefaultTrOrDB(ctx, h.pool).Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to store wager history: %w", err)
	}
	return id, nil
}

func (h *PostgresHistory) List(ctx context.Context, accountID string, limit int) ([]*settlement.HistoryRecord, error) {
	query, args, err := psql.Select("id::text", "wager_id::text", "account_id", "game", "mode",
		"stake::text", "payout::text", "multiplier", "is_win", "label", "balance_after::text", "created_at").
		From("wager_history").
		Where(sq.Eq{"account_id": accountID}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := h.getter.DefaultTrOrDB(ctx, h.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query wager history: %w", err)
	}
	defer rows.Close()

	var records []*settlement.HistoryRecord
	for rows.Next() {
		var (
			rec                         settlement.HistoryRecord
			wagerID, g, mode            string
			stake, payout, balanceAfter string
		)
		if err := rows.Scan(&rec.ID, &wagerID, &rec.AccountID, &g, &mode,
			&stake, &payout, &rec.Multiplier, &rec.IsWin, &rec.Label, &balanceAfter, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Game = game.GameType(g)
		rec.Mode = game.Mode(mode)
		if rec.WagerID, err = uuid.Parse(wagerID); err != nil {
			return nil, fmt.Errorf("failed to parse wager id: %w", err)
		}
		rec.Stake = decimal.RequireFromString(stake)
		rec.Payout = decimal.RequireFromString(payout)
		rec.BalanceAfter = decimal.RequireFromString(balanceAfter)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Leaderboard ranks accounts by net real-mode result (payouts minus stakes).
// A limit of zero returns every account.
func (h *PostgresHistory) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	builder := psql.Select("account_id", "(SUM(payout) - SUM(stake))::text AS net", "COUNT(*)").
		From("wager_history").
		Where(sq.Eq{"mode": string(game.ModeReal)}).
		GroupBy("account_id").
		OrderBy("SUM(payout) - SUM(stake) DESC", "account_id")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := h.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var (
			e   LeaderboardEntry
			net string
		)
		if err := rows.Scan(&e.AccountID, &net, &e.Wagers); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Net = decimal.RequireFromString(net)
		e.Rank = len(entries) + 1
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

/* =========================
   CRASH ROUNDS
========================= */

type PostgresRounds struct {
	pool *pgxpool.Pool
}

func NewPostgresRounds(pool *pgxpool.Pool) *PostgresRounds {
	return &PostgresRounds{pool: pool}
}

// StoreRound stores a crashed round
func (r *PostgresRounds) StoreRound(ctx context.Context, s state.CrashRoundSummary) error {
	query, args, err := psql.Insert("crash_rounds").
		Columns("round_id", "crash_point", "server_seed", "seed_hash", "bets", "cash_outs", "created_at").
		Values(s.RoundID, s.CrashPoint, s.ServerSeed, s.SeedHash, s.Bets, s.CashOuts, s.Timestamp).
		Suffix("ON CONFLICT (round_id) DO NOTHING").
		ToSql()
	if err != nil {
		return err
	}

	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to store crash round: %w", err)
	}

	log.Debug("✅ Stored crash round", "round", s.RoundID, "crashPoint", fmt.Sprintf("%.2fx", s.CrashPoint))
	return nil
}

// RecentRounds retrieves the N most recent crash rounds
func (r *PostgresRounds) RecentRounds(ctx context.Context, limit int) ([]state.CrashRoundSummary, error) {
	query, args, err := psql.Select("round_id", "crash_point", "server_seed", "seed_hash", "bets", "cash_outs", "created_at").
		From("crash_rounds").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query crash rounds: %w", err)
	}
	defer rows.Close()

	var out []state.CrashRoundSummary
	for rows.Next() {
		var (
			s  state.CrashRoundSummary
			at time.Time
		)
		if err := rows.Scan(&s.RoundID, &s.CrashPoint, &s.ServerSeed, &s.SeedHash, &s.Bets, &s.CashOuts, &at); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		s.Timestamp = at
		out = append(out, s)
	}
	return out, rows.Err()
}
