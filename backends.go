package main

import (
	"context"
	"errors"
	"fmt"

	trmpgx "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/charmbracelet/log"

	"virtualArena/config"
	"virtualArena/db"
	"virtualArena/settlement"
	"virtualArena/ws"
)

type historyStore interface {
	settlement.HistoryStore
	Leaderboard(ctx context.Context, limit int) ([]db.LeaderboardEntry, error)
}

// backends is the real-money storage picked from the environment:
// Postgres when DATABASE_URL is set, else Redis when REDIS_URL is set, else
// process memory.
type backends struct {
	ledger  settlement.Ledger
	history historyStore
	tx      settlement.TxRunner
	rounds  ws.RoundStore
	mirror  ws.BetMirror
	checks  map[string]func(context.Context) error
	closers []func()
}

func (b *backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackends(ctx context.Context, cfg *config.ArenaConfig, env config.Env) (*backends, error) {
	b := &backends{
		rounds: db.NewMemoryRounds(),
		checks: make(map[string]func(context.Context) error),
	}

	if env.DatabaseURL != "" {
		pool, err := db.NewPostgresPool(ctx, env.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)

		txManager, err := manager.New(trmpgx.NewDefaultFactory(pool))
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to create transaction manager: %w", err)
		}

		b.ledger = db.NewPostgresLedger(pool)
		b.history = db.NewPostgresHistory(pool)
		b.rounds = db.NewPostgresRounds(pool)
		b.tx = txManager
		b.checks["postgres"] = pool.Ping

		if len(cfg.Accounts) > 0 {
			log.Warn("⚠️  Account seeds are ignored with PostgreSQL, use cmd/seed_accounts")
		}
	}

	var repo db.Repository
	if env.RedisURL != "" {
		client, err := db.NewRedisClient(ctx, env)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { client.Close() })
		b.mirror = db.NewRedisBetMirror(client)
		b.checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
		repo = db.NewRedisRepository(client)
	}

	if b.ledger != nil {
		return b, nil
	}

	if repo == nil {
		log.Warn("⚠️  No DATABASE_URL or REDIS_URL, real-mode wallets live in memory")
		repo = db.NewMemoryRepository()
	}
	ledger := db.NewRepoLedger(repo)
	if err := seedAccounts(ctx, ledger, cfg.Accounts); err != nil {
		b.Close()
		return nil, err
	}
	b.ledger = ledger
	b.history = db.NewRepoHistory(repo)
	return b, nil
}

// seedAccounts opens configured accounts that do not exist yet. Existing
// balances are left alone so a restart against Redis keeps them.
func seedAccounts(ctx context.Context, ledger *db.RepoLedger, seeds []config.AccountSeed) error {
	for _, s := range seeds {
		_, err := ledger.Account(ctx, s.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, settlement.ErrAccountNotFound) {
			return fmt.Errorf("failed to look up account %s: %w", s.ID, err)
		}

		acct := &settlement.Account{
			ID:           s.ID,
			Balance:      settlement.Money(s.Balance),
			Frozen:       s.Frozen,
			Suspended:    s.Suspended,
			BettingLimit: settlement.Money(s.BettingLimit),
		}
		if err := ledger.Open(ctx, acct); err != nil {
			return fmt.Errorf("failed to open account %s: %w", s.ID, err)
		}
		log.Info("👤 Opened account", "id", s.ID, "balance", acct.Balance)
	}
	return nil
}
