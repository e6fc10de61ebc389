package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"virtualArena/config"
	"virtualArena/db"
	"virtualArena/settlement"
)

var CLI struct {
	Config string `short:"c" long:"config" default:"arena.hcl" help:"Path to HCL configuration file with account blocks"`
	Dev    bool   `help:"Also create the built-in dev accounts"`
}

// devAccounts cover every account state the settlement path distinguishes.
var devAccounts = []config.AccountSeed{
	{ID: "alice", Balance: 1000},
	{ID: "bob", Balance: 250.50},
	{ID: "carol", Balance: 5000, BettingLimit: 100},
	{ID: "frozen", Balance: 1000, Frozen: true},
	{ID: "suspended", Balance: 1000, Suspended: true},
	{ID: "broke", Balance: 0},
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := config.LoadArenaConfig(CLI.Config)
	if err != nil {
		log.Error("❌ Error loading config", "err", err)
		kctx.Exit(1)
	}
	env := config.LoadEnv()
	if env.DatabaseURL == "" {
		log.Error("❌ DATABASE_URL not set")
		kctx.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPostgresPool(ctx, env.DatabaseURL)
	if err != nil {
		log.Error("❌ Failed to init postgres", "err", err)
		kctx.Exit(1)
	}
	defer pool.Close()

	seeds := cfg.Accounts
	if CLI.Dev {
		seeds = append(seeds, devAccounts...)
	}
	if len(seeds) == 0 {
		log.Warn("⚠️  Nothing to seed: no account blocks in config and --dev not set")
		return
	}

	ledger := db.NewPostgresLedger(pool)
	fmt.Println("Seeding accounts...")

	failed := 0
	for _, s := range seeds {
		limit := s.BettingLimit
		if limit == 0 {
			limit = cfg.Wallet.BettingLimit
		}
		acct := &settlement.Account{
			ID:           s.ID,
			Balance:      settlement.Money(s.Balance),
			Frozen:       s.Frozen,
			Suspended:    s.Suspended,
			BettingLimit: settlement.Money(limit),
		}
		if err := ledger.CreateAccount(ctx, acct); err != nil {
			log.Error("❌ Failed to create account", "id", s.ID, "err", err)
			failed++
			continue
		}
		fmt.Printf("  %-10s balance=%s limit=%s frozen=%v suspended=%v\n",
			acct.ID, acct.Balance.StringFixed(2), acct.BettingLimit.StringFixed(2), acct.Frozen, acct.Suspended)
	}

	fmt.Println("\nDone! Current leaderboard:")
	entries, err := db.NewPostgresHistory(pool).Leaderboard(ctx, 10)
	if err != nil {
		log.Error("❌ Failed to get leaderboard", "err", err)
		kctx.Exit(1)
	}
	for _, e := range entries {
		fmt.Printf("  #%d %-10s net=%s wagers=%d\n", e.Rank, e.AccountID, e.Net.StringFixed(2), e.Wagers)
	}

	if failed > 0 {
		kctx.Exit(1)
	}
}
