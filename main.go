package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"virtualArena/advisory"
	"virtualArena/api"
	"virtualArena/arena"
	"virtualArena/config"
	"virtualArena/db"
	"virtualArena/fixtures"
	"virtualArena/game"
	"virtualArena/settlement"
	"virtualArena/ws"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"arena.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Server address to bind to (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	kctx := kong.Parse(&CLI)

	cfg, err := config.LoadArenaConfig(CLI.Config)
	if err != nil {
		log.Error("❌ Error loading config", "err", err)
		kctx.Exit(1)
	}
	if CLI.Addr != "" {
		cfg.Server.Address = CLI.Addr
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Error("❌ Invalid configuration", "err", err)
		kctx.Exit(1)
	}

	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		log.Warn("⚠️  Unknown log level, using info", "level", cfg.Server.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)

	env := config.LoadEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, env); err != nil {
		log.Error("❌ Server error", "err", err)
		kctx.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.ArenaConfig, env config.Env) error {
	b, err := openBackends(ctx, cfg, env)
	if err != nil {
		return err
	}
	defer b.Close()

	practiceRepo := db.NewMemoryRepository()
	practice := settlement.NewRecorder(
		db.NewDemoLedger(practiceRepo, cfg.Wallet.DemoBalance, cfg.Wallet.BettingLimit),
		db.NewRepoHistory(practiceRepo), nil)
	realMoney := settlement.NewRecorder(b.ledger, b.history, b.tx)

	policies := game.PoliciesFromConfig(cfg)
	service := arena.NewService(policies, game.NewTimeSource(), practice, realMoney)

	hub := ws.NewHub()
	runner := ws.NewCrashRunner(quartz.NewReal(), cfg.Crash, map[game.Mode]ws.Settler{
		game.ModePractice: practice,
		game.ModeReal:     realMoney,
	}, b.rounds, hub)
	if b.mirror != nil {
		runner.WithMirror(b.mirror)
	}
	hub.SetCrash(runner)

	catalog, err := fixtures.LoadCatalog(cfg.Server.FixturesFile)
	if err != nil {
		return err
	}

	advisoryURL := cfg.Advisory.URL
	if env.AdvisoryURL != "" {
		advisoryURL = env.AdvisoryURL
	}
	advisor := advisory.NewClient(advisoryURL, env.AdvisoryAPIKey, cfg.Advisory.Timeout())

	router := api.NewRouter(api.Deps{
		Arena:       service,
		Crash:       runner,
		Curve:       game.CrashCurveFromConfig(cfg.Crash),
		Leaderboard: b.history,
		Catalog:     catalog,
		Advisor:     advisor,
		WS:          hub.ServeWS,
		Checks:      b.checks,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := runner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("🚀 Server starting", "addr", cfg.Server.Address)
		log.Info("📡 WebSocket endpoint", "path", "/ws", "channels", []string{ws.ChannelCrash, ws.ChannelBettors})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("🛑 Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
