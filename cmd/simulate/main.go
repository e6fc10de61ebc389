package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sort"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"virtualArena/config"
	"virtualArena/game"
)

type CLI struct {
	Config       string  `short:"c" default:"arena.hcl" help:"Path to HCL configuration file"`
	Plays        int     `default:"100000" help:"Wagers to resolve per game and mode"`
	Rounds       int     `default:"20000" help:"Crash rounds to draw"`
	CrashTarget  float64 `default:"2.0" help:"Auto cash-out target for the simulated crash player"`
	LadderTarget int     `default:"3" help:"Steps to clear before cashing out a ladder run"`
	Seed         int64   `default:"0" help:"RNG seed (0 for time based)"`
	Workers      int     `default:"0" help:"Parallel workers (0 for GOMAXPROCS)"`
	Verbose      bool    `short:"v" help:"Verbose logging"`
}

// Statistics accumulates one game/mode cell. RTP is returned over staked.
type Statistics struct {
	Label  string
	Plays  int
	Wins   int
	Staked float64
	Paid   float64
	SumX   float64 // crash points, crash cells only
	Zeroes int     // instant crashes, crash cells only
}

func (s *Statistics) HitRate() float64 {
	if s.Plays == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Plays)
}

func (s *Statistics) RTP() float64 {
	if s.Staked == 0 {
		return 0
	}
	return s.Paid / s.Staked
}

// StdErr is the standard error of the hit rate.
func (s *Statistics) StdErr() float64 {
	if s.Plays == 0 {
		return 0
	}
	p := s.HitRate()
	return math.Sqrt(p * (1 - p) / float64(s.Plays))
}

type task struct {
	label string
	run   func(src game.Source) (*Statistics, error)
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli)

	if cli.Verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := config.LoadArenaConfig(cli.Config)
	if err != nil {
		log.Error("❌ Error loading config", "err", err)
		kctx.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("❌ Invalid configuration", "err", err)
		kctx.Exit(1)
	}

	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	workers := cli.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	policies := game.PoliciesFromConfig(cfg)
	curve := game.CrashCurveFromConfig(cfg.Crash)
	tasks := buildTasks(&cli, policies, curve)

	log.Info("🎲 Simulating", "tasks", len(tasks), "plays", cli.Plays, "rounds", cli.Rounds, "seed", seed, "workers", workers)
	start := time.Now()

	results := make([]*Statistics, len(tasks))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, t := range tasks {
		g.Go(func() error {
			src := game.NewSeededRNG(fmt.Sprintf("%d-%s", seed, t.label))
			stats, err := t.run(src)
			if err != nil {
				return fmt.Errorf("%s: %w", t.label, err)
			}
			stats.Label = t.label
			results[i] = stats
			log.Debug("✅ Task finished", "task", t.label, "plays", stats.Plays)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("❌ Simulation failed", "err", err)
		kctx.Exit(1)
	}

	printResults(os.Stdout, results)
	log.Info("✅ Simulation finished", "elapsed", time.Since(start).Round(time.Millisecond), "seed", seed)
}

func buildTasks(cli *CLI, policies *game.PolicySet, curve game.CrashCurve) []task {
	var tasks []task
	for _, mode := range []game.Mode{game.ModePractice, game.ModeReal} {
		for _, g := range []game.GameType{game.GameDice, game.GameColor, game.GameFlip, game.GameLucky} {
			tasks = append(tasks, task{
				label: fmt.Sprintf("%s/%s", g, mode),
				run: func(src game.Source) (*Statistics, error) {
					return simulateDiscrete(src, policies, g, mode, cli.Plays)
				},
			})
		}

		tiers := make([]string, 0, len(policies.Ladder))
		for tier := range policies.Ladder {
			tiers = append(tiers, string(tier))
		}
		sort.Strings(tiers)
		for _, tier := range tiers {
			tasks = append(tasks, task{
				label: fmt.Sprintf("ladder-%s/%s", tier, mode),
				run: func(src game.Source) (*Statistics, error) {
					return simulateLadder(src, policies, game.Tier(tier), mode, cli.LadderTarget, cli.Plays)
				},
			})
		}
	}

	tasks = append(tasks, task{
		label: fmt.Sprintf("crash@%.2fx", cli.CrashTarget),
		run: func(src game.Source) (*Statistics, error) {
			return simulateCrash(src, curve, cli.CrashTarget, cli.Rounds), nil
		},
	})
	return tasks
}

func randomParams(src game.Source, g game.GameType) game.Params {
	switch g {
	case game.GameDice:
		span := config.DiceMaxThreshold - config.DiceMinThreshold + 1
		return game.Params{Threshold: src.Intn(span) + config.DiceMinThreshold}
	case game.GameColor:
		if src.Intn(2) == 0 {
			return game.Params{Color: game.ColorGreen}
		}
		return game.Params{Color: game.ColorYellow}
	case game.GameFlip:
		if src.Intn(2) == 0 {
			return game.Params{Side: game.SideHeads}
		}
		return game.Params{Side: game.SideTails}
	}
	return game.Params{}
}

func simulateDiscrete(src game.Source, policies *game.PolicySet, g game.GameType, mode game.Mode, plays int) (*Statistics, error) {
	stats := &Statistics{}
	for i := 0; i < plays; i++ {
		w := &game.Wager{AccountID: "sim", Game: g, Stake: 1, Params: randomParams(src, g), Mode: mode}
		o, err := game.Resolve(src, policies, w)
		if err != nil {
			return nil, err
		}
		stats.record(w.Stake, o)
	}
	return stats, nil
}

// simulateLadder climbs until target steps are cleared, then cashes out.
func simulateLadder(src game.Source, policies *game.PolicySet, tier game.Tier, mode game.Mode, target, plays int) (*Statistics, error) {
	stats := &Statistics{}
	for i := 0; i < plays; i++ {
		w := &game.Wager{AccountID: "sim", Game: game.GameLadder, Stake: 1, Params: game.Params{Tier: tier}, Mode: mode}
		run, err := game.NewLadderRun(policies, w)
		if err != nil {
			return nil, err
		}

		var o *game.Outcome
		for o == nil {
			if run.Position >= target && target >= 2 {
				o, err = run.CashOut()
			} else {
				o, err = run.Advance(src)
			}
			if err != nil {
				return nil, err
			}
		}
		stats.record(w.Stake, *o)
	}
	return stats, nil
}

// simulateCrash draws rounds the way the live loop does and settles one
// auto cash-out player per round.
func simulateCrash(src game.Source, curve game.CrashCurve, target float64, rounds int) *Statistics {
	stats := &Statistics{}
	exit := curve.MultiplierAt(curve.TicksToReach(target))
	for i := 0; i < rounds; i++ {
		game.GenerateRoster(src)
		point := curve.DrawCrashPoint(src)

		stats.SumX += point
		if point <= config.CrashStartMultiplier {
			stats.Zeroes++
		}
		stats.record(1, game.NewOutcome(1, exit < point, exit, "crash"))
	}
	return stats
}

func (s *Statistics) record(stake float64, o game.Outcome) {
	s.Plays++
	s.Staked += stake
	s.Paid += o.Payout
	if o.IsWin {
		s.Wins++
	}
}

func printResults(out io.Writer, results []*Statistics) {
	fmt.Fprintf(out, "\n%-22s %10s %10s %10s %8s\n", "GAME/MODE", "PLAYS", "HIT RATE", "± SE", "RTP")
	for _, s := range results {
		fmt.Fprintf(out, "%-22s %10d %9.2f%% %9.2f%% %7.2f%%\n",
			s.Label, s.Plays, s.HitRate()*100, s.StdErr()*100, s.RTP()*100)
		if s.SumX > 0 {
			fmt.Fprintf(out, "%-22s mean crash %.3fx, instant %.2f%%\n", "",
				s.SumX/float64(s.Plays), float64(s.Zeroes)/float64(s.Plays)*100)
		}
	}
	fmt.Fprintln(out)
}
