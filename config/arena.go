package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ArenaConfig is the complete tuning file for the arena server.
type ArenaConfig struct {
	Server   *ServerSettings   `hcl:"server,block"`
	Crash    *CrashSettings    `hcl:"crash,block"`
	Wallet   *WalletSettings   `hcl:"wallet,block"`
	Advisory *AdvisorySettings `hcl:"advisory,block"`
	Policies []PolicyConfig    `hcl:"policy,block"`
	Ladders  []LadderConfig    `hcl:"ladder,block"`
	Accounts []AccountSeed     `hcl:"account,block"`
}

// ServerSettings contains process-level configuration
type ServerSettings struct {
	Address      string `hcl:"address,optional"`
	LogLevel     string `hcl:"log_level,optional"`
	FixturesFile string `hcl:"fixtures_file,optional"`
}

// CrashSettings tunes the crash round loop.
type CrashSettings struct {
	CountdownSeconds   int     `hcl:"countdown_seconds,optional"`
	TickMillis         int     `hcl:"tick_ms,optional"`
	RestartMillis      int     `hcl:"restart_ms,optional"`
	TickIncrement      float64 `hcl:"tick_increment,optional"`
	InstantProbability float64 `hcl:"instant_probability,optional"`
	PointBase          float64 `hcl:"point_base,optional"`
	PointSpan          float64 `hcl:"point_span,optional"`
}

type WalletSettings struct {
	DemoBalance  float64 `hcl:"demo_balance,optional"`
	BettingLimit float64 `hcl:"betting_limit,optional"`
}

type AdvisorySettings struct {
	URL       string `hcl:"url,optional"`
	TimeoutMs int    `hcl:"timeout_ms,optional"`
}

// PolicyConfig overrides the win probabilities of one game type.
type PolicyConfig struct {
	Game     string  `hcl:"game,label"`
	Practice float64 `hcl:"practice"`
	Real     float64 `hcl:"real"`
}

// LadderConfig overrides one difficulty tier of the step ladder.
type LadderConfig struct {
	Tier        string    `hcl:"tier,label"`
	Multipliers []float64 `hcl:"multipliers"`
	Base        float64   `hcl:"base"`
}

// AccountSeed opens a real-mode account on the in-memory ledger at startup.
type AccountSeed struct {
	ID           string  `hcl:"id,label"`
	Balance      float64 `hcl:"balance"`
	Frozen       bool    `hcl:"frozen,optional"`
	Suspended    bool    `hcl:"suspended,optional"`
	BettingLimit float64 `hcl:"betting_limit,optional"`
}

// DefaultArenaConfig returns the built-in configuration.
func DefaultArenaConfig() *ArenaConfig {
	cfg := &ArenaConfig{}
	cfg.applyDefaults()
	return cfg
}

// LoadArenaConfig loads the arena configuration from an HCL file. A missing
// file yields the defaults.
func LoadArenaConfig(filename string) (*ArenaConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultArenaConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ArenaConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	return &config, nil
}

func (c *ArenaConfig) applyDefaults() {
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}
	if c.Server.Address == "" {
		c.Server.Address = ServerAddr
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Crash == nil {
		c.Crash = &CrashSettings{}
	}
	if c.Crash.CountdownSeconds == 0 {
		c.Crash.CountdownSeconds = CrashCountdownSeconds
	}
	if c.Crash.TickMillis == 0 {
		c.Crash.TickMillis = int(CrashTickInterval / time.Millisecond)
	}
	if c.Crash.RestartMillis == 0 {
		c.Crash.RestartMillis = int(CrashRestartDelay / time.Millisecond)
	}
	if c.Crash.TickIncrement == 0 {
		c.Crash.TickIncrement = CrashTickIncrement
	}
	if c.Crash.InstantProbability == 0 {
		c.Crash.InstantProbability = CrashInstantProbability
	}
	if c.Crash.PointBase == 0 {
		c.Crash.PointBase = CrashPointBase
	}
	if c.Crash.PointSpan == 0 {
		c.Crash.PointSpan = CrashPointSpan
	}

	if c.Wallet == nil {
		c.Wallet = &WalletSettings{}
	}
	if c.Wallet.DemoBalance == 0 {
		c.Wallet.DemoBalance = DemoBalance
	}
	if c.Wallet.BettingLimit == 0 {
		c.Wallet.BettingLimit = DefaultBettingLimit
	}

	if c.Advisory == nil {
		c.Advisory = &AdvisorySettings{}
	}
	if c.Advisory.TimeoutMs == 0 {
		c.Advisory.TimeoutMs = int(AdvisoryTimeout / time.Millisecond)
	}

	for i := range c.Accounts {
		if c.Accounts[i].BettingLimit == 0 {
			c.Accounts[i].BettingLimit = c.Wallet.BettingLimit
		}
	}
}

// Validate validates the arena configuration
func (c *ArenaConfig) Validate() error {
	if c.Crash.CountdownSeconds < 1 {
		return fmt.Errorf("crash: countdown must be at least one second")
	}
	if c.Crash.TickMillis < 1 || c.Crash.RestartMillis < 0 {
		return fmt.Errorf("crash: invalid timings")
	}
	if c.Crash.TickIncrement <= 0 {
		return fmt.Errorf("crash: tick increment must be positive")
	}
	if !isProbability(c.Crash.InstantProbability) {
		return fmt.Errorf("crash: instant probability %v out of range", c.Crash.InstantProbability)
	}
	if c.Crash.PointBase <= CrashStartMultiplier || c.Crash.PointSpan <= 0 {
		return fmt.Errorf("crash: crash point range must lie above %.2f", CrashStartMultiplier)
	}

	if c.Wallet.DemoBalance < 0 || c.Wallet.BettingLimit < 0 {
		return fmt.Errorf("wallet: amounts must not be negative")
	}

	validGames := map[string]bool{
		"dice":  true,
		"color": true,
		"flip":  true,
	}
	for _, p := range c.Policies {
		if !validGames[p.Game] {
			return fmt.Errorf("policy %s: unknown game", p.Game)
		}
		if !isProbability(p.Practice) || !isProbability(p.Real) {
			return fmt.Errorf("policy %s: probabilities must be within [0, 1]", p.Game)
		}
	}

	for _, l := range c.Ladders {
		if _, ok := LadderTables[l.Tier]; !ok {
			return fmt.Errorf("ladder %s: unknown tier", l.Tier)
		}
		if len(l.Multipliers) != LadderSteps {
			return fmt.Errorf("ladder %s: need %d multipliers, got %d", l.Tier, LadderSteps, len(l.Multipliers))
		}
		for i := 1; i < len(l.Multipliers); i++ {
			if l.Multipliers[i] <= l.Multipliers[i-1] {
				return fmt.Errorf("ladder %s: multipliers must increase", l.Tier)
			}
		}
		if !isProbability(l.Base) {
			return fmt.Errorf("ladder %s: base probability out of range", l.Tier)
		}
	}

	seen := make(map[string]bool)
	for _, a := range c.Accounts {
		if seen[a.ID] {
			return fmt.Errorf("account %s: declared twice", a.ID)
		}
		seen[a.ID] = true
		if a.Balance < 0 {
			return fmt.Errorf("account %s: negative balance", a.ID)
		}
	}

	return nil
}

func (c *CrashSettings) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}

func (c *CrashSettings) RestartDelay() time.Duration {
	return time.Duration(c.RestartMillis) * time.Millisecond
}

func (c *AdvisorySettings) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

func isProbability(p float64) bool {
	return p >= 0 && p <= 1
}
