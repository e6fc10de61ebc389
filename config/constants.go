package config

import "time"

/* =========================
   GAME MECHANICS - CRASH
========================= */

const (
	// Round timing
	CrashCountdownSeconds = 5                      // WAITING countdown, one step per second
	CrashCountdownStep    = 1 * time.Second        // Countdown tick
	CrashTickInterval     = 50 * time.Millisecond  // FLYING tick
	CrashRestartDelay     = 3 * time.Second        // CRASHED -> next WAITING
	CrashTickIncrement    = 0.005                  // Multiplier gain per FLYING tick
	CrashStartMultiplier  = 1.0
	MaxCrashHistory       = 10 // Keep last 10 rounds in memory

	// Crash point distribution
	CrashInstantProbability = 0.10 // 10% of rounds crash at 1.00
	CrashInstantPoint       = 1.00
	CrashPointBase          = 1.05 // Otherwise U*CrashPointSpan + CrashPointBase
	CrashPointSpan          = 10.0

	// Simulated roster
	RosterMinPlayers   = 10
	RosterExtraPlayers = 10 // 10..19 players
	RosterMinBet       = 50
	RosterBetSpan      = 1000 // 50..1049
	RosterLoserShare   = 0.5
	RosterLoserTarget  = 999.0
	RosterTargetBase   = 1.1
	RosterTargetSpan   = 3.0
)

/* =========================
   GAME MECHANICS - DISCRETE
========================= */

const (
	// Dice
	DiceHouseNumerator = 98.0
	DiceMinThreshold   = 5
	DiceMaxThreshold   = 95

	// Color duel
	ColorMultiplier = 1.90

	// Coin flip
	FlipMultiplier = 1.95

	// Lucky multiplier tiers (draw above cutoff pays multiplier)
	LuckyJackpotCutoff = 0.95
	LuckyJackpotMult   = 10.0
	LuckyHighCutoff    = 0.8
	LuckyHighMult      = 3.0
	LuckyLowCutoff     = 0.6
	LuckyLowMult       = 1.5

	// Step ladder
	LadderSteps          = 5
	LadderMinCashOutStep = 2
	LadderRealFactor     = 0.75 // Real mode multiplies the tier base probability
)

// LadderTables holds the cumulative multipliers per difficulty tier.
var LadderTables = map[string][LadderSteps]float64{
	"EASY":   {1.8, 4.2, 9.5, 16, 24},
	"MEDIUM": {2.5, 6, 12.8, 22, 34},
	"HARD":   {3.5, 9.2, 21, 38.5, 54},
}

// LadderBaseProbability is the per-step survival chance in practice mode.
var LadderBaseProbability = map[string]float64{
	"EASY":   0.85,
	"MEDIUM": 0.72,
	"HARD":   0.58,
}

/* =========================
   BIAS POLICY DEFAULTS
========================= */

const (
	// Practice mode is generous, real mode is not.
	DefaultPracticeWin = 0.70
	DefaultRealWin     = 0.30
	FairWin            = 0.50
)

/* =========================
   WALLET CONFIGURATION
========================= */

const (
	DemoBalance         = 5000.0 // Practice wallet opening balance
	DefaultBettingLimit = 5000.0 // Max stake per wager unless the account overrides it
	MoneyPlaces         = 2
	MaxHistoryPage      = 100
	SettledWagerMemory  = 100000 // Settled wager IDs remembered for duplicate refusal
)

/* =========================
   REDIS TTL CONFIGURATION
========================= */

const (
	// Crash round bet mirror TTL (1 hour)
	// Key: crash:{roundId} -> Hash{accountId: bet}
	CrashRoundTTL = 1 * time.Hour
)

/* =========================
   REDIS KEY PATTERNS
========================= */

const (
	RedisCrashRoundKey = "crash:%s"         // crash:{roundId} (HASH)
	RedisRecordKey     = "arena:%s:%s"      // arena:{collection}:{id}
	RedisRecordPrefix  = "arena:%s:"        // arena:{collection}:
	RedisRecordIndex   = "arena:%s:__index" // arena:{collection}:__index (SET)
)

/* =========================
   POSTGRESQL CONFIGURATION
========================= */

const (
	MaxConns        = 25
	MinConns        = 5
	ConnMaxLifetime = 5 * time.Minute
	ConnectTimeout  = 10 * time.Second
)

/* =========================
   ADVISORY SERVICE
========================= */

const (
	AdvisoryTimeout = 4 * time.Second

	AdvisoryGeneratePath = "/v1/generate"
	AdvisoryTipTemp      = 0.9

	// Returned when the service fails or times out
	FallbackTip     = "High probability detected. Proceed with caution."
	FallbackInsight = "Match insights are currently unavailable."

	// Returned when the service answers with no text
	EmptyTip     = "The algorithm is silent. Trust your instinct."
	EmptyInsight = "Analyzing current team form..."
)

/* =========================
   API CONFIGURATION
========================= */

const (
	ServerAddr = "0.0.0.0:8080"

	AccountHeader = "X-Account-Id"

	ReadHeaderTimeout = 5 * time.Second
	ShutdownTimeout   = 10 * time.Second
)

/* =========================
   WEBSOCKET CONFIGURATION
========================= */

const (
	WSReadDeadline  = 60 * time.Second
	WSWriteDeadline = 10 * time.Second
	WSPingInterval  = 30 * time.Second

	WSReadBufferSize  = 1024
	WSWriteBufferSize = 1024
	WSSendBuffer      = 256

	MaxMessageSize = 512 * 1024 // 512KB
)
