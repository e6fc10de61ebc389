package game

import (
	"virtualArena/config"
)

// BiasPolicy holds the win probability used in each mode. Practice and real
// values are independent; nothing requires them to be fair.
type BiasPolicy struct {
	Practice float64 `json:"practice"`
	Real     float64 `json:"real"`
}

func (p BiasPolicy) WinProbability(mode Mode) float64 {
	if mode == ModeReal {
		return p.Real
	}
	return p.Practice
}

// LadderTier is one difficulty level of the step ladder.
type LadderTier struct {
	Multipliers [config.LadderSteps]float64 `json:"multipliers"`
	Policy      BiasPolicy                  `json:"policy"`
}

// PolicySet is the full set of tunables the resolvers read.
type PolicySet struct {
	Dice   BiasPolicy
	Color  BiasPolicy
	Flip   BiasPolicy
	Ladder map[Tier]LadderTier
}

func DefaultPolicies() *PolicySet {
	biased := BiasPolicy{Practice: config.DefaultPracticeWin, Real: config.DefaultRealWin}
	ps := &PolicySet{
		Dice:   biased,
		Color:  biased,
		Flip:   BiasPolicy{Practice: config.FairWin, Real: config.FairWin},
		Ladder: make(map[Tier]LadderTier, len(config.LadderTables)),
	}
	for name, table := range config.LadderTables {
		base := config.LadderBaseProbability[name]
		ps.Ladder[Tier(name)] = LadderTier{
			Multipliers: table,
			Policy:      BiasPolicy{Practice: base, Real: base * config.LadderRealFactor},
		}
	}
	return ps
}

// PoliciesFromConfig layers the HCL overrides on top of the defaults.
func PoliciesFromConfig(cfg *config.ArenaConfig) *PolicySet {
	ps := DefaultPolicies()
	for _, p := range cfg.Policies {
		bp := BiasPolicy{Practice: p.Practice, Real: p.Real}
		switch GameType(p.Game) {
		case GameDice:
			ps.Dice = bp
		case GameColor:
			ps.Color = bp
		case GameFlip:
			ps.Flip = bp
		}
	}
	for _, l := range cfg.Ladders {
		var table [config.LadderSteps]float64
		copy(table[:], l.Multipliers)
		ps.Ladder[Tier(l.Tier)] = LadderTier{
			Multipliers: table,
			Policy:      BiasPolicy{Practice: l.Base, Real: l.Base * config.LadderRealFactor},
		}
	}
	return ps
}
