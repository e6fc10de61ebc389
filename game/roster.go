package game

import (
	"fmt"

	"virtualArena/config"
)

var rosterHandles = []string{
	"Nightjar", "Quokka_9", "Tern.Fly", "Osprey77", "Kite_Runner", "Lark.X",
	"Heron_Bet", "Swift_22", "Plover", "Condor.10x", "Magpie_Gold", "Finch_Fast",
	"High_Roller", "Bet_Sage", "Jet_Lag", "Cloud_Nine", "Tailwind", "Four_Leaf",
}

// SimulatedPlayer is a roster entry shown alongside real bets in a crash
// round. Losers carry an unreachable target.
type SimulatedPlayer struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Bet       float64 `json:"bet"`
	Target    float64 `json:"-"`
	CashOutAt float64 `json:"cashOutAt,omitempty"`
	Lost      bool    `json:"lost"`
}

func (p *SimulatedPlayer) CashedOut() bool {
	return p.CashOutAt > 0
}

// GenerateRoster draws a round's simulated players. The same source state
// yields the same roster.
func GenerateRoster(src Source) []*SimulatedPlayer {
	count := src.Intn(config.RosterExtraPlayers) + config.RosterMinPlayers
	players := make([]*SimulatedPlayer, 0, count)
	for i := 0; i < count; i++ {
		loser := src.Float64() < config.RosterLoserShare
		p := &SimulatedPlayer{
			ID:   fmt.Sprintf("sim-%02d", i),
			Name: rosterHandles[src.Intn(len(rosterHandles))],
			Bet:  float64(src.Intn(config.RosterBetSpan) + config.RosterMinBet),
		}
		if loser {
			p.Target = config.RosterLoserTarget
		} else {
			p.Target = src.Float64()*config.RosterTargetSpan + config.RosterTargetBase
		}
		players = append(players, p)
	}
	return players
}
