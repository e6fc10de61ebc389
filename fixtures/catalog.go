package fixtures

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"virtualArena/config"
)

//go:embed fixtures.yaml
var defaultCatalog []byte

var (
	ErrFixtureNotFound  = errors.New("fixture not found")
	ErrFixtureClosed    = errors.New("fixture is not accepting bets")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrEmptySlip        = errors.New("bet slip is empty")
	ErrInvalidAmount    = errors.New("leg amount must be positive")
)

type Selection string

const (
	SelectionA    Selection = "A"
	SelectionDraw Selection = "Draw"
	SelectionB    Selection = "B"
)

// Fixture is one sports match offered for betting. OddsDraw is zero when the
// sport has no draw.
type Fixture struct {
	ID        string  `yaml:"id" json:"id"`
	Sport     string  `yaml:"sport" json:"sport"`
	League    string  `yaml:"league" json:"league"`
	TeamA     string  `yaml:"teamA" json:"teamA"`
	TeamB     string  `yaml:"teamB" json:"teamB"`
	StartTime string  `yaml:"startTime" json:"startTime"`
	OddsA     float64 `yaml:"oddsA" json:"oddsA"`
	OddsDraw  float64 `yaml:"oddsDraw,omitempty" json:"oddsDraw,omitempty"`
	OddsB     float64 `yaml:"oddsB" json:"oddsB"`
	Disabled  bool    `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Locked    bool    `yaml:"locked,omitempty" json:"locked,omitempty"`
	Margin    float64 `yaml:"margin,omitempty" json:"margin,omitempty"`
}

func (f *Fixture) Title() string {
	return f.TeamA + " vs " + f.TeamB
}

// Odds returns the price of sel, or an error when the fixture does not
// offer it.
func (f *Fixture) Odds(sel Selection) (float64, error) {
	switch sel {
	case SelectionA:
		return f.OddsA, nil
	case SelectionB:
		return f.OddsB, nil
	case SelectionDraw:
		if f.OddsDraw > 0 {
			return f.OddsDraw, nil
		}
	}
	return 0, fmt.Errorf("%w: %q for %s", ErrInvalidSelection, sel, f.ID)
}

func (f *Fixture) Open() bool {
	return !f.Disabled && !f.Locked
}

type catalogFile struct {
	Fixtures []Fixture `yaml:"fixtures"`
}

// Catalog is the set of fixtures on offer.
type Catalog struct {
	mu       sync.RWMutex
	order    []string
	fixtures map[string]*Fixture
}

// LoadCatalog reads a YAML fixture list. An empty path loads the built-in
// catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read fixtures: %w", err)
		}
		data = raw
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	c := &Catalog{fixtures: make(map[string]*Fixture, len(file.Fixtures))}
	for i := range file.Fixtures {
		f := file.Fixtures[i]
		if f.ID == "" {
			return nil, fmt.Errorf("fixture %d: missing id", i)
		}
		if _, dup := c.fixtures[f.ID]; dup {
			return nil, fmt.Errorf("fixture %s: duplicate id", f.ID)
		}
		if f.OddsA <= 1 || f.OddsB <= 1 || (f.OddsDraw != 0 && f.OddsDraw <= 1) {
			return nil, fmt.Errorf("fixture %s: odds must be above 1", f.ID)
		}
		c.fixtures[f.ID] = &f
		c.order = append(c.order, f.ID)
	}

	log.Info("📋 Loaded fixtures", "count", len(c.order))
	return c, nil
}

func (c *Catalog) List() []Fixture {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Fixture, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.fixtures[id])
	}
	return out
}

func (c *Catalog) Get(id string) (Fixture, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, ok := c.fixtures[id]
	if !ok {
		return Fixture{}, fmt.Errorf("%w: %s", ErrFixtureNotFound, id)
	}
	return *f, nil
}

// SetStatus pauses or locks a fixture.
func (c *Catalog) SetStatus(id string, disabled, locked bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.fixtures[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrFixtureNotFound, id)
	}
	f.Disabled = disabled
	f.Locked = locked
	return nil
}

/* =========================
   BET SLIP
========================= */

// Leg is one selection on a bet slip.
type Leg struct {
	FixtureID string    `json:"fixtureId"`
	Selection Selection `json:"selection"`
	Amount    float64   `json:"amount"`
}

type QuotedLeg struct {
	Leg
	TeamNames string          `json:"teamNames"`
	Odds      float64         `json:"odds"`
	Returns   decimal.Decimal `json:"returns"`
}

// Slip is a priced bet slip. Every leg is a single; returns are summed.
type Slip struct {
	Legs             []QuotedLeg     `json:"legs"`
	TotalStake       decimal.Decimal `json:"totalStake"`
	PotentialReturns decimal.Decimal `json:"potentialReturns"`
}

// Quote prices legs against the catalog. Legs on paused or locked fixtures
// are refused.
func (c *Catalog) Quote(legs []Leg) (*Slip, error) {
	if len(legs) == 0 {
		return nil, ErrEmptySlip
	}

	slip := &Slip{Legs: make([]QuotedLeg, 0, len(legs))}
	for _, leg := range legs {
		if leg.Amount <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidAmount, leg.Amount)
		}
		f, err := c.Get(leg.FixtureID)
		if err != nil {
			return nil, err
		}
		if !f.Open() {
			return nil, fmt.Errorf("%w: %s", ErrFixtureClosed, f.ID)
		}

		sel := normalizeSelection(leg.Selection)
		odds, err := f.Odds(sel)
		if err != nil {
			return nil, err
		}

		stake := decimal.NewFromFloat(leg.Amount).Round(config.MoneyPlaces)
		returns := stake.Mul(decimal.NewFromFloat(odds)).Round(config.MoneyPlaces)
		leg.Selection = sel
		slip.Legs = append(slip.Legs, QuotedLeg{Leg: leg, TeamNames: f.Title(), Odds: odds, Returns: returns})
		slip.TotalStake = slip.TotalStake.Add(stake)
		slip.PotentialReturns = slip.PotentialReturns.Add(returns)
	}
	return slip, nil
}

func normalizeSelection(s Selection) Selection {
	switch strings.ToUpper(string(s)) {
	case "A", "1":
		return SelectionA
	case "B", "2":
		return SelectionB
	case "DRAW", "X":
		return SelectionDraw
	}
	return s
}
