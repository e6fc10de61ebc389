package fixtures

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Arsenal vs Man City", list[0].Title())
	assert.Equal(t, 3.40, list[0].OddsDraw)
	assert.Zero(t, list[1].OddsDraw)
}

func TestLoadCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
fixtures:
  - id: m1
    sport: TENNIS
    league: ATP
    teamA: Alpha
    teamB: Beta
    oddsA: 1.5
    oddsB: 2.5
    locked: true
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	f, err := c.Get("m1")
	require.NoError(t, err)
	assert.True(t, f.Locked)
	assert.False(t, f.Open())
}

func TestParseCatalogRejects(t *testing.T) {
	tests := map[string]string{
		"missing id": "fixtures:\n  - teamA: A\n    oddsA: 2\n    oddsB: 2\n",
		"duplicate":  "fixtures:\n  - {id: x, oddsA: 2, oddsB: 2}\n  - {id: x, oddsA: 2, oddsB: 2}\n",
		"odds":       "fixtures:\n  - {id: x, oddsA: 0.5, oddsB: 2}\n",
		"yaml":       "fixtures: [",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestQuoteSumsLegs(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	slip, err := c.Quote([]Leg{
		{FixtureID: "1", Selection: "draw", Amount: 10},
		{FixtureID: "2", Selection: SelectionB, Amount: 20},
	})
	require.NoError(t, err)
	require.Len(t, slip.Legs, 2)

	assert.Equal(t, SelectionDraw, slip.Legs[0].Selection)
	assert.Equal(t, "Arsenal vs Man City", slip.Legs[0].TeamNames)
	assert.True(t, slip.TotalStake.Equal(decimal.NewFromInt(30)))
	// 10*3.40 + 20*1.95
	assert.True(t, slip.PotentialReturns.Equal(decimal.NewFromInt(73)))
}

func TestQuoteRefusals(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	require.NoError(t, c.SetStatus("1", true, false))

	_, err = c.Quote(nil)
	assert.ErrorIs(t, err, ErrEmptySlip)

	_, err = c.Quote([]Leg{{FixtureID: "1", Selection: SelectionA, Amount: 5}})
	assert.ErrorIs(t, err, ErrFixtureClosed)

	_, err = c.Quote([]Leg{{FixtureID: "2", Selection: SelectionDraw, Amount: 5}})
	assert.ErrorIs(t, err, ErrInvalidSelection)

	_, err = c.Quote([]Leg{{FixtureID: "9", Selection: SelectionA, Amount: 5}})
	assert.ErrorIs(t, err, ErrFixtureNotFound)

	_, err = c.Quote([]Leg{{FixtureID: "2", Selection: SelectionA, Amount: 0}})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
