package semisup

import (
	"bytes"
	"encoding/csv"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	c, err := Compare(notebookInputs())
	require.NoError(t, err)
	t.Logf("\n%v", c.Log())

	assert.Equal(t, AllStrategies, c.Strategies)
	require.Len(t, c.Visits, 3)
	require.Len(t, c.Losses, 3)

	assert.InDelta(t, 0.5, float64s(c.Visit(Unnormalized))[0], 1e-9)
	assert.InDelta(t, 0.5025, float64s(c.Visit(ClassNormalized))[0], 1e-4)
	assert.InDelta(t, 0.25, float64s(c.Visit(Proximity))[0], 1e-9)

	// proximity is the closest to uniform, so it has the lowest visit loss
	assert.True(t, c.Losses[2] < c.Losses[0], "%v", c.Losses)
	assert.True(t, c.Losses[2] < c.Losses[1], "%v", c.Losses)
	assert.Contains(t, c.Log(), "class counts")
}

func TestCompare_Subset(t *testing.T) {
	in := notebookInputs()
	in.Pba = nil
	c, err := Compare(in, ClassNormalized)
	require.NoError(t, err)
	assert.Equal(t, []Strategy{ClassNormalized}, c.Strategies)
	assert.Nil(t, c.Visit(Proximity))

	_, err = Compare(in, Proximity)
	assert.Error(t, err, "proximity requires P_ba")
}

func TestStatistics_Dump(t *testing.T) {
	c, err := Compare(notebookInputs())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.Dump(&buf))
	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"strategy", "loss", "v0", "v1", "v2", "v3"}, records[0])
	assert.Equal(t, "class-normalized", records[2][0])
	assert.Equal(t, "0.5025", records[2][2])
	assert.Equal(t, "0.2475", records[3][3])
}

func TestVisitLoss(t *testing.T) {
	loss, err := VisitLoss(Uniform(4))
	require.NoError(t, err)
	assert.InDelta(t, math.Log(4), loss, 1e-6)

	_, err = VisitLoss(nil)
	assert.Error(t, err)
}

func TestParseStrategy(t *testing.T) {
	for _, s := range AllStrategies {
		got, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)

		text, err := s.MarshalText()
		require.NoError(t, err)
		var back Strategy
		require.NoError(t, back.UnmarshalText(text))
		assert.Equal(t, s, back)
	}
	_, err := ParseStrategy("walker")
	assert.Error(t, err)

	kept := Proximity
	assert.Error(t, kept.UnmarshalText([]byte("bogus")))
	assert.Equal(t, Proximity, kept, "a failed parse must leave the strategy alone")
	assert.Equal(t, "Strategy(9)", Strategy(9).String())
}
