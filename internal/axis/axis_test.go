package axis

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/dssatview/internal/table"
)

func day(m time.Month, d int) time.Time { return time.Date(1991, m, d, 0, 0, 0, 0, time.UTC) }

func obsTable() *table.Table {
	return table.MustNew(
		table.NewDates("DATE", []time.Time{day(3, 24), {}, day(4, 7)}),
		table.NewNumeric("CWAD", []float64{1000, 1200, 1350}),
	)
}

func floats(t *testing.T, tb *table.Table, name string) []float64 {
	t.Helper()
	c, ok := tb.Column(name)
	require.True(t, ok, name)
	return c.Floats()
}

func TestSynthesizePresentAndAlias(t *testing.T) {
	obs := table.MustNew(table.NewNumeric("DAP", []float64{1, 2}))
	out, o := Synthesize(obs, "dap", nil, nil)
	assert.Equal(t, Present, o)
	assert.Same(t, obs, out)

	out, o = Synthesize(obs, "DAS", nil, nil)
	assert.Equal(t, Aliased, o)
	assert.Equal(t, []float64{1, 2}, floats(t, out, "DAS"))
	assert.False(t, obs.Has("DAS"))
}

func TestSynthesizeDOYFromDates(t *testing.T) {
	out, o := Synthesize(obsTable(), "DOY", nil, nil)
	assert.Equal(t, FromDates, o)
	// the middle row has no date and is forward filled
	assert.Equal(t, []float64{83, 83, 97}, floats(t, out, "DOY"))
}

func TestSynthesizeDAPFromSimulationStart(t *testing.T) {
	sim := table.MustNew(table.NewDates("DATE", []time.Time{day(3, 20), day(3, 21)}))
	out, o := Synthesize(obsTable(), "DAP", sim, nil)
	assert.Equal(t, FromDates, o)
	assert.Equal(t, []float64{4, 4, 18}, floats(t, out, "DAP"))

	out, _ = Synthesize(obsTable(), "DAS", nil, nil)
	assert.Equal(t, []float64{0, 0, 14}, floats(t, out, "DAS"))
}

func TestSynthesizeFromSimulationMapping(t *testing.T) {
	sim := table.MustNew(
		table.NewDates("DATE", []time.Time{day(3, 24), day(3, 24), day(4, 7)}),
		table.NewNumeric("GSTD", []float64{3, 9, 5}),
	)
	core, logs := observer.New(zapcore.WarnLevel)
	obs := table.MustNew(
		table.NewDates("DATE", []time.Time{day(3, 24), day(4, 1), day(4, 7)}),
		table.NewNumeric("CWAD", []float64{1, 2, 3}),
	)
	out, o := Synthesize(obs, "GSTD", sim, zap.New(core))
	assert.Equal(t, FromSimulation, o)
	assert.Equal(t, []float64{3, 3, 5}, floats(t, out, "GSTD"))
	assert.Equal(t, 1, logs.FilterMessage("axis values not inferable from simulation").Len())
}

func TestSynthesizeSequenceFallback(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	obs := table.MustNew(table.NewNumeric("CWAD", []float64{5, 6, 7}))
	out, o := Synthesize(obs, "DOY", nil, zap.New(core))
	assert.Equal(t, Sequence, o)
	assert.True(t, o.Degraded())
	assert.Equal(t, []float64{0, 1, 2}, floats(t, out, "DOY"))
	assert.Equal(t, 1, logs.FilterMessage("creating sequence for missing axis").Len())
}

func TestSynthesizeEmpty(t *testing.T) {
	out, o := Synthesize(nil, "DOY", nil, nil)
	assert.Nil(t, out)
	assert.Equal(t, Skipped, o)
}

func TestForwardFillLeadingGap(t *testing.T) {
	v := []float64{math.NaN(), 1, math.NaN(), 3}
	forwardFill(v)
	assert.True(t, math.IsNaN(v[0]))
	assert.Equal(t, []float64{1, 1, 3}, v[1:])
}
