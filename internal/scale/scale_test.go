package scale

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dssatview/internal/table"
)

func TestScaleConstantColumnLandsOnMidpoint(t *testing.T) {
	tb := table.MustNew(table.NewNumeric("LAID", []float64{5, 5, 5, 5}))
	out := Scale(tb, []string{"LAID"}, DefaultOptions(), nil)
	require.Len(t, out["LAID"], 4)
	for _, v := range out["LAID"] {
		assert.Equal(t, 5500.0, v)
	}
	f := Compute(tb, []string{"LAID"}, DefaultOptions())["LAID"]
	assert.Equal(t, 1.0, f.Scale)
	assert.InDelta(t, 5.0, f.Invert(5500), 1e-9)
}

func TestScaleNearConstantColumnCentresOnMidpoint(t *testing.T) {
	raw := []float64{5, 5.00001, 5.00002}
	tb := table.MustNew(table.NewNumeric("LAID", raw))
	f := Compute(tb, []string{"LAID"}, DefaultOptions())["LAID"]
	assert.Equal(t, 1.0, f.Scale)

	out := Scale(tb, []string{"LAID"}, DefaultOptions(), nil)["LAID"]
	require.Len(t, out, 3)
	sum := 0.0
	for i, v := range out {
		assert.InDelta(t, 5500, v, 1e-4)
		assert.InDelta(t, raw[i], f.Invert(v), 1e-9)
		sum += v
	}
	assert.InDelta(t, 5500, sum/3, 1e-9)
}

func TestScaleRangeRoundTrip(t *testing.T) {
	raw := []float64{12.5, 300, math.NaN(), 47, 1e4}
	tb := table.MustNew(table.NewNumeric("CWAD", raw))
	f := Compute(tb, []string{"CWAD"}, DefaultOptions())["CWAD"]
	scaled := Scale(tb, []string{"CWAD"}, DefaultOptions(), nil)["CWAD"]

	assert.InDelta(t, 1000, scaled[0], 1e-9)
	assert.InDelta(t, 10000, scaled[4], 1e-9)
	assert.True(t, math.IsNaN(scaled[2]))
	for i, v := range raw {
		if math.IsNaN(v) {
			continue
		}
		assert.InDelta(t, v, (scaled[i]-f.Offset)/f.Scale, 1e-9)
	}
}

func TestScaleSuppliedFactorsUsedAsIs(t *testing.T) {
	tb := table.MustNew(table.NewNumeric("CWAD", []float64{1, 2}))
	got := Scale(tb, []string{"CWAD"}, DefaultOptions(), map[string]Factor{"CWAD": {Scale: 10, Offset: 3}})
	assert.Equal(t, []float64{13, 23}, got["CWAD"])
}

func TestMagnitudePolicyForSeveralVariables(t *testing.T) {
	tb := table.MustNew(
		table.NewNumeric("CWAD", []float64{100, 4200}),
		table.NewNumeric("LAID", []float64{0.5, 3.2}),
		table.NewNumeric("ZERO", []float64{0, 0}),
	)
	fs := Compute(tb, []string{"CWAD", "LAID", "ZERO", "ABSENT"}, DefaultOptions())
	assert.Equal(t, Factor{Scale: 1}, fs["CWAD"])
	assert.InDelta(t, 1000, fs["LAID"].Scale, 1e-9)
	assert.Zero(t, fs["LAID"].Offset)
	assert.Equal(t, Identity, fs["ZERO"])
	_, ok := fs["ABSENT"]
	assert.False(t, ok)

	opt := DefaultOptions()
	opt.Policy = PolicyRange
	fs = Compute(tb, []string{"CWAD", "LAID"}, opt)
	assert.NotZero(t, fs["LAID"].Offset)
}

func TestPartiallySuppliedFactorsKeepPlotPolicy(t *testing.T) {
	tb := table.MustNew(
		table.NewNumeric("CWAD", []float64{100, 4200}),
		table.NewNumeric("LAID", []float64{0.5, 3.2}),
	)
	got := Scale(tb, []string{"CWAD", "LAID"}, DefaultOptions(), map[string]Factor{"CWAD": {Scale: 1}})
	assert.Equal(t, []float64{100, 4200}, got["CWAD"])
	assert.InDeltaSlice(t, []float64{0.5, 3.2}, got["LAID"], 1e-9, "magnitude alignment leaves no offset")

	fs := resolve(tb, []string{"CWAD", "LAID"}, DefaultOptions(), map[string]Factor{"CWAD": {Scale: 1}})
	assert.Zero(t, fs["LAID"].Offset)
}

func TestApplyReturnsNewTable(t *testing.T) {
	tb := table.MustNew(table.NewNumeric("CWAD", []float64{1, 2}), table.NewStrings("TRT", table.KindIdentifier, []string{"1", "1"}))
	out := Apply(tb, map[string]Factor{"CWAD": {Scale: 2}, "TRT": {Scale: 5}, "NONE": {Scale: 3}})
	c, _ := out.Column("CWAD")
	assert.Equal(t, []float64{2, 4}, c.Floats())
	orig, _ := tb.Column("CWAD")
	assert.Equal(t, []float64{1, 2}, orig.Floats())
}

func TestFactorString(t *testing.T) {
	assert.Equal(t, "Tops wt = 2.000000 * Tops wt + 3.50", Factor{Scale: 2, Offset: 3.5}.String("Tops wt"))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("magnitude")
	require.NoError(t, err)
	assert.Equal(t, PolicyMagnitude, p)
	_, err = ParsePolicy("log")
	assert.Error(t, err)
}
