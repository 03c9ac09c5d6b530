package metrics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/KaramelBytes/dssatview/internal/dates"
	"github.com/KaramelBytes/dssatview/internal/table"
)

func TestComputeDegenerateInputs(t *testing.T) {
	zero := Result{}
	cases := map[string][2][]float64{
		"empty":      {{}, {}},
		"single":     {{1}, {1}},
		"mismatched": {{1, 2, 3}, {1, 2}},
		"all absent": {{math.NaN(), math.NaN()}, {1, 2}},
	}
	for name, c := range cases {
		got := Compute(c[0], c[1])
		got.N = 0
		assert.Equal(t, zero, got, name)
	}
	assert.Equal(t, 1, Compute([]float64{1}, []float64{1}).N)
}

func TestComputeKnownValues(t *testing.T) {
	r := Compute([]float64{1, 2, 3, 4}, []float64{1, 2, 3, 4})
	assert.Equal(t, 4, r.N)
	assert.Equal(t, 0.0, r.RMSE)
	assert.InDelta(t, 1.0, r.R2, 1e-12)
	assert.Equal(t, 1.0, r.DStat)

	r = Compute([]float64{2, 2, 2, 2}, []float64{1, 1, 1, 1})
	assert.Equal(t, 1.0, r.RMSE)
	assert.Equal(t, 0.0, r.R2, "zero variance guards R2")
	assert.Equal(t, 0.0, r.DStat)
	assert.Equal(t, 100.0, r.NRMSE)
}

func TestComputeDropsNaNPairwise(t *testing.T) {
	r := Compute([]float64{1, math.NaN(), 3, 4}, []float64{1, 2, math.NaN(), 4})
	assert.Equal(t, 2, r.N)
	assert.Equal(t, 0.0, r.RMSE)
}

func TestDStatZeroDenominator(t *testing.T) {
	assert.Equal(t, 0.0, DStat([]float64{3, 3}, []float64{3, 3}))
}

func TestEndToEndCWAD(t *testing.T) {
	u := dates.NewUnifier(0, nil)
	simRaw, err := table.FromRecords(
		[]string{"YEAR", "DOY", "TRT", "CWAD"},
		[][]string{{"1991", "83", "1", "1000"}, {"1991", "97", "1", "1400"}},
	)
	require.NoError(t, err)
	obsRaw, err := table.FromRecords(
		[]string{"DATE", "TRT", "CWAD"},
		[][]string{{"1991-03-24", "1", "1000"}, {"1991-04-07", "1", "1350"}},
	)
	require.NoError(t, err)

	sim := u.WithDateColumn(table.Normalize(simRaw, table.DefaultOptions()))
	obs := u.WithDateColumn(table.Normalize(obsRaw, table.DefaultOptions()))

	recs := ComputeAll(sim, obs, []string{"CWAD"}, []string{"1"}, Options{ReportR2: true})
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "1", rec.Treatment)
	assert.Equal(t, 2, rec.N)
	assert.InDelta(t, 35.36, rec.RMSE, 0.01)
	assert.False(t, math.IsNaN(rec.R2))
	assert.GreaterOrEqual(t, rec.DStat, 0.0)
	assert.LessOrEqual(t, rec.DStat, 1.0)
	assert.True(t, rec.R2Reported)
}

func TestComputeAllInsufficientAndMissing(t *testing.T) {
	u := dates.NewUnifier(0, nil)
	sim := u.WithDateColumn(table.MustNew(
		table.NewNumeric("YEAR", []float64{1991, 1991}),
		table.NewNumeric("DOY", []float64{83, 97}),
		table.NewStrings("TRT", table.KindIdentifier, []string{"1", "2"}),
		table.NewNumeric("CWAD", []float64{1000, 1400}),
		table.NewNumeric("LAID", []float64{1, 2}),
	))
	obs := u.WithDateColumn(table.MustNew(
		table.NewStrings("DATE", table.KindText, []string{"1991-03-24", "1991-04-07"}),
		table.NewStrings("TRT", table.KindIdentifier, []string{"1", "2"}),
		table.NewNumeric("CWAD", []float64{1000, 1350}),
	))
	core, logs := observer.New(zapcore.WarnLevel)
	recs := ComputeAll(sim, obs, []string{"CWAD", "LAID"}, nil, Options{
		Label:          func(c string) string { return "label-" + c },
		TreatmentNames: map[string]string{"2": "Irrigated"},
		Log:            zap.New(core),
	})
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].Treatment)
	assert.Equal(t, 1, recs[0].N)
	assert.True(t, recs[0].LowConfidence())
	assert.Zero(t, recs[0].RMSE)
	assert.Equal(t, "Irrigated", recs[1].TreatmentName)
	assert.Equal(t, "label-CWAD", recs[1].Label)
	assert.False(t, recs[1].R2Reported)

	assert.Equal(t, 1, logs.FilterMessage("variable missing for metrics").Len())
	assert.Equal(t, 2, logs.FilterMessage("insufficient paired points").Len())

	assert.Nil(t, ComputeAll(sim, nil, []string{"CWAD"}, nil, Options{}))
}
