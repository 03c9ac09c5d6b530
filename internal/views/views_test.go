package views

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/dssatview/internal/pipeline"
)

func tsRequest() pipeline.TimeSeriesRequest {
	return pipeline.TimeSeriesRequest{
		Folder:     "Maize",
		Files:      []string{"PlantGro.OUT"},
		Experiment: "UFGA8201.MZX",
		Treatments: []string{"1", "2"},
		XVar:       "DAP",
		YVars:      []string{"CWAD", "LAID"},
	}
}

func TestSaveLoadKeepsRequest(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "views"))
	v := FromTimeSeries("maize-growth", tsRequest())
	require.NoError(t, s.Save(v))
	assert.NotEmpty(t, v.ID)

	got, err := s.Load("maize-growth")
	require.NoError(t, err)
	assert.Equal(t, TimeSeries, got.Kind)
	assert.Equal(t, tsRequest(), got.TimeSeriesRequest())
	assert.Equal(t, tsRequest().Key(), got.TimeSeriesRequest().Key())

	// saving again keeps identity
	again := FromTimeSeries("maize-growth", tsRequest())
	again.YVars = []string{"CWAD"}
	require.NoError(t, s.Save(again))
	assert.Equal(t, v.ID, again.ID)
	assert.True(t, v.CreatedAt.Equal(again.CreatedAt))
}

func TestValidate(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.Error(t, s.Save(FromTimeSeries("../escape", tsRequest())))
	assert.Error(t, s.Save(FromTimeSeries("empty", pipeline.TimeSeriesRequest{Folder: "Maize"})))
	assert.Error(t, s.Save(FromScatter("nopairs", pipeline.ScatterRequest{Folder: "Maize"})))
	assert.Error(t, s.Save(&View{Name: "odd", Folder: "Maize", Kind: "pie"}))
}

func TestListAndDelete(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)
	require.NoError(t, s.Save(FromScatter("yield", pipeline.ScatterRequest{
		Folder: "Maize",
		Pairs:  []pipeline.VariablePair{{DisplayName: "Yield", SimVar: "HWAMS", MeasVar: "HWAMM"}},
	})))
	require.NoError(t, s.Save(FromTimeSeries("growth", tsRequest())))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644))

	list, skipped, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "growth", list[0].Name)
	assert.Equal(t, "HWAMS", list[1].ScatterRequest().Pairs[0].SimVar)
	assert.Equal(t, []string{"broken.json"}, skipped)

	require.NoError(t, s.Delete("growth"))
	assert.ErrorIs(t, s.Delete("growth"), ErrNotFound)
	_, err = s.Load("growth")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMissingDir(t *testing.T) {
	list, skipped, err := NewStore(filepath.Join(t.TempDir(), "none")).List()
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, skipped)
}
