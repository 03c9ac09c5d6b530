package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/dssatview/internal/table"
	"github.com/KaramelBytes/dssatview/internal/telemetry"
)

const plantGro = `$GROWTH ASPECTS OUTPUT FILE
*DSSAT Cropping System Model Ver. 4.8.0.000

*RUN   1        : RAINFED LOW NITROGEN     MZCER048 UFGA8201 1
 MODEL          : MZCER048 - Maize
 EXPERIMENT     : UFGA8201 MZ N X IRRIGATION
 TREATMENT  1   : RAINFED LOW NITROGEN     MZCER048

!IDOY refers to day of year
@YEAR DOY   DAS   DAP  LAID  CWAD
 1982  57     0     0  0.00     0
 1982  58     1     1  0.01   -99

*RUN   2        : RAINFED HIGH NITROGEN    MZCER048 UFGA8201 2
 MODEL          : MZCER048 - Maize
 EXPERIMENT     : UFGA8201 MZ N X IRRIGATION
 TREATMENT  2   : RAINFED HIGH NITROGEN    MZCER048

@YEAR DOY   DAS   DAP  LAID  CWAD  HIAD
 1982  57     0     0  0.00     0  0.00
`

const tFile = `*EXP. DATA (T): UFGA8201MZ N X IRRIGATION

@TRNO DATE  CWAD  LAID
    1 82078  1230   1.2
    1 82092  2710 -99
    2 82078  1400   1.5
`

func write(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestParseDSSATOutput(t *testing.T) {
	tb, err := ParseDSSAT(strings.NewReader(plantGro))
	require.NoError(t, err)
	assert.Equal(t, 3, tb.Len())
	assert.Equal(t, []string{"YEAR", "DOY", "DAS", "DAP", "LAID", "CWAD", "TRNO", "RUN", "EXCODE", "HIAD"}, tb.Names())

	trno, _ := tb.Column("TRNO")
	assert.Equal(t, []string{"1", "1", "2"}, trno.Strings())
	run, _ := tb.Column("RUN")
	assert.Equal(t, []string{"1", "1", "2"}, run.Strings())
	hiad, _ := tb.Column("HIAD")
	assert.Equal(t, []string{"", "", "0.00"}, hiad.Strings())
	exp, _ := tb.Column("EXCODE")
	assert.Equal(t, "UFGA8201", exp.String(0))
}

func TestParseDSSATObservation(t *testing.T) {
	tb, err := ParseDSSAT(strings.NewReader(tFile))
	require.NoError(t, err)
	assert.Equal(t, 3, tb.Len())
	assert.Equal(t, []string{"TRNO", "DATE", "CWAD", "LAID"}, tb.Names())

	n := table.Normalize(tb, table.DefaultOptions())
	laid, _ := n.Column("LAID")
	assert.Equal(t, 2, laid.PresentCount())

	_, err = ParseDSSAT(strings.NewReader("*EMPTY\n"))
	assert.Error(t, err)
}

func TestLoaderDispatch(t *testing.T) {
	m := telemetry.New()
	ld := New(WithMetrics(m))
	ctx := context.Background()

	out, err := ld.ReadTable(ctx, write(t, "PlantGro.OUT", plantGro))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Len())

	csvPath := write(t, "obs.csv", " trt ; date ; cwad\n1;1991-03-24;1000\n\n1;1991-04-07;1350\n")
	c, err := ld.ReadTable(ctx, csvPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"TRT", "DATE", "CWAD"}, c.Names())
	assert.Equal(t, 2, c.Len())

	_, err = ld.ReadTable(ctx, filepath.Join(t.TempDir(), "missing.OUT"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ld.ReadTable(cancelled, csvPath)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoaderUnsupported(t *testing.T) {
	ld := &Loader{}
	ld.Register(CSV{})
	_, err := ld.ReadTable(context.Background(), write(t, "x.OUT", plantGro))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"TRNO", "DATE", "CWAD"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{1, "1991-03-24", 1000}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{1, "1991-04-07", 1350}))
	p := filepath.Join(t.TempDir(), "obs.xlsx")
	require.NoError(t, f.SaveAs(p))
	require.NoError(t, f.Close())

	tb, err := New().ReadTable(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 2, tb.Len())
	cwad, _ := tb.Column("CWAD")
	assert.Equal(t, []string{"1000", "1350"}, cwad.Strings())
}
