package dssat

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const detailCDE = `*Codes used in DSSAT

*Crop and Weed Species
@CDE     CROP NAME.......................................................
MZ       Maize
WHCER    Wheat
         (no code)
SB       Soybean
*Weather
@CDE     NAME
XX       Not a crop
`

const dssatPro = `WED C: \DSSAT48\Weather
MZD C: \DSSAT48\Maize
SBD C: \DSSAT48\Soybean
DDB C: \DSSAT48
`

const xFile = `*EXP.DETAILS: UFGA8201MZ N X IRRIGATION, GAINESVILLE 2N*3I

*TREATMENTS                        -------------FACTOR LEVELS------------
@N R O C TNAME.................... CU FL SA IC MP MI MF MR MC MT ME MH SM
 1 1 0 0 RAINFED LOW NITROGEN       1  1  0  1  1  0  1  0  0  0  0  0  1
 2 1 0 0 RAINFED HIGH NITROGEN      1  1  0  1  1  0  2  0  0  0  0  0  1

*CULTIVARS
@C CR INGENO CNAME
`

func TestParseDetailCDE(t *testing.T) {
	crops, err := ParseDetailCDE(strings.NewReader(detailCDE))
	require.NoError(t, err)
	assert.Equal(t, []Crop{{Code: "MZ", Name: "Maize"}, {Code: "WH", Name: "Wheat"}, {Code: "SB", Name: "Soybean"}}, crops)

	_, err = ParseDetailCDE(strings.NewReader("*Weather\n"))
	assert.Error(t, err)
}

func TestParseDSSATPro(t *testing.T) {
	dirs, err := ParseDSSATPro(strings.NewReader(dssatPro))
	require.NoError(t, err)
	assert.Equal(t, "C:/DSSAT48/Maize", dirs["MZ"])
	assert.Equal(t, "C:/DSSAT48/Weather", dirs["WE"])
	_, ok := dirs["DD"]
	assert.False(t, ok)
}

func TestRebase(t *testing.T) {
	assert.Equal(t, filepath.Join("/opt/DSSAT48", "Maize"), rebase("C:/DSSAT48/Maize", "/opt/DSSAT48", false))
	assert.Equal(t, "C:/DSSAT48/Maize", rebase("C:/DSSAT48/Maize", "/opt/DSSAT48", true))
	assert.Equal(t, "/data/maize", rebase("/data/maize", "/opt/DSSAT48", false))
}

func TestParseTreatments(t *testing.T) {
	names, err := ParseTreatments(strings.NewReader(xFile))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"1": "RAINFED LOW NITROGEN", "2": "RAINFED HIGH NITROGEN"}, names)

	title, err := ParseExperimentTitle(strings.NewReader(xFile))
	require.NoError(t, err)
	assert.Equal(t, "N X IRRIGATION, GAINESVILLE 2N*3I", title)
}

func install(t *testing.T) (base, maize string) {
	t.Helper()
	base = t.TempDir()
	maize = filepath.Join(base, "Maize")
	require.NoError(t, os.MkdirAll(maize, 0o755))
	files := map[string]string{
		filepath.Join(base, "DETAIL.CDE"):    detailCDE,
		filepath.Join(base, "DSSATPRO.L48"):  dssatPro,
		filepath.Join(maize, "UFGA8201.MZX"): xFile,
		filepath.Join(maize, "ufga8201.mzt"): "@TRNO DATE CWAD\n",
		filepath.Join(maize, "PlantGro.OUT"): "",
		filepath.Join(maize, EvaluateFile):   "",
		filepath.Join(maize, "UFGA8202.SBX"): "",
		filepath.Join(maize, "notes.txt"):    "",
	}
	for p, body := range files {
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return base, maize
}

func TestResolver(t *testing.T) {
	base, maize := install(t)
	r := NewResolver(Options{Base: base})

	folders, err := r.Folders()
	require.NoError(t, err)
	assert.Equal(t, []string{"Maize", "Wheat", "Soybean"}, folders)

	dir, err := r.Resolve("MAIZE")
	require.NoError(t, err)
	assert.Equal(t, maize, dir)
	dir, err = r.Resolve("mz")
	require.NoError(t, err)
	assert.Equal(t, maize, dir)

	_, err = r.Resolve("Wheat")
	assert.True(t, errors.Is(err, ErrUnknownFolder), "no directory configured")
	_, err = r.Resolve("Rice")
	assert.ErrorIs(t, err, ErrUnknownFolder)

	exps, err := r.Experiments("Maize")
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, "UFGA8201", exps[0].Code)

	obs, err := r.ObservedFile("Maize", "UFGA8201.MZX")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(maize, "ufga8201.mzt"), obs)
	_, err = r.ObservedFile("Maize", "UFGA8202.SBX")
	assert.ErrorIs(t, err, os.ErrNotExist)

	names, err := r.TreatmentNames("Maize", "UFGA8201.MZX")
	require.NoError(t, err)
	assert.Equal(t, "RAINFED HIGH NITROGEN", names["2"])

	outs, err := r.Outputs("Maize")
	require.NoError(t, err)
	assert.Equal(t, []string{EvaluateFile, "PlantGro.OUT"}, outs)

	ev, err := r.EvaluatePath("Maize")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(maize, EvaluateFile), ev)
}

func TestResolverOverrides(t *testing.T) {
	base, maize := install(t)
	other := t.TempDir()
	r := NewResolver(Options{Base: base, Overrides: map[string]string{"wheat": other, "sandbox": maize}})

	dir, err := r.Resolve("Wheat")
	require.NoError(t, err)
	assert.Equal(t, other, dir)

	folders, err := r.Folders()
	require.NoError(t, err)
	assert.Equal(t, []string{"Maize", "Wheat", "Soybean", "sandbox"}, folders)

	// overrides alone are enough without an installation
	bare := NewResolver(Options{Base: t.TempDir(), Overrides: map[string]string{"sandbox": maize}})
	dir, err = bare.Resolve("Sandbox")
	require.NoError(t, err)
	assert.Equal(t, maize, dir)

	_, err = NewResolver(Options{Base: t.TempDir()}).Folders()
	assert.Error(t, err)
}
