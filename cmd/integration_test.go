package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const plantGroOut = `*DSSAT Cropping System Model Ver. 4.8.0.000

*RUN   1        : RAINFED LOW NITROGEN     MZCER048 UFGA8201 1
 EXPERIMENT     : UFGA8201 MZ N X IRRIGATION
 TREATMENT  1   : RAINFED LOW NITROGEN     MZCER048

@YEAR DOY   DAS  LAID  CWAD
 1991  83     0  0.50  1000
 1991  97    14  1.10  1400
`

const observedT = `*EXP. DATA (T): UFGA8201MZ N X IRRIGATION

@TRNO DATE  CWAD
    1 91083  1000
    1 91097  1350
`

const evaluateOut = `*EVALUATION : UFGA8201MZ

@RUN EXCODE    TRNO HWAMS HWAMM CWAMS CWAMM
   1 UFGA8201     1  5000  5100 10000 10500
   2 UFGA8201     2  6000  5900 11000 10800
`

// runCmd is a helper to execute the root command with args and return what
// it printed.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	// Reset bound variables; flag values persist across executions
	cfgFile, debug, jsonOut, showStats = "", false, false, false
	tsSel.reset()
	scSel.reset()
	mtSel.reset()
	vwSel.reset()
	vwKind = "timeseries"
	scListPairs = false
	varsFolder, varsFiles = "", nil
	insOutputPath, insGroupBy, insDecimal, insThousands = "", "", "", ""
	insOutlierThr, insLabels = 3.5, true

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

// setupHome points HOME at a temp dir holding a config that maps the Maize
// folder to a fixture directory.
func setupHome(t *testing.T) (home, maize string) {
	t.Helper()
	home = t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)

	maize = filepath.Join(home, "DSSAT48", "Maize")
	if err := os.MkdirAll(maize, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	files := map[string]string{
		"PlantGro.OUT": plantGroOut,
		"UFGA8201.MZT": observedT,
		"EVALUATE.OUT": evaluateOut,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(maize, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	cfgDir := filepath.Join(home, ".dssatview")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir config: %v", err)
	}
	yaml := "dssat_base: " + filepath.Join(home, "DSSAT48") + "\n" +
		"log_level: error\n" +
		"folders:\n  maize: " + maize + "\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return home, maize
}

func TestCLI_ConfigSetShow(t *testing.T) {
	setupHome(t)
	runCmd(t, "config", "set", "target_max", "500")
	runCmd(t, "config", "set", "folders.wheat", "/data/Wheat")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "target_max: 500") {
		t.Fatalf("expected target_max in output, got:\n%s", out)
	}
	if !strings.Contains(out, "folders.wheat: /data/Wheat") {
		t.Fatalf("expected folder override in output, got:\n%s", out)
	}
	if _, err := execCmd("config", "set", "scale_policy", "bogus"); err == nil {
		t.Fatalf("expected invalid scale_policy to fail")
	}
}

func TestCLI_TimeSeriesJSON(t *testing.T) {
	setupHome(t)
	out := runCmd(t, "timeseries", "-f", "Maize", "-e", "UFGA8201.MZX", "-y", "CWAD", "--json")
	var ts struct {
		XVar    string `json:"x_var"`
		Metrics []struct {
			Variable string  `json:"variable"`
			N        int     `json:"n"`
			RMSE     float64 `json:"rmse"`
		} `json:"metrics"`
	}
	if err := json.Unmarshal([]byte(out), &ts); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if ts.XVar != "DATE" {
		t.Fatalf("expected DATE axis, got %q", ts.XVar)
	}
	if len(ts.Metrics) != 1 || ts.Metrics[0].N != 2 {
		t.Fatalf("expected one metrics record over 2 points, got %+v", ts.Metrics)
	}
	if d := ts.Metrics[0].RMSE - 35.36; d > 0.01 || d < -0.01 {
		t.Fatalf("unexpected RMSE %.4f", ts.Metrics[0].RMSE)
	}
}

func TestCLI_TimeSeriesText(t *testing.T) {
	setupHome(t)
	out := runCmd(t, "timeseries", "-f", "Maize", "-e", "UFGA8201.MZX", "-y", "CWAD,LAID")
	for _, want := range []string{"Simulated", "Observed", "scale:", "RMSE"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got:\n%s", want, out)
		}
	}
	out = runCmd(t, "metrics", "-f", "Maize", "-e", "UFGA8201.MZX", "-y", "CWAD")
	if !strings.Contains(out, "D-STAT") {
		t.Fatalf("expected metrics table, got:\n%s", out)
	}
}

func TestCLI_UnknownFolder(t *testing.T) {
	setupHome(t)
	_, err := execCmd("timeseries", "-f", "Rice", "-y", "CWAD")
	if err == nil || !strings.Contains(err.Error(), "folders.Rice") {
		t.Fatalf("expected configuration hint, got %v", err)
	}
}

func TestCLI_Scatter(t *testing.T) {
	setupHome(t)
	out := runCmd(t, "scatter", "-f", "Maize", "--list-pairs")
	if !strings.Contains(out, "HWAMS") || !strings.Contains(out, "CWAMM") {
		t.Fatalf("expected both pairs listed, got:\n%s", out)
	}
	out = runCmd(t, "scatter", "-f", "Maize", "--pair", "HWAM", "--json")
	var sc struct {
		Rows   int `json:"rows"`
		Cols   int `json:"cols"`
		Panels []struct {
			Metrics struct {
				N    int     `json:"n"`
				RMSE float64 `json:"rmse"`
			} `json:"metrics"`
		} `json:"panels"`
	}
	if err := json.Unmarshal([]byte(out), &sc); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	if sc.Rows != 1 || sc.Cols != 1 || len(sc.Panels) != 1 {
		t.Fatalf("expected a single panel, got %+v", sc)
	}
	if sc.Panels[0].Metrics.N != 2 || sc.Panels[0].Metrics.RMSE != 100 {
		t.Fatalf("unexpected panel metrics %+v", sc.Panels[0].Metrics)
	}
	if _, err := execCmd("scatter", "-f", "Maize", "--pair", "LAIX"); err == nil {
		t.Fatalf("expected unknown pair to fail")
	}
}

func TestCLI_ViewLifecycle(t *testing.T) {
	home, _ := setupHome(t)
	runCmd(t, "view", "save", "growth", "-f", "Maize", "-e", "UFGA8201.MZX", "-y", "CWAD")
	runCmd(t, "view", "save", "yield", "--kind", "scatter", "-f", "Maize", "--pair", "HWAM")
	if _, err := os.Stat(filepath.Join(home, ".dssatview", "views", "growth.json")); err != nil {
		t.Fatalf("expected view file: %v", err)
	}

	out := runCmd(t, "view", "list")
	if !strings.Contains(out, "growth [timeseries]") || !strings.Contains(out, "yield [scatter]") {
		t.Fatalf("expected both views listed, got:\n%s", out)
	}
	out = runCmd(t, "view", "run", "growth")
	if !strings.Contains(out, "RMSE") {
		t.Fatalf("expected metrics from view run, got:\n%s", out)
	}
	out = runCmd(t, "view", "run", "yield")
	if !strings.Contains(out, "Grid 1x1") {
		t.Fatalf("expected scatter grid from view run, got:\n%s", out)
	}

	runCmd(t, "view", "delete", "growth")
	if _, err := execCmd("view", "show", "growth"); err == nil {
		t.Fatalf("expected deleted view to be gone")
	}
	if _, err := execCmd("view", "save", "bad name", "-f", "Maize", "-y", "CWAD"); err == nil {
		t.Fatalf("expected invalid view name to fail")
	}
}

func TestCLI_InspectAndVars(t *testing.T) {
	home, maize := setupHome(t)
	out := runCmd(t, "inspect", filepath.Join(maize, "PlantGro.OUT"), "--group-by", "TRNO")
	if !strings.Contains(out, "## Columns") || !strings.Contains(out, "CWAD") {
		t.Fatalf("expected summary, got:\n%s", out)
	}
	dest := filepath.Join(home, "summary.md")
	runCmd(t, "inspect", filepath.Join(maize, "UFGA8201.MZT"), "-o", dest)
	if b, err := os.ReadFile(dest); err != nil || !strings.Contains(string(b), "Rows: 2") {
		t.Fatalf("expected written summary, got %q (%v)", b, err)
	}

	out = runCmd(t, "vars", "-f", "Maize")
	if !strings.Contains(out, "LAID") || strings.Contains(out, "TRNO") {
		t.Fatalf("expected numeric variables only, got:\n%s", out)
	}
}

func TestCLI_Folders(t *testing.T) {
	setupHome(t)
	out := runCmd(t, "folders", "show", "maize")
	if !strings.Contains(out, "PlantGro.OUT") || !strings.Contains(out, "EVALUATE.OUT") {
		t.Fatalf("expected outputs listed, got:\n%s", out)
	}
}
