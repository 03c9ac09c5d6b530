package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/KaramelBytes/dssatview/internal/metrics"
)

func TestPrintMetricsTable(t *testing.T) {
	recs := []metrics.Record{
		{Variable: "CWAD", Label: "Tops wt", Treatment: "1", TreatmentName: "Rainfed", N: 4, RMSE: 35.36, NRMSE: 3.1, R2: 0.9812, DStat: 0.97, R2Reported: true},
		{Variable: "LAID", Label: "LAI", Treatment: "2", N: 1},
	}
	var buf bytes.Buffer
	printMetrics(&buf, recs)
	out := buf.String()
	for _, want := range []string{"VARIABLE", "D-STAT", "NOTE", "Tops wt", "1 (Rainfed)", "35.36", "0.981", "too few points"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table, got:\n%s", want, out)
		}
	}
	lines := strings.Split(out, "\n")
	var lai string
	for _, l := range lines {
		if strings.Contains(l, "LAI ") {
			lai = l
		}
	}
	if lai == "" {
		t.Fatalf("no LAI row in:\n%s", out)
	}
	if !strings.Contains(lai, " - ") {
		t.Fatalf("expected hidden R² shown as '-', got %q", lai)
	}
	if strings.Contains(strings.SplitN(out, "LAI ", 2)[0], "too few points") {
		t.Fatalf("low-confidence note attached to the wrong row:\n%s", out)
	}

	buf.Reset()
	printMetrics(&buf, nil)
	if !strings.Contains(buf.String(), "No paired observations") {
		t.Fatalf("expected empty message, got %q", buf.String())
	}
}
