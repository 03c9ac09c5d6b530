package render

import (
	"fmt"
	"io"
	"math"
	"strings"
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// TextSurface collects series and prints one sparkline row per series. It
// buffers between BeginUpdate and EndUpdate.
type TextSurface struct {
	w       io.Writer
	width   int
	order   []string
	series  map[string]*Series
	updates int
	depth   int
}

// NewTextSurface writes to w with sparklines of the given width.
func NewTextSurface(w io.Writer, width int) *TextSurface {
	if width <= 0 {
		width = 48
	}
	return &TextSurface{w: w, width: width, series: map[string]*Series{}}
}

func (t *TextSurface) Clear() {
	t.order = nil
	t.series = map[string]*Series{}
}

func (t *TextSurface) add(s Series, line bool) {
	id := string(s.Source) + "|" + s.Variable + "|" + s.Treatment
	if cur, ok := t.series[id]; ok {
		// line chunks repeat the previous chunk's last point
		if line && len(cur.X) > 0 && len(s.X) > 0 && cur.X[len(cur.X)-1] == s.X[0] {
			s.X, s.Y = s.X[1:], s.Y[1:]
		}
		cur.X = append(cur.X, s.X...)
		cur.Y = append(cur.Y, s.Y...)
		return
	}
	cp := s
	cp.X = append([]float64(nil), s.X...)
	cp.Y = append([]float64(nil), s.Y...)
	t.series[id] = &cp
	t.order = append(t.order, id)
}

func (t *TextSurface) AddLine(s Series)   { t.add(s, true) }
func (t *TextSurface) AddPoints(s Series) { t.add(s, false) }

func (t *TextSurface) BeginUpdate() { t.depth++ }

func (t *TextSurface) EndUpdate() {
	if t.depth > 0 {
		t.depth--
	}
	if t.depth == 0 {
		t.updates++
		t.Flush()
	}
}

// Updates counts completed BeginUpdate/EndUpdate cycles.
func (t *TextSurface) Updates() int { return t.updates }

// Flush prints every collected series.
func (t *TextSurface) Flush() {
	for _, id := range t.order {
		s := t.series[id]
		name := s.Label
		if name == "" {
			name = s.Variable
		}
		fmt.Fprintf(t.w, "%-9s %-20s %-16s n=%-5d %s\n", s.Source.Title(), trunc(name, 20), trunc(s.TreatmentName, 16), s.Len(), Sparkline(s.Y, t.width))
	}
}

func trunc(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Sparkline renders ys as a row of block characters at most width wide.
func Sparkline(ys []float64, width int) string {
	var vals []float64
	for _, v := range ys {
		if !math.IsNaN(v) {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 || width <= 0 {
		return ""
	}
	if len(vals) > width {
		// bucket means
		out := make([]float64, width)
		for i := range out {
			from := i * len(vals) / width
			to := (i + 1) * len(vals) / width
			var sum float64
			for _, v := range vals[from:to] {
				sum += v
			}
			out[i] = sum / float64(to-from)
		}
		vals = out
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	var b strings.Builder
	for _, v := range vals {
		idx := len(sparkRunes) / 2
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}
