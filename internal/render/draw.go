package render

import "math"

const (
	DefaultBatchSize = 5000
	DefaultMaxPoints = 2000
)

// Surface receives drawable chunks. Lines arrive as consecutive chunks that
// share their boundary point; point sets arrive as disjoint chunks.
type Surface interface {
	Clear()
	AddLine(s Series)
	AddPoints(s Series)
}

// BatchUpdatable is implemented by surfaces that can defer repainting until
// a group of additions is complete.
type BatchUpdatable interface {
	BeginUpdate()
	EndUpdate()
}

// Options bounds the work handed to a surface.
type Options struct {
	// BatchSize is the most points passed in one call; <= 0 uses the default.
	BatchSize int
	// MaxPoints downsamples simulated lines longer than this; 0 uses the
	// default and a negative value disables downsampling.
	MaxPoints int
}

// Stats describes one Draw call.
type Stats struct {
	Series      int
	Calls       int
	PointsIn    int
	PointsDrawn int
	Batched     bool
}

// Draw clears the surface and hands it every series. Surfaces implementing
// BatchUpdatable are wrapped in one BeginUpdate/EndUpdate pair.
func Draw(sf Surface, series []Series, opt Options) Stats {
	if opt.BatchSize <= 0 {
		opt.BatchSize = DefaultBatchSize
	}
	if opt.MaxPoints == 0 {
		opt.MaxPoints = DefaultMaxPoints
	}
	st := Stats{Series: len(series)}
	if bu, ok := sf.(BatchUpdatable); ok {
		bu.BeginUpdate()
		defer bu.EndUpdate()
		st.Batched = true
	}
	sf.Clear()
	for _, s := range series {
		st.PointsIn += s.Len()
		if s.Source == Simulated {
			if opt.MaxPoints > 0 && s.Len() > opt.MaxPoints {
				s.X, s.Y = Downsample(s.X, s.Y, opt.MaxPoints)
			}
			for _, chunk := range chunks(s, opt.BatchSize, true) {
				sf.AddLine(chunk)
				st.Calls++
				st.PointsDrawn += chunk.Len()
			}
			continue
		}
		for _, chunk := range chunks(s, opt.BatchSize, false) {
			sf.AddPoints(chunk)
			st.Calls++
			st.PointsDrawn += chunk.Len()
		}
	}
	return st
}

// chunks splits s into pieces of at most size points. Overlapping chunks
// repeat the last point of the previous chunk so a line stays connected.
func chunks(s Series, size int, overlap bool) []Series {
	n := s.Len()
	if n <= size {
		return []Series{s}
	}
	step := size
	if overlap && size > 1 {
		step = size - 1
	}
	var out []Series
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
		}
		c := s
		c.X = s.X[start:end]
		c.Y = s.Y[start:end]
		out = append(out, c)
		if end == n {
			break
		}
	}
	return out
}

// Downsample reduces x/y to at most threshold points with the
// largest-triangle-three-buckets method, keeping the first and last points.
// NaN points are dropped first.
func Downsample(x, y []float64, threshold int) ([]float64, []float64) {
	px := make([]float64, 0, len(x))
	py := make([]float64, 0, len(y))
	for i := range x {
		if i < len(y) && !math.IsNaN(x[i]) && !math.IsNaN(y[i]) {
			px = append(px, x[i])
			py = append(py, y[i])
		}
	}
	n := len(px)
	if threshold >= n || threshold < 3 {
		return px, py
	}
	ox := make([]float64, 0, threshold)
	oy := make([]float64, 0, threshold)
	ox, oy = append(ox, px[0]), append(oy, py[0])

	every := float64(n-2) / float64(threshold-2)
	a := 0
	for i := 0; i < threshold-2; i++ {
		// average of the next bucket
		avgStart := int(math.Floor(float64(i+1)*every)) + 1
		avgEnd := int(math.Floor(float64(i+2)*every)) + 1
		if avgEnd > n {
			avgEnd = n
		}
		var avgX, avgY float64
		cnt := avgEnd - avgStart
		for j := avgStart; j < avgEnd; j++ {
			avgX += px[j]
			avgY += py[j]
		}
		if cnt > 0 {
			avgX /= float64(cnt)
			avgY /= float64(cnt)
		}

		rangeStart := int(math.Floor(float64(i)*every)) + 1
		rangeEnd := int(math.Floor(float64(i+1)*every)) + 1
		maxArea := -1.0
		next := rangeStart
		for j := rangeStart; j < rangeEnd && j < n; j++ {
			area := math.Abs((px[a]-avgX)*(py[j]-py[a])-(px[a]-px[j])*(avgY-py[a])) * 0.5
			if area > maxArea {
				maxArea = area
				next = j
			}
		}
		ox, oy = append(ox, px[next]), append(oy, py[next])
		a = next
	}
	ox, oy = append(ox, px[n-1]), append(oy, py[n-1])
	return ox, oy
}
