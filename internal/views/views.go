// Package views persists named plot selections so they can be re-run.
package views

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/dssatview/internal/pipeline"
	"github.com/KaramelBytes/dssatview/internal/utils"
)

// Kind is the plot a view reproduces.
type Kind string

const (
	TimeSeries Kind = "timeseries"
	Scatter    Kind = "scatter"
)

// ErrNotFound is returned for views that do not exist.
var ErrNotFound = errors.New("view not found")

const ext = ".json"

var nameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// View is a saved selection.
type View struct {
	ID             string                  `json:"id"`
	Name           string                  `json:"name"`
	Kind           Kind                    `json:"kind"`
	Folder         string                  `json:"folder"`
	Files          []string                `json:"files,omitempty"`
	Experiment     string                  `json:"experiment,omitempty"`
	Treatments     []string                `json:"treatments,omitempty"`
	XVar           string                  `json:"x_var,omitempty"`
	YVars          []string                `json:"y_vars,omitempty"`
	Pairs          []pipeline.VariablePair `json:"pairs,omitempty"`
	TreatmentNames map[string]string       `json:"treatment_names,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// FromTimeSeries captures a time series request under name.
func FromTimeSeries(name string, req pipeline.TimeSeriesRequest) *View {
	return &View{
		Name:           name,
		Kind:           TimeSeries,
		Folder:         req.Folder,
		Files:          req.Files,
		Experiment:     req.Experiment,
		Treatments:     req.Treatments,
		XVar:           req.XVar,
		YVars:          req.YVars,
		TreatmentNames: req.TreatmentNames,
	}
}

// FromScatter captures a scatter request under name.
func FromScatter(name string, req pipeline.ScatterRequest) *View {
	return &View{
		Name:           name,
		Kind:           Scatter,
		Folder:         req.Folder,
		Treatments:     req.Treatments,
		Pairs:          req.Pairs,
		TreatmentNames: req.TreatmentNames,
	}
}

// TimeSeriesRequest rebuilds the request of a time series view.
func (v *View) TimeSeriesRequest() pipeline.TimeSeriesRequest {
	return pipeline.TimeSeriesRequest{
		Folder:         v.Folder,
		Files:          v.Files,
		Experiment:     v.Experiment,
		Treatments:     v.Treatments,
		XVar:           v.XVar,
		YVars:          v.YVars,
		TreatmentNames: v.TreatmentNames,
	}
}

// ScatterRequest rebuilds the request of a scatter view.
func (v *View) ScatterRequest() pipeline.ScatterRequest {
	return pipeline.ScatterRequest{
		Folder:         v.Folder,
		Treatments:     v.Treatments,
		Pairs:          v.Pairs,
		TreatmentNames: v.TreatmentNames,
	}
}

// Validate checks the name and that the view selects something to plot.
func (v *View) Validate() error {
	if !nameRe.MatchString(v.Name) {
		return fmt.Errorf("invalid view name %q: use letters, digits, '.', '_' or '-'", v.Name)
	}
	if v.Folder == "" {
		return errors.New("view folder is required")
	}
	switch v.Kind {
	case TimeSeries:
		if len(v.Files) == 0 || len(v.YVars) == 0 {
			return errors.New("time series view needs output files and y variables")
		}
	case Scatter:
		if len(v.Pairs) == 0 {
			return errors.New("scatter view needs variable pairs")
		}
	default:
		return fmt.Errorf("unknown view kind %q", v.Kind)
	}
	return nil
}

// Store keeps one JSON file per view in a directory.
type Store struct {
	dir string
}

// NewStore returns a store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store { return &Store{dir: dir} }

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(name string) string { return filepath.Join(s.dir, name+ext) }

// Save validates and writes v, assigning an ID and timestamps. Saving over
// an existing name keeps its ID and creation time.
func (s *Store) Save(v *View) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if err := utils.EnsureDir(s.dir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	now := time.Now().UTC()
	if prev, err := s.Load(v.Name); err == nil {
		v.ID, v.CreatedAt = prev.ID, prev.CreatedAt
	}
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
	data, err := utils.PrettyJSON(v)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(s.path(v.Name), data)
}

// Load reads a view by name.
func (s *Store) Load(name string) (*View, error) {
	if !nameRe.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	var v View
	if err := utils.ReadJSON(s.path(name), &v); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, err
	}
	return &v, nil
}

// List returns every readable view sorted by name. Unreadable files are
// reported in skipped.
func (s *Store) List() (out []*View, skipped []string, err error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read views dir: %w", err)
	}
	for _, e := range entries {
		name, ok := strings.CutSuffix(e.Name(), ext)
		if e.IsDir() || !ok {
			continue
		}
		v, err := s.Load(name)
		if err != nil {
			skipped = append(skipped, e.Name())
			continue
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, skipped, nil
}

// Delete removes a view.
func (s *Store) Delete(name string) error {
	if !nameRe.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err := os.Remove(s.path(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("delete view: %w", err)
	}
	return nil
}
