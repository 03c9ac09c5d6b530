// Package dssat locates crop folders, experiment files and model outputs in
// a DSSAT installation.
package dssat

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ErrUnknownFolder is returned when a folder name resolves to no directory.
var ErrUnknownFolder = errors.New("unknown crop folder")

// EvaluateFile is the summary output holding simulated/measured pairs.
const EvaluateFile = "EVALUATE.OUT"

// Options locates the reference files of an installation.
type Options struct {
	Base      string
	DetailCDE string
	DSSATPro  string
	// Overrides maps folder names to directories and wins over the
	// installation files. Names match case-insensitively.
	Overrides map[string]string
	Log       *zap.Logger
}

// Resolver maps crop folder names to directories. Reference files are read
// once, on first use.
type Resolver struct {
	opt   Options
	log   *zap.Logger
	once  sync.Once
	crops []Crop
	err   error
}

// NewResolver returns a Resolver; no files are read until needed.
func NewResolver(opt Options) *Resolver {
	log := opt.Log
	if log == nil {
		log = zap.NewNop()
	}
	if opt.DetailCDE == "" && opt.Base != "" {
		opt.DetailCDE = filepath.Join(opt.Base, "DETAIL.CDE")
	}
	if opt.DSSATPro == "" && opt.Base != "" {
		opt.DSSATPro = filepath.Join(opt.Base, "DSSATPRO.L48")
	}
	return &Resolver{opt: opt, log: log}
}

func (r *Resolver) load() {
	crops, err := parseFile(r.opt.DetailCDE, ParseDetailCDE)
	if err != nil {
		r.err = fmt.Errorf("read %s: %w", filepath.Base(r.opt.DetailCDE), err)
		return
	}
	dirs, err := parseFile(r.opt.DSSATPro, ParseDSSATPro)
	if err != nil {
		// crops stay listed without directories
		r.log.Warn("crop directories unavailable", zap.String("file", r.opt.DSSATPro), zap.Error(err))
	}
	windows := runtime.GOOS == "windows"
	for i := range crops {
		if d, ok := dirs[crops[i].Code]; ok {
			crops[i].Dir = rebase(d, r.opt.Base, windows)
		}
	}
	r.crops = crops
}

// Crops returns the crop table joined with directories and overrides.
// Overrides for names not in the table are appended in name order.
func (r *Resolver) Crops() ([]Crop, error) {
	r.once.Do(r.load)
	if r.err != nil && len(r.opt.Overrides) == 0 {
		return nil, r.err
	}
	out := make([]Crop, len(r.crops))
	copy(out, r.crops)
	used := map[string]bool{}
	for i := range out {
		if d, key, ok := r.override(out[i].Name); ok {
			out[i].Dir = d
			used[key] = true
		}
	}
	var extra []string
	for k := range r.opt.Overrides {
		if !used[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		out = append(out, Crop{Name: k, Dir: r.opt.Overrides[k]})
	}
	return out, nil
}

func (r *Resolver) override(name string) (dir, key string, ok bool) {
	for k, v := range r.opt.Overrides {
		if strings.EqualFold(k, name) {
			return v, k, true
		}
	}
	return "", "", false
}

// Folders lists the folder names in table order.
func (r *Resolver) Folders() ([]string, error) {
	crops, err := r.Crops()
	if err != nil {
		return nil, err
	}
	out := make([]string, len(crops))
	for i, c := range crops {
		out[i] = c.Name
	}
	return out, nil
}

// Crop finds a folder by name or two-letter code, case-insensitively.
func (r *Resolver) Crop(folder string) (Crop, error) {
	crops, err := r.Crops()
	if err != nil {
		return Crop{}, err
	}
	for _, c := range crops {
		if strings.EqualFold(c.Name, folder) || (c.Code != "" && strings.EqualFold(c.Code, folder)) {
			if c.Dir == "" {
				return Crop{}, fmt.Errorf("%w: %s has no directory", ErrUnknownFolder, folder)
			}
			return c, nil
		}
	}
	return Crop{}, fmt.Errorf("%w: %s", ErrUnknownFolder, folder)
}

// Resolve returns the directory of a folder.
func (r *Resolver) Resolve(folder string) (string, error) {
	c, err := r.Crop(folder)
	if err != nil {
		return "", err
	}
	return c.Dir, nil
}

// Experiments lists the experiment files of a folder, sorted by file name.
func (r *Resolver) Experiments(folder string) ([]Experiment, error) {
	c, err := r.Crop(folder)
	if err != nil {
		return nil, err
	}
	pattern := "*.??X"
	if c.Code != "" {
		pattern = "*." + strings.ToUpper(c.Code) + "X"
	}
	files, err := globFold(c.Dir, pattern)
	if err != nil {
		return nil, err
	}
	out := make([]Experiment, 0, len(files))
	for _, f := range files {
		title, err := parseFile(filepath.Join(c.Dir, f), ParseExperimentTitle)
		if err != nil {
			r.log.Warn("experiment title unreadable", zap.String("file", f), zap.Error(err))
		}
		out = append(out, Experiment{File: f, Code: strings.TrimSuffix(f, filepath.Ext(f)), Title: title})
	}
	return out, nil
}

// TreatmentNames reads treatment names from an experiment file of a folder.
func (r *Resolver) TreatmentNames(folder, experiment string) (map[string]string, error) {
	dir, err := r.Resolve(folder)
	if err != nil {
		return nil, err
	}
	p := filepath.Join(dir, experiment)
	names, err := parseFile(p, ParseTreatments)
	if err != nil {
		return nil, fmt.Errorf("read treatments %s: %w", experiment, err)
	}
	return names, nil
}

// ObservedFile returns the observation file "<CODE>.<CC>T" paired with an
// experiment file such as "UFGA8201.MZX".
func (r *Resolver) ObservedFile(folder, experiment string) (string, error) {
	dir, err := r.Resolve(folder)
	if err != nil {
		return "", err
	}
	ext := filepath.Ext(experiment)
	if len(ext) != 4 {
		return "", fmt.Errorf("experiment file %q has no crop extension", experiment)
	}
	name := strings.TrimSuffix(experiment, ext) + strings.ToUpper(ext[:3]) + "T"
	matches, err := globFold(dir, name)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("observed file %s: %w", name, os.ErrNotExist)
	}
	return filepath.Join(dir, matches[0]), nil
}

// EvaluatePath returns the path of EVALUATE.OUT in a folder.
func (r *Resolver) EvaluatePath(folder string) (string, error) {
	dir, err := r.Resolve(folder)
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, EvaluateFile)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("%s: %w", EvaluateFile, err)
	}
	return p, nil
}

// Outputs lists the *.OUT files of a folder, sorted.
func (r *Resolver) Outputs(folder string) ([]string, error) {
	dir, err := r.Resolve(folder)
	if err != nil {
		return nil, err
	}
	return globFold(dir, "*.OUT")
}

// globFold matches base names in dir against pattern ignoring case.
func globFold(dir, pattern string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	pattern = strings.ToUpper(pattern)
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ok, err := filepath.Match(pattern, strings.ToUpper(e.Name()))
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", pattern, err)
		}
		if ok {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
