package dssat

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Crop is one entry of the crop and weed species table joined with its
// data directory.
type Crop struct {
	Code string `json:"code"`
	Name string `json:"name"`
	Dir  string `json:"dir,omitempty"`
}

const cropSection = "*Crop and Weed Species"

// ParseDetailCDE reads the crop section of DETAIL.CDE. Codes are cut to two
// characters; rows without a code or a name are skipped.
func ParseDetailCDE(r io.Reader) ([]Crop, error) {
	sc := bufio.NewScanner(r)
	var (
		out []Crop
		in  bool
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.Contains(line, cropSection):
			in = true
			continue
		case !in || strings.Contains(line, "@CDE"):
			continue
		case strings.HasPrefix(line, "*"):
			return out, sc.Err()
		case strings.TrimSpace(line) == "":
			continue
		}
		code := strings.TrimSpace(field(line, 0, 8))
		name := strings.TrimSpace(field(line, 8, 72))
		if code == "" || name == "" {
			continue
		}
		if len(code) > 2 {
			code = code[:2]
		}
		out = append(out, Crop{Code: code, Name: name})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan detail.cde: %w", err)
	}
	if !in {
		return nil, fmt.Errorf("section %q not found", cropSection)
	}
	return out, nil
}

// ParseDSSATPro reads "<CC>D <dir>" lines of DSSATPRO.L48 into a code to
// directory map. Windows drive spacing ("C: \DSSAT48") is collapsed and
// separators become '/'.
func ParseDSSATPro(r io.Reader) (map[string]string, error) {
	sc := bufio.NewScanner(r)
	out := map[string]string{}
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		key, rest, ok := strings.Cut(line, " ")
		if !ok || !strings.HasSuffix(key, "D") || len(key) < 2 {
			continue
		}
		dir := strings.TrimSpace(rest)
		dir = strings.ReplaceAll(dir, ": ", ":")
		dir = strings.ReplaceAll(dir, `\`, "/")
		code := strings.TrimSuffix(key, "D")
		if _, dup := out[code]; !dup {
			out[code] = dir
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan dssatpro: %w", err)
	}
	return out, nil
}

func field(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	if to > len(line) {
		to = len(line)
	}
	return line[from:to]
}

// rebase maps a drive-letter directory such as "C:/DSSAT48/Maize" onto base
// ("<base>/Maize") when running where drive paths are meaningless.
func rebase(dir, base string, windows bool) string {
	if windows || base == "" || len(dir) < 2 || dir[1] != ':' {
		return dir
	}
	rest := strings.TrimPrefix(dir[2:], "/")
	if _, tail, ok := strings.Cut(rest, "/"); ok {
		return filepath.Join(base, filepath.FromSlash(tail))
	}
	return base
}

func parseFile[T any](p string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(p)
	if err != nil {
		return zero, err
	}
	defer f.Close()
	return parse(f)
}
