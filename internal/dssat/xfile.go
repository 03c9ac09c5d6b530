package dssat

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Experiment describes one experiment (X) file in a crop directory.
type Experiment struct {
	File  string `json:"file"`
	Code  string `json:"code"`
	Title string `json:"title,omitempty"`
}

const (
	detailsPrefix    = "*EXP.DETAILS:"
	treatmentSection = "*TREATMENTS"
)

// ParseExperimentTitle returns the title from the "*EXP.DETAILS:" line, without
// the leading experiment code.
func ParseExperimentTitle(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		rest, ok := strings.CutPrefix(line, detailsPrefix)
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) <= 1 {
			return "", nil
		}
		return strings.Join(fields[1:], " "), nil
	}
	return "", sc.Err()
}

// ParseTreatments reads the treatment level and TNAME columns of the
// *TREATMENTS section of an experiment file. Names are located by the column
// span of TNAME in the '@' header line.
func ParseTreatments(r io.Reader) (map[string]string, error) {
	sc := bufio.NewScanner(r)
	out := map[string]string{}
	var (
		in         bool
		start, end = -1, -1
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case strings.HasPrefix(line, treatmentSection):
			in = true
			continue
		case !in:
			continue
		case strings.HasPrefix(line, "*"):
			return out, nil
		case strings.HasPrefix(line, "@"):
			start, end = nameSpan(line)
			continue
		case strings.TrimSpace(line) == "" || strings.HasPrefix(line, "!"):
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 || start < 0 {
			continue
		}
		out[fields[0]] = strings.TrimSpace(field(line, start, end))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan experiment: %w", err)
	}
	if !in {
		return nil, fmt.Errorf("section %q not found", treatmentSection)
	}
	return out, nil
}

// nameSpan finds the byte range of the TNAME column: from its header start to
// the start of the next header field.
func nameSpan(header string) (int, int) {
	start := strings.Index(header, "TNAME")
	if start < 0 {
		return -1, -1
	}
	i := start
	for i < len(header) && header[i] != ' ' {
		i++
	}
	for i < len(header) && header[i] == ' ' {
		i++
	}
	return start, i
}
