package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/KaramelBytes/dssatview/internal/table"
)

// CSV reads comma, semicolon or tab separated files with a header row.
type CSV struct {
	// Delimiter overrides sniffing when non-zero.
	Delimiter rune
}

func (CSV) Name() string { return "csv" }

func (CSV) CanRead(path string) bool { return hasExt(path, ".csv", ".tsv") }

func (c CSV) Read(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	delim := c.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, f)
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind csv: %w", err)
		}
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim
	r.Comment = '!'

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return table.MustNew(), nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	header = append([]string(nil), header...)
	var rows [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(rows)+2, err)
		}
		if blank(rec) {
			continue
		}
		rows = append(rows, rec)
	}
	return table.FromRecords(header, rows)
}

func blank(rec []string) bool {
	for _, s := range rec {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

// sniffDelimiter picks tab for .tsv, else whichever of ',', ';', '\t' is
// most frequent on the first line.
func sniffDelimiter(path string, r io.Reader) rune {
	if hasExt(path, ".tsv") {
		return '\t'
	}
	buf := make([]byte, 4096)
	n, _ := io.ReadFull(r, buf)
	line := string(buf[:n])
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if c := strings.Count(line, string(d)); c > bestN {
			best, bestN = d, c
		}
	}
	return best
}
