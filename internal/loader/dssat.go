package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/KaramelBytes/dssatview/internal/table"
)

// DSSAT reads the '@'-header block format shared by model output files
// (*.OUT) and observation files (*.??T, *.??A). Each '@' line starts a block
// whose rows run until a blank line or a '*' section line. The treatment and
// run in effect are attached as TRNO and RUN when a block lacks them.
type DSSAT struct{}

func (DSSAT) Name() string { return "dssat" }

func (DSSAT) CanRead(string) bool { return true }

func (DSSAT) Read(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return ParseDSSAT(f)
}

var (
	runRe       = regexp.MustCompile(`^\*RUN\s+(\d+)`)
	treatmentRe = regexp.MustCompile(`^\s*TREATMENT\s+(\d+)`)
	experRe     = regexp.MustCompile(`^\s*EXPERIMENT\s*:\s*(\S+)`)
)

type block struct {
	header []string
	rows   [][]string
	trno   string
	run    string
	exp    string
}

// ParseDSSAT parses '@'-header blocks from r and stacks them into one table.
func ParseDSSAT(r io.Reader) (*table.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var (
		blocks           []*block
		cur              *block
		run, trno, exper string
	)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			cur = nil
		case strings.HasPrefix(line, "!"):
		case strings.HasPrefix(line, "*"):
			cur = nil
			if m := runRe.FindStringSubmatch(line); m != nil {
				run = m[1]
				trno = ""
			}
		case strings.HasPrefix(line, "@"):
			cur = &block{header: strings.Fields(strings.TrimPrefix(line, "@")), trno: trno, run: run, exp: exper}
			blocks = append(blocks, cur)
		case cur != nil:
			cur.rows = append(cur.rows, strings.Fields(line))
		default:
			if m := treatmentRe.FindStringSubmatch(line); m != nil {
				trno = m[1]
			} else if m := experRe.FindStringSubmatch(line); m != nil {
				exper = m[1]
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	tables := make([]*table.Table, 0, len(blocks))
	for _, b := range blocks {
		if len(b.rows) == 0 {
			continue
		}
		t, err := b.table()
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if len(tables) == 0 {
		return nil, fmt.Errorf("no data blocks found")
	}
	return table.Concat(tables...)
}

func (b *block) table() (*table.Table, error) {
	t, err := table.FromRecords(b.header, b.rows)
	if err != nil {
		return nil, err
	}
	fill := func(name, val string) {
		if val == "" || t.Has(name) {
			return
		}
		vals := make([]string, t.Len())
		for i := range vals {
			vals[i] = val
		}
		if nt, err := t.With(table.NewStrings(name, table.KindText, vals)); err == nil {
			t = nt
		}
	}
	// TRT and TRNO are interchangeable keys
	if !t.Has("TRT") {
		fill("TRNO", b.trno)
	}
	fill("RUN", b.run)
	fill("EXCODE", b.exp)
	return t, nil
}
