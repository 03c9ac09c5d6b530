package varinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCDE = `*DATA CODES
! comment line
@CDE   LABEL         DESCRIPTION.......................................
CWAD   Tops wt       Tops weight (kg [dm]/ha)
LAID   LAI           Leaf area index
HWAM   Yield         Yield at harvest maturity (kg [dm]/ha)
*NEXT SECTION
X
`

func TestParseDataCDE(t *testing.T) {
	ref, err := ParseDataCDE(strings.NewReader(sampleCDE))
	require.NoError(t, err)
	assert.Equal(t, Info{Label: "Tops wt", Description: "Tops weight (kg [dm]/ha)"}, ref["CWAD"])
	assert.Equal(t, "LAI", ref["LAID"].Label)
	assert.Equal(t, Info{}, ref["X"])
	_, ok := ref["@CDE"]
	assert.False(t, ok)

	_, err = ParseDataCDE(strings.NewReader("CWAD   Tops\n"))
	assert.Error(t, err)
}

func TestCatalogLoadsOncePerPath(t *testing.T) {
	calls := 0
	src := SourceFunc(func(path string) (map[string]Info, error) {
		calls++
		return map[string]Info{"CWAD": {Label: "Tops wt"}}, nil
	})
	c := NewCatalog(src, "ref")
	for i := 0; i < 3; i++ {
		info, ok := c.Lookup("cwad")
		require.True(t, ok)
		assert.Equal(t, "Tops wt", info.Label)
	}
	_, ok := c.Lookup("NOPE")
	assert.False(t, ok)
	assert.Equal(t, 1, calls)

	assert.Equal(t, "Tops wt", c.DisplayName("CWAD"))
	assert.Equal(t, "NOPE", c.DisplayName("NOPE"))

	c.Clear()
	c.Lookup("CWAD")
	assert.Equal(t, 2, calls)
}

func TestCatalogReferenceCacheBounded(t *testing.T) {
	calls := map[string]int{}
	src := SourceFunc(func(path string) (map[string]Info, error) {
		calls[path]++
		return map[string]Info{}, nil
	})
	c := NewCatalog(src, "a", WithCacheSizes(2, 0))
	c.Reference("a")
	c.Reference("b")
	c.Reference("c")
	c.Reference("a")
	assert.Equal(t, 2, calls["a"], "a was evicted by c")
	assert.Equal(t, 1, calls["b"])
}

func TestDataCDESourceFromFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "DATA.CDE")
	require.NoError(t, os.WriteFile(p, []byte(sampleCDE), 0o644))
	c := NewCatalog(nil, p)
	assert.Equal(t, "Yield", c.DisplayName("HWAM"))

	missing := NewCatalog(nil, filepath.Join(t.TempDir(), "none.cde"))
	_, ok := missing.Lookup("CWAD")
	assert.False(t, ok)
}
