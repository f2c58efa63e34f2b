package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docscribe/internal/types"
)

func countFixture() []types.FileRecord {
	return []types.FileRecord{
		{
			Path:      "a/b.py",
			Functions: []types.FunctionInfo{{Name: "f"}, {Name: "g"}, {Name: "h"}},
			Classes: []types.ClassInfo{
				{Name: "C", Methods: []types.FunctionInfo{{Name: "m1"}, {Name: "m2"}}},
				{Name: "D", Methods: []types.FunctionInfo{{Name: "m3"}}},
			},
		},
		{Path: "c.py", Functions: []types.FunctionInfo{{Name: "k"}}},
		{Path: "vendor/v.py", Functions: []types.FunctionInfo{{Name: "z"}}},
	}
}

func TestCountItems(t *testing.T) {
	prefs := Defaults()
	prefs.DirectoryExclusion.ExcludeDirs = []string{"vendor"}
	prefs.PerFileExclusion = []PerFileExclusion{{
		Filename:         "a/b.py",
		ExcludeFunctions: []string{"f", "g"},
		ExcludeClasses:   []string{"C"},
		ExcludeMethods:   []string{"m3"},
	}}

	got := CountItems(prefs, countFixture())

	assert.Equal(t, Tally{Total: 3, Included: 2, Excluded: 1}, got.Files)
	assert.Equal(t, Tally{Total: 4, Included: 2, Excluded: 2}, got.Functions)
	assert.Equal(t, Tally{Total: 2, Included: 1, Excluded: 1}, got.Classes)
	assert.Equal(t, Tally{Total: 3, Included: 0, Excluded: 3}, got.Methods)
	assert.Equal(t, Tally{Total: 12, Included: 5, Excluded: 7}, got.Overall)
}

func TestCountItemsExcludedClassHidesMethods(t *testing.T) {
	prefs := Defaults()
	prefs.PerFileExclusion = []PerFileExclusion{{Filename: "b.py", ExcludeClasses: []string{"C"}}}

	got := CountItems(prefs, countFixture()[:1])

	// m1 and m2 have no method-level exclusion but belong to C.
	assert.Equal(t, 1, got.Methods.Included)
	assert.Equal(t, 3, got.Methods.Total)
}

func TestCountItemsNoFiles(t *testing.T) {
	got := CountItems(Defaults(), nil)
	assert.Equal(t, Counts{}, got)
}
