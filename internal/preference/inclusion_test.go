package preference

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"docscribe/internal/types"
)

func TestIsFileIncludedDirectories(t *testing.T) {
	ex := DirectoryExclusion{ExcludeDirs: []string{"src/vendor/"}}
	cases := []struct {
		path string
		want bool
	}{
		{"src/vendor/x.py", false},
		{"./src\\vendor\\deep\\y.py", false},
		{"src/vendor", false},
		{"src/vendored/x.py", true},
		{"other/src/vendor/x.py", true},
		{"main.py", true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsFileIncluded(ex, "", tc.path), tc.path)
	}
}

func TestIsFileIncludedFiles(t *testing.T) {
	ex := DirectoryExclusion{ExcludeFiles: []string{"a/b.py", "secret.py"}}

	assert.False(t, IsFileIncluded(ex, "b.py", "a/b.py"))
	assert.False(t, IsFileIncluded(ex, "b.py", "x/a/b.py"))
	assert.False(t, IsFileIncluded(ex, "b.py", "c/b.py"), "basename match excludes")
	assert.False(t, IsFileIncluded(ex, "secret.py", ""), "name is used when path is empty")
	assert.True(t, IsFileIncluded(ex, "c.py", "a/c.py"))
}

func TestIsFileIncludedEmptyExclusion(t *testing.T) {
	ex := DirectoryExclusion{ExcludeFiles: []string{"", "  "}, ExcludeDirs: []string{""}}
	assert.True(t, IsFileIncluded(ex, "a.py", "pkg/a.py"))
}

func TestIncludedFilesAndContent(t *testing.T) {
	files := []types.FileRecord{
		{Path: "pkg/a.py", Functions: []types.FunctionInfo{{Name: "f"}}},
		{Path: "pkg/empty.py"},
		{Path: "tests/test_a.py", Functions: []types.FunctionInfo{{Name: "test_f"}}},
	}
	ex := DirectoryExclusion{ExcludeDirs: []string{"tests"}}

	included := IncludedFiles(ex, files)
	assert.Len(t, included, 2)

	withContent := FilesWithContent(ex, files)
	if assert.Len(t, withContent, 1) {
		assert.Equal(t, "pkg/a.py", withContent[0].Key())
	}
}

func TestEntryForPrefersPathOverBasename(t *testing.T) {
	list := []PerFileExclusion{
		{Filename: "other/util.py", ExcludeFunctions: []string{"x"}},
		{Filename: "pkg/util.py", ExcludeFunctions: []string{"y"}},
	}

	e, ok := EntryFor(list, types.FileRecord{Path: "src/pkg/util.py"})
	assert.True(t, ok)
	assert.Equal(t, "pkg/util.py", e.Filename)

	e, ok = EntryFor(list, types.FileRecord{Path: "lib/util.py"})
	assert.True(t, ok)
	assert.Equal(t, "other/util.py", e.Filename, "first basename match")

	_, ok = EntryFor(list, types.FileRecord{Path: "lib/none.py"})
	assert.False(t, ok)
}
