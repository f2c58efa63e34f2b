package preference

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullStepFile = `
directories:
  exclude_dirs: [tests]
  exclude_files: [setup.py]
per_file:
  - filename: pkg/core.py
    exclude_functions: [helper]
  - filename: pkg/empty.py
format: md
settings:
  title: Core docs
`

func TestParseStepFile(t *testing.T) {
	f, err := ParseStepFile([]byte(fullStepFile))
	require.NoError(t, err)
	assert.Equal(t, []int{StepDirectories, StepPerFile, StepSettings}, f.Steps())
	assert.Equal(t, []string{"tests"}, f.Directories.ExcludeDirs)

	f, err = ParseStepFile([]byte("format: Markdown\n"))
	require.NoError(t, err)
	assert.Equal(t, []int{StepSettings}, f.Steps())

	_, err = ParseStepFile([]byte("format: docx\n"))
	assert.Error(t, err)

	_, err = ParseStepFile([]byte("directories: [\n"))
	assert.Error(t, err)
}

func TestStepFileApply(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fullStepFile), 0o644))
	f, err := LoadStepFile(path)
	require.NoError(t, err)

	remote := &fakeRemote{}
	store := New(remote)
	ctx := context.Background()
	_, err = store.Initialize(ctx, "p1")
	require.NoError(t, err)

	results, err := f.Apply(ctx, store)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Created)

	prefs := store.Preferences()
	assert.Equal(t, []string{"tests"}, prefs.DirectoryExclusion.ExcludeDirs)
	require.Len(t, prefs.PerFileExclusion, 1)
	assert.Equal(t, "pkg/core.py", prefs.PerFileExclusion[0].Filename)
	assert.Equal(t, FormatMarkdown, prefs.Format)
	assert.Equal(t, "Core docs", prefs.ProjectSettings["title"])
	assert.Equal(t, []int{0, 1, 2}, store.Steps().CompletedList())
}

func TestStepFileApplyLockedWithoutDirectories(t *testing.T) {
	f, err := ParseStepFile([]byte("per_file: []\n"))
	require.NoError(t, err)

	store := New(&fakeRemote{})
	ctx := context.Background()
	_, err = store.Initialize(ctx, "p1")
	require.NoError(t, err)

	results, err := f.Apply(ctx, store)
	assert.ErrorIs(t, err, ErrStepLocked)
	assert.Empty(t, results)
}
