package preference

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeDropsEmptyEntries(t *testing.T) {
	in := []PerFileExclusion{
		{Filename: "a/b.py", ExcludeFunctions: []string{"f", "g"}},
		{Filename: "c.py"},
		{Filename: "", ExcludeFunctions: []string{"x"}},
		{Filename: "./d//e.py/", ExcludeClasses: []string{"K"}},
		{Filename: "f.py", ExcludeFunctions: []string{}, ExcludeClasses: []string{}, ExcludeMethods: []string{}},
	}
	want := []PerFileExclusion{
		{Filename: "a/b.py", ExcludeFunctions: []string{"f", "g"}, ExcludeClasses: []string{}, ExcludeMethods: []string{}},
		{Filename: "d/e.py", ExcludeFunctions: []string{}, ExcludeClasses: []string{"K"}, ExcludeMethods: []string{}},
	}
	if diff := cmp.Diff(want, Sanitize(in)); diff != "" {
		t.Fatalf("Sanitize mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitizeNeverNil(t *testing.T) {
	out := Sanitize(nil)
	require.NotNil(t, out)
	assert.Empty(t, out)
}

func TestAdoptFillsMissingFields(t *testing.T) {
	out := Adopt(Preferences{}, FormatPDF, 2)

	assert.NotNil(t, out.DirectoryExclusion.ExcludeFiles)
	assert.NotNil(t, out.DirectoryExclusion.ExcludeDirs)
	assert.NotNil(t, out.PerFileExclusion)
	assert.NotNil(t, out.ProjectSettings)
	assert.Equal(t, FormatPDF, out.Format)
	assert.Equal(t, 2, out.Step())
}

func TestAdoptFormatPrecedence(t *testing.T) {
	root := Adopt(Preferences{Format: "markdown", ProjectSettings: map[string]any{"format": "PDF"}}, FormatHTML, 0)
	assert.Equal(t, FormatMarkdown, root.Format)

	settings := Adopt(Preferences{ProjectSettings: map[string]any{"format": "pdf"}}, FormatHTML, 0)
	assert.Equal(t, FormatPDF, settings.Format)

	unknown := Adopt(Preferences{Format: "docx"}, FormatPDF, 0)
	assert.Equal(t, FormatHTML, unknown.Format)
}

func TestResetRequired(t *testing.T) {
	old := DirectoryExclusion{ExcludeFiles: []string{"a.py", "b.py"}, ExcludeDirs: []string{"tests"}}

	assert.False(t, ResetRequired(old, DirectoryExclusion{
		ExcludeFiles: []string{"./b.py", "a.py"},
		ExcludeDirs:  []string{"tests/"},
	}), "order and spelling do not matter")
	assert.True(t, ResetRequired(old, DirectoryExclusion{
		ExcludeFiles: []string{"a.py"},
		ExcludeDirs:  []string{"tests"},
	}), "removing one file resets")
	assert.True(t, ResetRequired(old, DirectoryExclusion{
		ExcludeFiles: []string{"a.py", "b.py"},
		ExcludeDirs:  []string{"tests", "docs"},
	}))
}

func TestSanitizeDocument(t *testing.T) {
	out := SanitizeDocument(Preferences{
		DirectoryExclusion: DirectoryExclusion{ExcludeDirs: []string{"./vendor/", ""}},
	})
	assert.Equal(t, []string{"vendor"}, out.DirectoryExclusion.ExcludeDirs)
	assert.Equal(t, []string{}, out.DirectoryExclusion.ExcludeFiles)
	assert.Equal(t, FormatHTML, out.Format)
	assert.Equal(t, 0, out.Step())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"html": FormatHTML, "PDF": FormatPDF, "md": FormatMarkdown, " Markdown ": FormatMarkdown} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("docx")
	assert.Error(t, err)
	assert.Equal(t, "md", FormatMarkdown.Ext())
}

func TestDocFormat(t *testing.T) {
	p := Defaults()
	p.Format = FormatPDF
	assert.Equal(t, FormatPDF, p.DocFormat())
	p.ProjectSettings["format"] = "Markdown"
	assert.Equal(t, FormatMarkdown, p.DocFormat(), "settings win over the root field")
}
