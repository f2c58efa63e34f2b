// Package preference holds a project's documentation preferences: which
// files, directories, functions, classes and methods are excluded, the output
// format, and the three-step wizard that edits them.
package preference

import (
	"fmt"
	"strings"
)

// Format is the rendered documentation format.
type Format string

const (
	FormatHTML     Format = "HTML"
	FormatPDF      Format = "PDF"
	FormatMarkdown Format = "Markdown"

	DefaultFormat = FormatHTML
)

// ParseFormat accepts any casing of html, pdf, markdown or md.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html":
		return FormatHTML, nil
	case "pdf":
		return FormatPDF, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	}
	return "", fmt.Errorf("unknown format %q (want HTML, PDF or Markdown)", s)
}

// Canonical maps recognised spellings to their constant, "" to "", and
// anything unrecognised to DefaultFormat.
func (f Format) Canonical() Format {
	if strings.TrimSpace(string(f)) == "" {
		return ""
	}
	parsed, err := ParseFormat(string(f))
	if err != nil {
		return DefaultFormat
	}
	return parsed
}

// Ext is the file extension used for downloaded revisions.
func (f Format) Ext() string {
	switch f.Canonical() {
	case FormatPDF:
		return "pdf"
	case FormatMarkdown:
		return "md"
	}
	return "html"
}

// DirectoryExclusion lists excluded files and directory prefixes.
type DirectoryExclusion struct {
	ExcludeFiles []string `json:"exclude_files" yaml:"exclude_files"`
	ExcludeDirs  []string `json:"exclude_dirs" yaml:"exclude_dirs"`
}

// PerFileExclusion lists the functions, classes and methods omitted from one
// included file.
type PerFileExclusion struct {
	Filename         string   `json:"filename" yaml:"filename"`
	ExcludeFunctions []string `json:"exclude_functions" yaml:"exclude_functions"`
	ExcludeClasses   []string `json:"exclude_classes" yaml:"exclude_classes"`
	ExcludeMethods   []string `json:"exclude_methods" yaml:"exclude_methods"`
}

// Empty reports whether the entry excludes nothing.
func (e PerFileExclusion) Empty() bool {
	return len(e.ExcludeFunctions) == 0 && len(e.ExcludeClasses) == 0 && len(e.ExcludeMethods) == 0
}

// Preferences is the remote preferences document of one project.
type Preferences struct {
	DirectoryExclusion DirectoryExclusion `json:"directory_exclusion" yaml:"directory_exclusion"`
	PerFileExclusion   []PerFileExclusion `json:"per_file_exclusion" yaml:"per_file_exclusion"`
	ProjectSettings    map[string]any     `json:"project_settings" yaml:"project_settings"`
	Format             Format             `json:"format,omitempty" yaml:"format,omitempty"`
	CurrentStep        *int               `json:"current_Step,omitempty" yaml:"current_step,omitempty"`
}

// Defaults is the document used when a project has no preferences yet and
// after an explicit reset.
func Defaults() Preferences {
	step := 0
	return Preferences{
		DirectoryExclusion: DirectoryExclusion{ExcludeFiles: []string{}, ExcludeDirs: []string{}},
		PerFileExclusion:   []PerFileExclusion{},
		ProjectSettings:    map[string]any{},
		Format:             DefaultFormat,
		CurrentStep:        &step,
	}
}

// Step is the recorded wizard step, 0 when unset.
func (p Preferences) Step() int {
	if p.CurrentStep == nil {
		return 0
	}
	return *p.CurrentStep
}

// WithStep returns a copy of p with current_Step set.
func (p Preferences) WithStep(step int) Preferences {
	out := p.Clone()
	out.CurrentStep = &step
	return out
}

// SettingsFormat is the format stored under project_settings, if any.
func (p Preferences) SettingsFormat() Format {
	if p.ProjectSettings == nil {
		return ""
	}
	switch v := p.ProjectSettings["format"].(type) {
	case string:
		return Format(v).Canonical()
	case Format:
		return v.Canonical()
	}
	return ""
}

// DocFormat is the effective output format: project_settings.format, then
// the root format, then HTML.
func (p Preferences) DocFormat() Format {
	if f := p.SettingsFormat(); f != "" {
		return f
	}
	if f := p.Format.Canonical(); f != "" {
		return f
	}
	return DefaultFormat
}

// Clone deep-copies the lists and shallow-copies the settings map.
func (p Preferences) Clone() Preferences {
	out := Preferences{
		DirectoryExclusion: DirectoryExclusion{
			ExcludeFiles: cloneStrings(p.DirectoryExclusion.ExcludeFiles),
			ExcludeDirs:  cloneStrings(p.DirectoryExclusion.ExcludeDirs),
		},
		Format: p.Format,
	}
	if p.PerFileExclusion != nil {
		out.PerFileExclusion = make([]PerFileExclusion, len(p.PerFileExclusion))
		for i, e := range p.PerFileExclusion {
			out.PerFileExclusion[i] = PerFileExclusion{
				Filename:         e.Filename,
				ExcludeFunctions: cloneStrings(e.ExcludeFunctions),
				ExcludeClasses:   cloneStrings(e.ExcludeClasses),
				ExcludeMethods:   cloneStrings(e.ExcludeMethods),
			}
		}
	}
	if p.ProjectSettings != nil {
		out.ProjectSettings = make(map[string]any, len(p.ProjectSettings))
		for k, v := range p.ProjectSettings {
			out.ProjectSettings[k] = v
		}
	}
	if p.CurrentStep != nil {
		step := *p.CurrentStep
		out.CurrentStep = &step
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append(make([]string, 0, len(in)), in...)
}
