package preference

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StepFile is a wizard run written down as YAML, for `prefs apply` and the
// watched preferences file of `serve`:
//
//	directories:
//	  exclude_dirs: [tests]
//	  exclude_files: [setup.py]
//	per_file:
//	  - filename: pkg/core.py
//	    exclude_functions: [helper]
//	format: Markdown
//	settings:
//	  title: Core docs
//
// Sections that are absent are skipped.
type StepFile struct {
	Directories *DirectoryExclusion `yaml:"directories"`
	PerFile     []PerFileExclusion  `yaml:"per_file"`
	Settings    map[string]any      `yaml:"settings"`
	Format      string              `yaml:"format"`
}

func ParseStepFile(raw []byte) (StepFile, error) {
	var f StepFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return StepFile{}, fmt.Errorf("parse step file: %w", err)
	}
	if f.Format != "" {
		if _, err := ParseFormat(f.Format); err != nil {
			return StepFile{}, err
		}
	}
	return f, nil
}

func LoadStepFile(path string) (StepFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return StepFile{}, fmt.Errorf("read step file: %w", err)
	}
	return ParseStepFile(raw)
}

// Steps lists the wizard steps the file fills in, in order.
func (f StepFile) Steps() []int {
	var out []int
	if f.Directories != nil {
		out = append(out, StepDirectories)
	}
	if f.PerFile != nil {
		out = append(out, StepPerFile)
	}
	if f.Settings != nil || f.Format != "" {
		out = append(out, StepSettings)
	}
	return out
}

// Apply completes each step present in the file through the store, stopping
// at the first failure. Step 0 runs first so later steps are unlocked.
func (f StepFile) Apply(ctx context.Context, s *Store) ([]SaveResult, error) {
	var results []SaveResult
	for _, step := range f.Steps() {
		var data StepData
		switch step {
		case StepDirectories:
			data.Directories = *f.Directories
		case StepPerFile:
			data.PerFile = f.PerFile
		case StepSettings:
			data.Settings = f.Settings
			data.Format = Format(f.Format).Canonical()
		}
		res, err := s.CompleteStep(ctx, step, data)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", step, StepName(step), err)
		}
		results = append(results, res)
	}
	return results, nil
}
