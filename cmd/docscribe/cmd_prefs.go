package main

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"docscribe/internal/pathutil"
	"docscribe/internal/preference"
)

func newPrefsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prefs",
		Aliases: []string{"preferences"},
		Short:   "Walk the three preference steps of a project",
		Long: `Preferences decide what the model documents.

  Step 0  files & directories   prefs exclude
  Step 1  functions & classes   prefs per-file   (needs step 0)
  Step 2  project settings      prefs settings   (needs step 0)

Every step is saved to the service immediately. Changing the excluded files
or directories of step 0 clears all per-file exclusions of step 1.`,
	}
	cmd.AddCommand(
		newPrefsShowCmd(a),
		newPrefsStatusCmd(a),
		newPrefsExcludeCmd(a),
		newPrefsPerFileCmd(a),
		newPrefsSettingsCmd(a),
		newPrefsResetCmd(a),
		newPrefsApplyCmd(a),
		newPrefsRebuildCmd(a),
	)
	return cmd
}

// withStore loads the project's store, runs fn, and remembers the wizard
// progress afterwards.
func (a *app) withStore(ctx context.Context, fn func(*preference.Store) error) error {
	id, err := a.projectID(nil)
	if err != nil {
		return err
	}
	store, err := a.loadStore(ctx, id)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		return err
	}
	return a.rememberSteps(store)
}

func newPrefsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the preferences document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *preference.Store) error {
				prefs := s.Preferences()
				if a.opts.json {
					return a.printJSON(prefs)
				}
				enc := yaml.NewEncoder(a.stdout)
				enc.SetIndent(2)
				if err := enc.Encode(prefs); err != nil {
					return err
				}
				return enc.Close()
			})
		},
	}
}

func newPrefsStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show step progress and what will be documented",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *preference.Store) error {
				return a.printStatus(s)
			})
		},
	}
}

func (a *app) printStatus(s *preference.Store) error {
	counts := s.Counts()
	steps := s.Steps()
	if a.opts.json {
		statuses := map[string]preference.StepStatus{}
		for n := range 3 {
			statuses[strconv.Itoa(n)] = steps.Status(n)
		}
		return a.printJSON(map[string]any{
			"project_id": s.ProjectID(),
			"format":     s.DocFormat(),
			"steps":      statuses,
			"counts":     counts,
		})
	}
	fmt.Fprintf(a.stdout, "Project %s  format %s\n\n", s.ProjectID(), s.DocFormat())
	for n := range 3 {
		fmt.Fprintln(a.stdout, renderStep(n, steps.Status(n)))
	}
	fmt.Fprintln(a.stdout)
	return a.table([]string{"", "TOTAL", "INCLUDED", "EXCLUDED"}, [][]string{
		renderTally("files", counts.Files),
		renderTally("functions", counts.Functions),
		renderTally("classes", counts.Classes),
		renderTally("methods", counts.Methods),
		renderTally("overall", counts.Overall),
	})
}

func newPrefsExcludeCmd(a *app) *cobra.Command {
	var (
		dirs, files             []string
		removeDirs, removeFiles []string
		clear                   bool
	)
	cmd := &cobra.Command{
		Use:   "exclude",
		Short: "Step 0: exclude files and directories",
		Example: `  docscribe prefs exclude --dir tests --dir docs/examples --file setup.py
  docscribe prefs exclude --remove-dir tests
  docscribe prefs exclude --clear`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *preference.Store) error {
				ex := s.Preferences().DirectoryExclusion
				if clear {
					ex = preference.DirectoryExclusion{}
				}
				ex.ExcludeDirs = editPaths(ex.ExcludeDirs, dirs, removeDirs)
				ex.ExcludeFiles = editPaths(ex.ExcludeFiles, files, removeFiles)

				res, err := s.SaveDirectories(cmd.Context(), ex)
				if err != nil {
					return err
				}
				a.success("Files & directories saved")
				if res.PerFileReset {
					a.warn("Excluded files changed, so per-file exclusions were cleared")
				}
				return a.printStatus(s)
			})
		},
	}
	cmd.Flags().StringSliceVar(&dirs, "dir", nil, "directory to exclude (repeatable)")
	cmd.Flags().StringSliceVar(&files, "file", nil, "file path or name to exclude (repeatable)")
	cmd.Flags().StringSliceVar(&removeDirs, "remove-dir", nil, "directory to include again")
	cmd.Flags().StringSliceVar(&removeFiles, "remove-file", nil, "file to include again")
	cmd.Flags().BoolVar(&clear, "clear", false, "start from no exclusions")
	return cmd
}

// editPaths adds and removes normalized paths, keeping the original order.
func editPaths(current, add, remove []string) []string {
	out := make([]string, 0, len(current)+len(add))
	seen := map[string]bool{}
	drop := map[string]bool{}
	for _, p := range remove {
		drop[pathutil.Normalize(p)] = true
	}
	for _, p := range append(slices.Clone(current), add...) {
		n := pathutil.Normalize(p)
		if n == "" || seen[n] || drop[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

func newPrefsPerFileCmd(a *app) *cobra.Command {
	var (
		functions, classes, methods []string
		clear                       bool
	)
	cmd := &cobra.Command{
		Use:   "per-file <path>",
		Short: "Step 1: exclude functions, classes or methods of one file",
		Example: `  docscribe prefs per-file pkg/core.py --function _helper --class Legacy
  docscribe prefs per-file pkg/core.py --clear`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := pathutil.Normalize(args[0])
			return a.withStore(cmd.Context(), func(s *preference.Store) error {
				if !s.IsFileIncluded(pathutil.Base(target), target) {
					a.warn("%s is excluded in step 0; its per-file choices have no effect", target)
				}
				list := s.Preferences().PerFileExclusion
				idx := slices.IndexFunc(list, func(e preference.PerFileExclusion) bool {
					return pathutil.LikeEqual(e.Filename, target)
				})
				entry := preference.PerFileExclusion{Filename: target}
				if idx >= 0 {
					entry = list[idx]
					list = slices.Delete(list, idx, idx+1)
				}
				if clear {
					entry = preference.PerFileExclusion{Filename: entry.Filename}
				}
				entry.ExcludeFunctions = editNames(entry.ExcludeFunctions, functions)
				entry.ExcludeClasses = editNames(entry.ExcludeClasses, classes)
				entry.ExcludeMethods = editNames(entry.ExcludeMethods, methods)
				list = append(list, entry)

				if _, err := s.SavePerFile(cmd.Context(), list); err != nil {
					return err
				}
				a.success("Functions & classes saved")
				return a.printStatus(s)
			})
		},
	}
	cmd.Flags().StringSliceVar(&functions, "function", nil, "function to skip (repeatable)")
	cmd.Flags().StringSliceVar(&classes, "class", nil, "class to skip, with all its methods (repeatable)")
	cmd.Flags().StringSliceVar(&methods, "method", nil, "method to skip (repeatable)")
	cmd.Flags().BoolVar(&clear, "clear", false, "drop the file's existing exclusions first")
	return cmd
}

func editNames(current, add []string) []string {
	out := slices.Clone(current)
	for _, n := range add {
		if n = strings.TrimSpace(n); n != "" && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}

func newPrefsSettingsCmd(a *app) *cobra.Command {
	var (
		format string
		set    []string
	)
	cmd := &cobra.Command{
		Use:     "settings",
		Short:   "Step 2: choose the output format and project settings",
		Example: `  docscribe prefs settings --format markdown --set title="Core API"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f preference.Format
			if format != "" {
				parsed, err := preference.ParseFormat(format)
				if err != nil {
					return err
				}
				f = parsed
			}
			settings, err := parseSettings(set)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *preference.Store) error {
				if _, err := s.SaveSettings(cmd.Context(), settings, f); err != nil {
					return err
				}
				a.success("Project settings saved (format %s)", s.DocFormat())
				return a.printStatus(s)
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "HTML, PDF or Markdown")
	cmd.Flags().StringArrayVar(&set, "set", nil, "project setting key=value (repeatable)")
	return cmd
}

// parseSettings reads key=value pairs; values that parse as YAML scalars
// (numbers, booleans) keep their type.
func parseSettings(pairs []string) (map[string]any, error) {
	out := map[string]any{}
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("setting %q must be key=value", p)
		}
		var val any
		if err := yaml.Unmarshal([]byte(v), &val); err != nil || val == nil {
			val = v
		}
		if _, nested := val.(map[string]any); nested {
			val = v
		}
		if _, list := val.([]any); list {
			val = v
		}
		out[k] = val
	}
	return out, nil
}

func newPrefsResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Reset all preferences to the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(s *preference.Store) error {
				if err := s.Reset(cmd.Context()); err != nil {
					return err
				}
				a.success("Preferences reset")
				return nil
			})
		},
	}
}

func newPrefsApplyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <file.yaml>",
		Short: "Run the steps described in a YAML file",
		Long: `Apply a preferences file. Sections present in the file are saved as their
step, in order:

  directories:
    exclude_dirs: [tests]
    exclude_files: [setup.py]
  per_file:
    - filename: pkg/core.py
      exclude_functions: [_helper]
  format: Markdown
  settings:
    title: Core API`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := preference.LoadStepFile(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(s *preference.Store) error {
				results, err := f.Apply(cmd.Context(), s)
				for _, r := range results {
					a.success("Step %d (%s) saved", r.Step, preference.StepName(r.Step))
					if r.PerFileReset {
						a.warn("Excluded files changed, so per-file exclusions were cleared")
					}
				}
				if err != nil {
					return err
				}
				return a.printStatus(s)
			})
		},
	}
}

func newPrefsRebuildCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Ask the service to re-derive the project from its saved preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.projectID(nil)
			if err != nil {
				return err
			}
			out, err := a.client.ApplyPreferences(cmd.Context(), id)
			a.invalidate(id)
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(out)
			}
			a.success("Preferences applied")
			return nil
		},
	}
}
