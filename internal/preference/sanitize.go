package preference

import "docscribe/internal/pathutil"

// Sanitize normalizes per-file filenames and drops entries that have an empty
// filename or exclude nothing. The result is never nil.
func Sanitize(list []PerFileExclusion) []PerFileExclusion {
	out := make([]PerFileExclusion, 0, len(list))
	for _, e := range list {
		clean := PerFileExclusion{
			Filename:         pathutil.Normalize(e.Filename),
			ExcludeFunctions: nonNil(e.ExcludeFunctions),
			ExcludeClasses:   nonNil(e.ExcludeClasses),
			ExcludeMethods:   nonNil(e.ExcludeMethods),
		}
		if clean.Filename == "" || clean.Empty() {
			continue
		}
		out = append(out, clean)
	}
	return out
}

// Adopt turns a remote document into the local shape: empty lists instead of
// nulls, sanitized per-file entries, a resolved format and step. fallback
// supplies the format and step when the remote document omits them.
func Adopt(remote Preferences, fallbackFormat Format, fallbackStep int) Preferences {
	out := remote.Clone()
	out.DirectoryExclusion.ExcludeFiles = nonNil(out.DirectoryExclusion.ExcludeFiles)
	out.DirectoryExclusion.ExcludeDirs = nonNil(out.DirectoryExclusion.ExcludeDirs)
	out.PerFileExclusion = Sanitize(out.PerFileExclusion)
	if out.ProjectSettings == nil {
		out.ProjectSettings = map[string]any{}
	}
	format := out.Format.Canonical()
	if format == "" {
		format = out.SettingsFormat()
	}
	if format == "" {
		format = fallbackFormat.Canonical()
	}
	if format == "" {
		format = DefaultFormat
	}
	out.Format = format
	if out.CurrentStep == nil {
		step := fallbackStep
		out.CurrentStep = &step
	}
	return out
}

// ResetRequired reports whether moving from old to next directory exclusions
// invalidates per-file choices. Any change to either list, compared as sorted
// normalized sets, counts.
func ResetRequired(old, next DirectoryExclusion) bool {
	return !pathutil.SortedEqual(old.ExcludeFiles, next.ExcludeFiles) ||
		!pathutil.SortedEqual(old.ExcludeDirs, next.ExcludeDirs)
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return append(make([]string, 0, len(in)), in...)
}

// SanitizeDocument is Adopt with the defaults as fallback, plus normalized
// exclusion paths with empty entries dropped. It is applied to documents read
// from local files before they are saved.
func SanitizeDocument(p Preferences) Preferences {
	out := Adopt(p, DefaultFormat, 0)
	out.DirectoryExclusion.ExcludeFiles = pathutil.NormalizeAll(out.DirectoryExclusion.ExcludeFiles)
	out.DirectoryExclusion.ExcludeDirs = pathutil.NormalizeAll(out.DirectoryExclusion.ExcludeDirs)
	return out
}
