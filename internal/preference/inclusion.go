package preference

import (
	"docscribe/internal/pathutil"
	"docscribe/internal/types"
)

// IsFileIncluded reports whether the file identified by name and path
// survives the directory exclusions. path falls back to name when empty.
//
// A file is excluded when an exclude_files entry matches its path (exactly or
// as a segment suffix) or its basename, or when its path lies under an
// exclude_dirs entry.
func IsFileIncluded(ex DirectoryExclusion, name, path string) bool {
	p := pathutil.Normalize(path)
	if p == "" {
		p = pathutil.Normalize(name)
	}
	base := pathutil.Base(p)
	for _, ef := range ex.ExcludeFiles {
		nef := pathutil.Normalize(ef)
		if nef == "" {
			continue
		}
		if pathutil.LikeEqual(p, nef) || pathutil.Base(nef) == base {
			return false
		}
	}
	for _, ed := range ex.ExcludeDirs {
		if pathutil.IsSubpath(p, ed) {
			return false
		}
	}
	return true
}

// IncludedFiles filters files through IsFileIncluded.
func IncludedFiles(ex DirectoryExclusion, files []types.FileRecord) []types.FileRecord {
	out := make([]types.FileRecord, 0, len(files))
	for _, f := range files {
		if IsFileIncluded(ex, f.DisplayName(), f.Key()) {
			out = append(out, f)
		}
	}
	return out
}

// FilesWithContent is the included files that define a function or class.
func FilesWithContent(ex DirectoryExclusion, files []types.FileRecord) []types.FileRecord {
	included := IncludedFiles(ex, files)
	out := included[:0]
	for _, f := range included {
		if f.HasContent() {
			out = append(out, f)
		}
	}
	return out
}

// EntryFor finds the per-file entry for file: a path match wins over a
// basename match.
func EntryFor(list []PerFileExclusion, file types.FileRecord) (PerFileExclusion, bool) {
	key := file.Key()
	for _, e := range list {
		if pathutil.LikeEqual(e.Filename, key) {
			return e, true
		}
	}
	base := pathutil.Base(key)
	if base == "" {
		return PerFileExclusion{}, false
	}
	for _, e := range list {
		if pathutil.Base(e.Filename) == base {
			return e, true
		}
	}
	return PerFileExclusion{}, false
}
