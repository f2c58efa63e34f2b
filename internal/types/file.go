package types

import "docscribe/internal/pathutil"

// FunctionInfo is a parsed top-level function or a method.
type FunctionInfo struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// ClassInfo is a parsed class with its methods.
type ClassInfo struct {
	Name    string         `json:"name"`
	Code    string         `json:"code,omitempty"`
	Methods []FunctionInfo `json:"methods,omitempty"`
}

// FileRecord is one uploaded Python file as returned by /files/all.
// Older endpoints populate different name fields, so Key and DisplayName
// pick whichever is present.
type FileRecord struct {
	ID        string         `json:"id,omitempty"`
	ProjectID string         `json:"project_id,omitempty"`
	Filename  string         `json:"filename,omitempty"`
	FileName  string         `json:"file_name,omitempty"`
	Path      string         `json:"path,omitempty"`
	Name      string         `json:"name,omitempty"`
	Functions []FunctionInfo `json:"functions,omitempty"`
	Classes   []ClassInfo    `json:"classes,omitempty"`
}

// Key is the normalized path used for matching exclusions.
func (f FileRecord) Key() string {
	for _, v := range []string{f.Path, f.Filename, f.FileName, f.Name} {
		if n := pathutil.Normalize(v); n != "" {
			return n
		}
	}
	return ""
}

// DisplayName is the short name shown to users.
func (f FileRecord) DisplayName() string {
	for _, v := range []string{f.Name, f.Filename, f.FileName} {
		if v != "" {
			return v
		}
	}
	return pathutil.Base(f.Key())
}

// MethodCount is the number of methods across all classes.
func (f FileRecord) MethodCount() int {
	n := 0
	for _, c := range f.Classes {
		n += len(c.Methods)
	}
	return n
}

// HasContent reports whether the file defines any function or class.
func (f FileRecord) HasContent() bool {
	return len(f.Functions) > 0 || len(f.Classes) > 0
}
