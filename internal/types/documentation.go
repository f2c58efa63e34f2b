package types

import "encoding/json"

const (
	ItemFunction = "function"
	ItemClass    = "class"
	ItemMethod   = "method"
)

// DocstringItem is one function, class or method the model will document.
type DocstringItem struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	File        string `json:"file"`
	Code        string `json:"code,omitempty"`
	ParentClass string `json:"parent_class,omitempty"`
}

// DocumentationPlan is the server-computed manifest for the current
// preferences.
type DocumentationPlan struct {
	ProjectID     string          `json:"project_id"`
	Format        string          `json:"format"`
	TotalItems    int             `json:"total_items"`
	Items         []DocstringItem `json:"items"`
	ExcludedFiles []string        `json:"excluded_files"`
	IncludedFiles []string        `json:"included_files"`
}

// PlanGroups splits plan items by kind; methods are keyed by "file::class".
type PlanGroups struct {
	Functions []DocstringItem
	Classes   []DocstringItem
	Methods   map[string][]DocstringItem
}

func (p DocumentationPlan) Group() PlanGroups {
	g := PlanGroups{Methods: map[string][]DocstringItem{}}
	for _, it := range p.Items {
		switch it.Type {
		case ItemFunction:
			g.Functions = append(g.Functions, it)
		case ItemClass:
			g.Classes = append(g.Classes, it)
		case ItemMethod:
			key := it.File + "::" + it.ParentClass
			g.Methods[key] = append(g.Methods[key], it)
		}
	}
	return g
}

// Revision is one persisted generation result.
type Revision struct {
	ID         string            `json:"id,omitempty"`
	RevisionID string            `json:"revision_id,omitempty"`
	ProjectID  string            `json:"project_id"`
	Format     string            `json:"format"`
	Content    string            `json:"content,omitempty"`
	Documented []json.RawMessage `json:"documented,omitempty"`
	CreatedBy  string            `json:"created_by,omitempty"`
	CreatedAt  Timestamp         `json:"created_at"`
	Notes      string            `json:"notes,omitempty"`
}

// Key returns whichever identifier the server populated.
func (r Revision) Key() string {
	if r.ID != "" {
		return r.ID
	}
	return r.RevisionID
}

type RevisionList struct {
	ProjectID string     `json:"project_id"`
	Revisions []Revision `json:"revisions"`
}

// Download is the raw body of a revision download.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}

type GenerateRequest struct {
	BatchSize   int     `json:"batch_size,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	TopP        float64 `json:"top_p,omitempty"`
	TopK        int     `json:"top_k,omitempty"`
}

type GenerateResponse struct {
	ProjectID             string            `json:"project_id,omitempty"`
	Results               []json.RawMessage `json:"results"`
	GenerationTimeSeconds float64           `json:"generation_time_seconds"`
	RevisionID            string            `json:"revision_id,omitempty"`
}
