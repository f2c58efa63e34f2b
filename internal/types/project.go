package types

type ProjectStatus string

const (
	ProjectComplete   ProjectStatus = "complete"
	ProjectInProgress ProjectStatus = "in_progress"
	ProjectEmpty      ProjectStatus = "empty"
)

// Project is a documentation project owned by one user.
type Project struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	UserID      string        `json:"user_id,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	Status      ProjectStatus `json:"status,omitempty"`
	CreatedAt   Timestamp     `json:"created_at"`
	UpdatedAt   Timestamp     `json:"updated_at"`
}

type ProjectCreate struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags,omitempty"`
}

// ProjectUpdate is a partial update; nil fields are left untouched.
type ProjectUpdate struct {
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Status      *ProjectStatus `json:"status,omitempty"`
}
