package types

type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	IsAdmin  bool   `json:"is_admin,omitempty"`
}

type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

type GithubRepo struct {
	ID            int64  `json:"id,omitempty"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Private       bool   `json:"private,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	AppInstalled  bool   `json:"app_installed,omitempty"`
}

type GithubBranch struct {
	Name   string         `json:"name"`
	Commit map[string]any `json:"commit,omitempty"`
}

// GithubImportRequest imports owner/repo at ref as a new project.
type GithubImportRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	RepoFullName string   `json:"repo_full_name"`
	Ref          string   `json:"ref"`
	Tags         []string `json:"tags"`
}
