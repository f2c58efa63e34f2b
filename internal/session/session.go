// Package session persists CLI state between invocations: the bearer token,
// the signed-in user, the active project and wizard progress per project.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// State is the on-disk document.
type State struct {
	APIURL        string           `json:"api_url,omitempty"`
	Token         string           `json:"token,omitempty"`
	Username      string           `json:"username,omitempty"`
	UserID        string           `json:"user_id,omitempty"`
	ActiveProject string           `json:"active_project,omitempty"`
	Steps         map[string][]int `json:"steps,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func normalizeState(s State) State {
	s.APIURL = strings.TrimSpace(s.APIURL)
	s.Token = strings.TrimSpace(s.Token)
	s.Username = strings.TrimSpace(s.Username)
	s.UserID = strings.TrimSpace(s.UserID)
	s.ActiveProject = strings.TrimSpace(s.ActiveProject)
	steps := make(map[string][]int, len(s.Steps))
	for id, list := range s.Steps {
		id = strings.TrimSpace(id)
		if id == "" || len(list) == 0 {
			continue
		}
		steps[id] = uniqueSorted(list)
	}
	s.Steps = steps
	return s
}

func uniqueSorted(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, n := range in {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

// Store is a JSON file holding one State. Changes are kept in memory until
// Save.
type Store struct {
	path string

	loadOnce sync.Once
	loadErr  error

	mu    sync.RWMutex
	state State
}

func New(path string) *Store {
	return &Store{path: path, state: normalizeState(State{})}
}

// DefaultPath is ~/.config/docscribe/session.json.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "docscribe", "session.json")
}

func (s *Store) Path() string { return s.path }

// Load reads the file once. A missing file is an empty session.
func (s *Store) Load() error {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			s.loadErr = fmt.Errorf("read session: %w", err)
			return
		}
		var st State
		if err := json.Unmarshal(b, &st); err != nil {
			s.loadErr = fmt.Errorf("decode session %s: %w", s.path, err)
			return
		}
		s.mu.Lock()
		s.state = normalizeState(st)
		s.mu.Unlock()
	})
	return s.loadErr
}

// Save writes the file atomically with owner-only permissions since it holds
// the token.
func (s *Store) Save() error {
	if err := s.Load(); err != nil {
		return err
	}
	s.mu.Lock()
	s.state.UpdatedAt = time.Now().UTC()
	st := normalizeState(s.state)
	s.mu.Unlock()

	b, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

func (s *Store) State() State {
	_ = s.Load()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return normalizeState(s.state)
}

func (s *Store) update(fn func(*State)) {
	_ = s.Load()
	s.mu.Lock()
	fn(&s.state)
	s.state = normalizeState(s.state)
	s.mu.Unlock()
}

func (s *Store) Token() string { return s.State().Token }

// SetToken records a login. An empty token signs out.
func (s *Store) SetToken(token, username, userID string) {
	s.update(func(st *State) {
		st.Token = token
		st.Username = username
		st.UserID = userID
	})
}

func (s *Store) Username() string { return s.State().Username }

func (s *Store) UserID() string { return s.State().UserID }

func (s *Store) APIURL() string { return s.State().APIURL }

func (s *Store) SetAPIURL(u string) {
	s.update(func(st *State) { st.APIURL = u })
}

func (s *Store) ActiveProject() string { return s.State().ActiveProject }

func (s *Store) SetActiveProject(projectID string) {
	s.update(func(st *State) { st.ActiveProject = projectID })
}

// CompletedSteps returns the wizard steps completed for the project.
func (s *Store) CompletedSteps(projectID string) []int {
	st := s.State()
	return append([]int{}, st.Steps[strings.TrimSpace(projectID)]...)
}

func (s *Store) SetCompletedSteps(projectID string, steps []int) {
	id := strings.TrimSpace(projectID)
	if id == "" {
		return
	}
	s.update(func(st *State) {
		if st.Steps == nil {
			st.Steps = map[string][]int{}
		}
		if len(steps) == 0 {
			delete(st.Steps, id)
			return
		}
		st.Steps[id] = append([]int(nil), steps...)
	})
}

// Forget drops everything recorded about a project.
func (s *Store) Forget(projectID string) {
	id := strings.TrimSpace(projectID)
	s.update(func(st *State) {
		delete(st.Steps, id)
		if st.ActiveProject == id {
			st.ActiveProject = ""
		}
	})
}

// Clear signs out and forgets all projects. The API URL is kept.
func (s *Store) Clear() {
	s.update(func(st *State) {
		*st = State{APIURL: st.APIURL}
	})
}
