package preference

import (
	"sort"
	"sync"
)

const (
	StepDirectories = 0
	StepPerFile     = 1
	StepSettings    = 2

	stepCount = 3
)

// StepStatus is how a wizard step presents.
type StepStatus string

const (
	StatusCompleted  StepStatus = "completed"
	StatusActive     StepStatus = "active"
	StatusAccessible StepStatus = "accessible"
	StatusLocked     StepStatus = "locked"
)

// StepName is the human label of each step.
func StepName(n int) string {
	switch n {
	case StepDirectories:
		return "files & directories"
	case StepPerFile:
		return "functions & classes"
	case StepSettings:
		return "project settings"
	}
	return "unknown"
}

// ValidStep reports whether n is one of the three wizard steps.
func ValidStep(n int) bool {
	return n >= 0 && n < stepCount
}

// Steps tracks completed steps and the current one. Step 0 is always
// accessible; the others open once step 0 is completed.
type Steps struct {
	mu        sync.RWMutex
	completed map[int]bool
	current   int
}

func NewSteps(completed ...int) *Steps {
	s := &Steps{completed: map[int]bool{}}
	for _, n := range completed {
		if ValidStep(n) {
			s.completed[n] = true
		}
	}
	return s
}

func (s *Steps) Complete(n int) {
	if !ValidStep(n) {
		return
	}
	s.mu.Lock()
	s.completed[n] = true
	s.mu.Unlock()
}

func (s *Steps) Completed(n int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completed[n]
}

// CompletedList returns the completed steps in order.
func (s *Steps) CompletedList() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]int, 0, len(s.completed))
	for n, ok := range s.completed {
		if ok {
			out = append(out, n)
		}
	}
	sort.Ints(out)
	return out
}

func (s *Steps) Accessible(n int) bool {
	if !ValidStep(n) {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessibleLocked(n)
}

func (s *Steps) accessibleLocked(n int) bool {
	return n == StepDirectories || s.completed[StepDirectories]
}

func (s *Steps) Status(n int) StepStatus {
	if !ValidStep(n) {
		return StatusLocked
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case s.completed[n]:
		return StatusCompleted
	case !s.accessibleLocked(n):
		return StatusLocked
	case s.current == n:
		return StatusActive
	}
	return StatusAccessible
}

func (s *Steps) Current() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// GoTo moves to step n if it is accessible.
func (s *Steps) GoTo(n int) bool {
	if !ValidStep(n) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accessibleLocked(n) {
		return false
	}
	s.current = n
	return true
}

// setCurrent records the step from a loaded or saved document without the
// accessibility check.
func (s *Steps) setCurrent(n int) {
	if !ValidStep(n) {
		n = StepDirectories
	}
	s.mu.Lock()
	s.current = n
	s.mu.Unlock()
}

// Reset clears all completions and returns to step 0.
func (s *Steps) Reset() {
	s.mu.Lock()
	s.completed = map[int]bool{}
	s.current = StepDirectories
	s.mu.Unlock()
}
