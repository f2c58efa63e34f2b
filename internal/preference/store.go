package preference

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docscribe/internal/types"
)

var (
	ErrNotInitialized = errors.New("preferences not initialized")
	ErrStepLocked     = errors.New("step is locked until files & directories are saved")
	ErrUnknownStep    = errors.New("unknown step")
)

// Remote is the part of the backend API the store talks to.
type Remote interface {
	GetPreferences(ctx context.Context, projectID string) (Preferences, error)
	UpdatePreferences(ctx context.Context, projectID string, prefs Preferences) (Preferences, error)
	CreatePreferences(ctx context.Context, projectID string, prefs Preferences) (Preferences, error)
	ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error)
	FileTree(ctx context.Context, projectID string) (*types.FileTreeNode, error)
}

// IsNotFound reports whether err carries an HTTP 404 from the remote. Remote
// errors expose their status through an HTTPStatus method.
func IsNotFound(err error) bool {
	var sc interface{ HTTPStatus() int }
	if errors.As(err, &sc) {
		return sc.HTTPStatus() == http.StatusNotFound
	}
	return false
}

// EventKind names what changed in the store.
type EventKind string

const (
	EventLoaded EventKind = "loaded"
	EventSaved  EventKind = "saved"
	EventReset  EventKind = "reset"
)

// Event is delivered to subscribers after every state change.
type Event struct {
	Kind        EventKind   `json:"kind"`
	ProjectID   string      `json:"project_id"`
	Step        int         `json:"step"`
	Preferences Preferences `json:"preferences"`
	Counts      Counts      `json:"counts"`
	Completed   []int       `json:"completed_steps"`
}

// LoadReport records which initial loads failed. Each failure was replaced
// by a default, so none of them is fatal.
type LoadReport struct {
	Preferences error
	Files       error
	Tree        error
	// Found is false when the project has no preferences document yet.
	Found bool
}

// Err joins the non-404 failures.
func (r LoadReport) Err() error {
	var errs []error
	if r.Preferences != nil && !IsNotFound(r.Preferences) {
		errs = append(errs, fmt.Errorf("preferences: %w", r.Preferences))
	}
	if r.Files != nil {
		errs = append(errs, fmt.Errorf("files: %w", r.Files))
	}
	if r.Tree != nil {
		errs = append(errs, fmt.Errorf("tree: %w", r.Tree))
	}
	return errors.Join(errs...)
}

// SaveResult describes the outcome of a completed step.
type SaveResult struct {
	Step int
	// Created is set when the update hit 404 and the document was created.
	Created bool
	// PerFileReset is set when a step 0 change cleared per-file exclusions.
	PerFileReset bool
	// Refreshed is false when the authoritative re-fetch failed and the
	// document as sent was kept instead.
	Refreshed bool
}

// StepData carries the input of one step. Only the field of the step being
// completed is read.
type StepData struct {
	Directories DirectoryExclusion
	PerFile     []PerFileExclusion
	Settings    map[string]any
	Format      Format
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithSteps seeds the tracker, e.g. with completions persisted by the CLI.
func WithSteps(steps *Steps) Option {
	return func(s *Store) {
		if steps != nil {
			s.steps = steps
		}
	}
}

// Store is the per-project preference state. Reads return copies; writes go
// through CompleteStep and Reset, which persist remotely before notifying
// subscribers.
type Store struct {
	remote Remote
	log    *zap.Logger
	steps  *Steps

	saveMu sync.Mutex

	mu        sync.RWMutex
	projectID string
	prefs     Preferences
	files     []types.FileRecord
	tree      *types.FileTreeNode

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Event)
}

func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote: remote,
		log:    zap.NewNop(),
		steps:  NewSteps(),
		prefs:  Defaults(),
		tree:   types.EmptyTree(),
		subs:   map[int]func(Event){},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize loads preferences, files and tree concurrently. Every request
// settles independently: a failed file list becomes empty, a failed tree
// becomes the empty root, and a missing or failed preferences document
// becomes Defaults.
func (s *Store) Initialize(ctx context.Context, projectID string) (LoadReport, error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return LoadReport{}, fmt.Errorf("project id is required")
	}
	if s.remote == nil {
		return LoadReport{}, fmt.Errorf("remote is nil")
	}

	var (
		report LoadReport
		prefs  Preferences
		files  []types.FileRecord
		tree   *types.FileTreeNode
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.remote.GetPreferences(gctx, projectID)
		if err != nil {
			report.Preferences = err
			return nil
		}
		prefs = p
		report.Found = true
		return nil
	})
	g.Go(func() error {
		f, err := s.remote.ListFiles(gctx, projectID)
		if err != nil {
			report.Files = err
			return nil
		}
		files = f
		return nil
	})
	g.Go(func() error {
		t, err := s.remote.FileTree(gctx, projectID)
		if err != nil {
			report.Tree = err
			return nil
		}
		tree = t
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}

	if report.Found {
		prefs = Adopt(prefs, DefaultFormat, 0)
	} else {
		prefs = Defaults()
		if !IsNotFound(report.Preferences) {
			s.log.Warn("load preferences failed; using defaults",
				zap.String("project_id", projectID), zap.Error(report.Preferences))
		}
	}
	if files == nil {
		files = []types.FileRecord{}
		if report.Files != nil {
			s.log.Warn("load files failed", zap.String("project_id", projectID), zap.Error(report.Files))
		}
	}
	if tree == nil {
		tree = types.EmptyTree()
		if report.Tree != nil {
			s.log.Warn("load file tree failed", zap.String("project_id", projectID), zap.Error(report.Tree))
		}
	}

	s.mu.Lock()
	// Progress seeded through WithSteps belongs to the first project loaded;
	// only a switch between projects starts over.
	if s.projectID != "" && s.projectID != projectID {
		s.steps.Reset()
	}
	s.projectID = projectID
	s.prefs = prefs
	s.files = files
	s.tree = tree
	s.mu.Unlock()

	if report.Found {
		s.steps.Complete(StepDirectories)
	}
	s.steps.setCurrent(prefs.Step())

	s.log.Debug("preferences loaded",
		zap.String("project_id", projectID),
		zap.Bool("found", report.Found),
		zap.Int("files", len(files)),
		zap.Int("step", prefs.Step()))
	s.notify(EventLoaded)
	return report, nil
}

// ProjectID is the initialized project, or "".
func (s *Store) ProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID
}

func (s *Store) Preferences() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Clone()
}

func (s *Store) Files() []types.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append(make([]types.FileRecord, 0, len(s.files)), s.files...)
}

func (s *Store) Tree() *types.FileTreeNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree
}

// SetTree replaces the display tree, e.g. after an upload.
func (s *Store) SetTree(tree *types.FileTreeNode) {
	if tree == nil {
		tree = types.EmptyTree()
	}
	s.mu.Lock()
	s.tree = tree
	s.mu.Unlock()
}

// SetFiles replaces the file records, e.g. after an upload.
func (s *Store) SetFiles(files []types.FileRecord) {
	s.mu.Lock()
	s.files = append([]types.FileRecord{}, files...)
	s.mu.Unlock()
}

func (s *Store) Steps() *Steps {
	return s.steps
}

func (s *Store) DocFormat() Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.DocFormat()
}

func (s *Store) IsFileIncluded(name, path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IsFileIncluded(s.prefs.DirectoryExclusion, name, path)
}

func (s *Store) IncludedFiles() []types.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return IncludedFiles(s.prefs.DirectoryExclusion, s.files)
}

func (s *Store) FilesWithContent() []types.FileRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return FilesWithContent(s.prefs.DirectoryExclusion, s.files)
}

func (s *Store) EntryFor(file types.FileRecord) (PerFileExclusion, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return EntryFor(s.prefs.PerFileExclusion, file)
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CountItems(s.prefs, s.files)
}

// SaveDirectories completes step 0.
func (s *Store) SaveDirectories(ctx context.Context, ex DirectoryExclusion) (SaveResult, error) {
	return s.CompleteStep(ctx, StepDirectories, StepData{Directories: ex})
}

// SavePerFile completes step 1.
func (s *Store) SavePerFile(ctx context.Context, list []PerFileExclusion) (SaveResult, error) {
	return s.CompleteStep(ctx, StepPerFile, StepData{PerFile: list})
}

// SaveSettings completes step 2.
func (s *Store) SaveSettings(ctx context.Context, settings map[string]any, format Format) (SaveResult, error) {
	return s.CompleteStep(ctx, StepSettings, StepData{Settings: settings, Format: format})
}

// CompleteStep applies data to the step's section, saves the document
// (update, falling back to create on 404), re-fetches the authoritative copy
// and marks the step completed. If the save fails the local document is left
// as it was.
func (s *Store) CompleteStep(ctx context.Context, step int, data StepData) (SaveResult, error) {
	res := SaveResult{Step: step}
	if !ValidStep(step) {
		return res, fmt.Errorf("%w: %d", ErrUnknownStep, step)
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.RLock()
	projectID := s.projectID
	current := s.prefs.Clone()
	s.mu.RUnlock()
	if projectID == "" {
		return res, ErrNotInitialized
	}
	if !s.steps.Accessible(step) {
		return res, fmt.Errorf("%w: step %d", ErrStepLocked, step)
	}

	next := current.WithStep(step)
	switch step {
	case StepDirectories:
		ex := DirectoryExclusion{
			ExcludeFiles: nonNil(data.Directories.ExcludeFiles),
			ExcludeDirs:  nonNil(data.Directories.ExcludeDirs),
		}
		if ResetRequired(current.DirectoryExclusion, ex) {
			next.PerFileExclusion = []PerFileExclusion{}
			res.PerFileReset = len(current.PerFileExclusion) > 0
		}
		next.DirectoryExclusion = ex
	case StepPerFile:
		next.PerFileExclusion = Sanitize(data.PerFile)
	case StepSettings:
		format := data.Format.Canonical()
		if format == "" {
			format = current.SettingsFormat()
		}
		if format == "" {
			format = current.Format.Canonical()
		}
		if format == "" {
			format = DefaultFormat
		}
		settings := map[string]any{}
		maps.Copy(settings, current.ProjectSettings)
		maps.Copy(settings, data.Settings)
		settings["format"] = string(format)
		next.ProjectSettings = settings
		next.Format = format
	}

	created, err := s.save(ctx, projectID, next)
	if err != nil {
		s.log.Warn("save preferences failed",
			zap.String("project_id", projectID), zap.Int("step", step), zap.Error(err))
		return res, fmt.Errorf("save preferences: %w", err)
	}
	res.Created = created

	adopted := next
	authoritative, err := s.remote.GetPreferences(ctx, projectID)
	if err != nil {
		s.log.Warn("refresh preferences failed; keeping saved copy",
			zap.String("project_id", projectID), zap.Error(err))
	} else {
		res.Refreshed = true
		fallback := next.Format
		adopted = Adopt(authoritative, fallback, step)
	}

	s.mu.Lock()
	s.prefs = adopted
	s.mu.Unlock()
	s.steps.setCurrent(adopted.Step())
	s.steps.Complete(step)

	s.log.Info("preferences saved",
		zap.String("project_id", projectID),
		zap.Int("step", step),
		zap.Bool("created", res.Created),
		zap.Bool("per_file_reset", res.PerFileReset))
	s.notify(EventSaved)
	return res, nil
}

// Reset overwrites the remote document with Defaults and clears all steps.
func (s *Store) Reset(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	projectID := s.ProjectID()
	if projectID == "" {
		return ErrNotInitialized
	}
	empty := Defaults()
	if _, err := s.save(ctx, projectID, empty); err != nil {
		return fmt.Errorf("reset preferences: %w", err)
	}
	s.mu.Lock()
	s.prefs = empty
	s.mu.Unlock()
	s.steps.Reset()
	s.log.Info("preferences reset", zap.String("project_id", projectID))
	s.notify(EventReset)
	return nil
}

// save updates the document and creates it when the update reports 404.
func (s *Store) save(ctx context.Context, projectID string, prefs Preferences) (created bool, err error) {
	_, err = s.remote.UpdatePreferences(ctx, projectID, prefs)
	if err == nil {
		return false, nil
	}
	if !IsNotFound(err) {
		return false, err
	}
	s.log.Debug("preferences missing; creating", zap.String("project_id", projectID))
	if _, err := s.remote.CreatePreferences(ctx, projectID, prefs); err != nil {
		return false, err
	}
	return true, nil
}

// Subscribe registers fn for every subsequent Event. The returned func
// removes it.
func (s *Store) Subscribe(fn func(Event)) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.subMu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

func (s *Store) notify(kind EventKind) {
	s.mu.RLock()
	evt := Event{
		Kind:        kind,
		ProjectID:   s.projectID,
		Step:        s.prefs.Step(),
		Preferences: s.prefs.Clone(),
		Counts:      CountItems(s.prefs, s.files),
	}
	s.mu.RUnlock()
	evt.Completed = s.steps.CompletedList()

	s.subMu.Lock()
	subs := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(evt)
	}
}
