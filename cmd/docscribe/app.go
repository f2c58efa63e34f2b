package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"docscribe/internal/api"
	"docscribe/internal/archive"
	"docscribe/internal/config"
	"docscribe/internal/logging"
	"docscribe/internal/preference"
	"docscribe/internal/session"
	"docscribe/internal/types"
)

type rootOptions struct {
	verbose    bool
	apiURL     string
	project    string
	configPath string
	json       bool
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	opts   rootOptions

	cfg    *config.Config
	log    *zap.Logger
	sess   *session.Store
	client *api.Client
	cached *api.CachedClient

	closers []func() error
}

// backend is the client surface the commands use; CachedClient and Client
// both satisfy it.
type backend interface {
	preference.Remote
	Plan(ctx context.Context, projectID string) (types.DocumentationPlan, error)
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if u := strings.TrimSpace(a.opts.apiURL); u != "" {
		cfg.APIURL = u
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	a.cfg = cfg

	if a.log, err = logging.New(cfg.LogLevel, cfg.LogFormat, a.opts.verbose); err != nil {
		return err
	}

	a.sess = session.New(cfg.SessionPath)
	if err := a.sess.Load(); err != nil {
		a.log.Warn("session unreadable; starting signed out", zap.Error(err))
		a.sess = session.New(cfg.SessionPath)
	}

	a.client = api.New(cfg.APIURL,
		api.WithToken(a.sess.Token()),
		api.WithTimeout(cfg.HTTPTimeout),
		api.WithLogger(a.log.Named("api")),
	)
	if !cfg.Cache.Disabled {
		a.cached = api.NewCachedClient(a.client, cfg.Cache.Client())
	}
	a.log.Debug("configured",
		zap.String("api_url", cfg.APIURL), zap.String("env", cfg.Env),
		zap.String("config", cfg.Path), zap.String("session", cfg.SessionPath))
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.log != nil {
			a.log.Debug("close failed", zap.Error(err))
		}
	}
	a.closers = nil
	if a.log != nil {
		_ = a.log.Sync()
	}
}

func (a *app) backend() backend {
	if a.cached != nil {
		return a.cached
	}
	return a.client
}

var errNoProject = errors.New("no project selected; pass --project or run `docscribe projects use <id>`")

// projectID picks the explicit argument, then --project, then the active
// project of the session.
func (a *app) projectID(args []string) (string, error) {
	for _, v := range []string{firstArg(args), a.opts.project, a.sess.ActiveProject()} {
		if v = strings.TrimSpace(v); v != "" {
			return v, nil
		}
	}
	return "", errNoProject
}

// loadStore initializes a preference store for the project, seeded with
// the wizard progress remembered in the session. Failed loads are reported
// as warnings; the store falls back to defaults.
func (a *app) loadStore(ctx context.Context, projectID string) (*preference.Store, error) {
	store := preference.New(a.backend(),
		preference.WithLogger(a.log.Named("preferences")),
		preference.WithSteps(preference.NewSteps(a.sess.CompletedSteps(projectID)...)),
	)
	report, err := store.Initialize(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := report.Err(); err != nil {
		a.warn("Some project data could not be loaded: %v", err)
	}
	return store, nil
}

// rememberSteps persists the wizard progress of the store's project.
func (a *app) rememberSteps(store *preference.Store) error {
	a.sess.SetCompletedSteps(store.ProjectID(), store.Steps().CompletedList())
	return a.sess.Save()
}

func (a *app) openArchiver(ctx context.Context) (*archive.Archiver, error) {
	store, err := archive.Open(ctx, a.cfg.Archive.Store(), a.log.Named("archive"))
	if err != nil {
		return nil, err
	}
	if c, ok := store.(io.Closer); ok {
		a.closers = append(a.closers, c.Close)
	} else if cs, ok := store.(*archive.CachedStore); ok {
		if c, ok := cs.Origin().(io.Closer); ok {
			a.closers = append(a.closers, c.Close)
		}
	}
	return archive.NewArchiver(store, a.log.Named("archive")), nil
}

// invalidate drops cached reads of the project after a mutation made
// outside the cached client.
func (a *app) invalidate(projectID string) {
	if a.cached != nil {
		a.cached.Invalidate(projectID)
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
