package server

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"docscribe/internal/preference"
)

const defaultDebounce = 300 * time.Millisecond

// PrefsWatcher re-applies a preferences step file to the store whenever it
// changes on disk. Rapid saves are debounced into one apply.
type PrefsWatcher struct {
	path     string
	store    *preference.Store
	log      *zap.Logger
	debounce time.Duration

	// OnApply, when set, receives the result of every apply.
	OnApply func(results []preference.SaveResult, err error)

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

func NewPrefsWatcher(path string, store *preference.Store, log *zap.Logger) (*PrefsWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &PrefsWatcher{path: abs, store: store, log: log, debounce: defaultDebounce, watcher: w}, nil
}

// Start watches the file's directory, since editors often replace the file
// rather than write to it. It returns once the watch is registered.
func (pw *PrefsWatcher) Start(ctx context.Context) error {
	if err := pw.watcher.Add(filepath.Dir(pw.path)); err != nil {
		return err
	}
	pw.log.Info("watching preferences file", zap.String("path", pw.path))
	pw.wg.Add(1)
	go pw.run(ctx)
	return nil
}

// Close stops the watcher and waits for the loop to exit.
func (pw *PrefsWatcher) Close() error {
	err := pw.watcher.Close()
	pw.wg.Wait()
	return err
}

func (pw *PrefsWatcher) run(ctx context.Context) {
	defer pw.wg.Done()

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != pw.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(pw.debounce)
			} else {
				timer.Reset(pw.debounce)
			}
			fire = timer.C
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.log.Warn("preferences watch error", zap.Error(err))
		case <-fire:
			fire = nil
			pw.apply(ctx)
		}
	}
}

func (pw *PrefsWatcher) apply(ctx context.Context) {
	f, err := preference.LoadStepFile(pw.path)
	var results []preference.SaveResult
	if err == nil {
		results, err = f.Apply(ctx, pw.store)
	}
	if err != nil {
		pw.log.Warn("apply preferences file failed", zap.String("path", pw.path), zap.Error(err))
	} else {
		pw.log.Info("preferences file applied", zap.String("path", pw.path), zap.Int("steps", len(results)))
	}
	if pw.OnApply != nil {
		pw.OnApply(results, err)
	}
}
