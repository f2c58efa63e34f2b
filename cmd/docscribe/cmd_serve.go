package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"docscribe/internal/preference"
	"docscribe/internal/server"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr, watch string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local revision archive and live preference events",
		Long: `Serve the local archive over HTTP and stream preference events of the
active project over a websocket at /ws/events.

With --watch (or serve.prefs_file in the profile) the given step file is
re-applied to the active project every time it changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Serve.Addr = addr
			}
			if watch != "" {
				a.cfg.Serve.PrefsFile = watch
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&watch, "watch", "", "preferences step file to watch and apply")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	arc, err := a.openArchiver(ctx)
	if err != nil {
		return err
	}
	hub := server.NewHub(0)

	var store *preference.Store
	if id, err := a.projectID(nil); err == nil {
		if store, err = a.loadStore(ctx, id); err != nil {
			return err
		}
		cancel := store.Subscribe(hub.Publish)
		defer cancel()
	} else if !errors.Is(err, errNoProject) {
		return err
	}

	if path := a.cfg.Serve.PrefsFile; path != "" {
		if store == nil {
			return errNoProject
		}
		pw, err := server.NewPrefsWatcher(path, store, a.log.Named("watch"))
		if err != nil {
			return err
		}
		pw.OnApply = func(results []preference.SaveResult, err error) {
			if err != nil {
				a.warn("Applying %s failed: %v", path, err)
				return
			}
			if err := a.rememberSteps(store); err != nil {
				a.log.Warn("save session", zap.Error(err))
			}
			a.success("Applied %s (%d steps)", path, len(results))
		}
		if err := pw.Start(ctx); err != nil {
			_ = pw.Close()
			return err
		}
		defer pw.Close()
	}

	srv := server.New(a.cfg.Serve.Addr,
		server.NewMux(server.NewHandler(arc, store, hub, a.log.Named("server"))),
		a.log.Named("server"))
	a.info("Serving on http://%s (Ctrl-C to stop)", srv.Addr())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
