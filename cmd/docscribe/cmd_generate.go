package main

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"docscribe/internal/generation"
	"docscribe/internal/types"
)

func newPlanCmd(a *app) *cobra.Command {
	var items bool
	cmd := &cobra.Command{
		Use:   "plan [project-id]",
		Short: "Show what the model will document with the current preferences",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			plan, err := a.backend().Plan(cmd.Context(), id)
			if err != nil {
				return err
			}
			if a.opts.json {
				return a.printJSON(plan)
			}
			return a.printPlan(plan, items)
		},
	}
	cmd.Flags().BoolVar(&items, "items", false, "list every item")
	return cmd
}

func (a *app) printPlan(plan types.DocumentationPlan, items bool) error {
	g := plan.Group()
	methods := 0
	for _, ms := range g.Methods {
		methods += len(ms)
	}
	fmt.Fprintf(a.stdout, "Format %s, %d items in %d files (%d files excluded)\n",
		orDash(plan.Format), plan.TotalItems, len(plan.IncludedFiles), len(plan.ExcludedFiles))
	if err := a.table([]string{"KIND", "COUNT"}, [][]string{
		{"functions", fmt.Sprint(len(g.Functions))},
		{"classes", fmt.Sprint(len(g.Classes))},
		{"methods", fmt.Sprint(methods)},
	}); err != nil {
		return err
	}
	if !items {
		return nil
	}
	fmt.Fprintln(a.stdout)
	rows := make([][]string, 0, len(plan.Items))
	for _, it := range g.Functions {
		rows = append(rows, []string{it.File, it.Type, it.Name})
	}
	for _, it := range g.Classes {
		rows = append(rows, []string{it.File, it.Type, it.Name})
	}
	keys := make([]string, 0, len(g.Methods))
	for k := range g.Methods {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, it := range g.Methods[k] {
			rows = append(rows, []string{it.File, it.Type, it.ParentClass + "." + it.Name})
		}
	}
	return a.table([]string{"FILE", "KIND", "NAME"}, rows)
}

type generateFlags struct {
	req     types.GenerateRequest
	warmup  bool
	wait    bool
	archive bool
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate [project-id]",
		Short: "Generate docstrings with the model",
		Long: `Generate docstrings for everything the plan includes.

The request has no timeout since the model may need minutes to start. Server
errors (5xx) are retried up to 3 attempts, waiting 5s and then 10s; client
errors (4xx) are not retried. Press Ctrl-C to cancel.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.projectID(args)
			if err != nil {
				return err
			}
			return a.generate(cmd.Context(), id, f)
		},
	}
	cmd.Flags().IntVar(&f.req.BatchSize, "batch-size", 0, "items per model batch (service default when 0)")
	cmd.Flags().Float64Var(&f.req.Temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().Float64Var(&f.req.TopP, "top-p", 0, "nucleus sampling probability")
	cmd.Flags().IntVar(&f.req.TopK, "top-k", 0, "top-k sampling")
	cmd.Flags().BoolVar(&f.warmup, "warmup", false, "ping the model before generating")
	cmd.Flags().BoolVar(&f.wait, "wait", true, "wait for the new revision to appear")
	cmd.Flags().BoolVar(&f.archive, "archive", false, "download the new revision into the local archive")
	return cmd
}

func (a *app) generate(ctx context.Context, projectID string, f generateFlags) error {
	if f.warmup {
		if status, err := a.client.Warmup(ctx); err != nil {
			a.warn("Warmup failed (%v); generating anyway", err)
		} else if status != "" {
			a.info("Model status: %s", status)
		}
	}

	runner := generation.NewRunner(a.client, a.log.Named("generation"))
	runner.Policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		a.warn("Attempt %d failed (%v); retrying in %s", attempt, err, delay)
	}
	var last generation.ModelStatus
	a.info("Generating docstrings for %s...", projectID)
	res := runner.Run(ctx, projectID, f.req, func(s generation.ModelStatus) {
		if s == last {
			return
		}
		last = s
		switch s {
		case generation.StatusBooting:
			a.info("Model is starting up...")
		case generation.StatusPaused:
			a.info("Model is paused")
		}
	})
	a.invalidate(projectID)

	if res.Outcome != generation.OutcomeSucceeded {
		if a.opts.json {
			_ = a.printJSON(map[string]any{"outcome": res.Outcome, "attempts": res.Attempts, "message": res.Message})
		}
		if res.Outcome == generation.OutcomeCanceled {
			a.warn("%s", res.Message)
			return nil
		}
		return fmt.Errorf("%s", res.Message)
	}
	a.success("%s", res.Message)

	if !f.wait && !f.archive {
		return nil
	}
	rev, found, err := runner.WaitForLatest(ctx, projectID)
	if err != nil {
		return err
	}
	if !found {
		a.warn("The new revision has not appeared yet; check `docscribe revisions list` later")
		return nil
	}
	if a.opts.json {
		if err := a.printJSON(map[string]any{"outcome": res.Outcome, "attempts": res.Attempts, "revision": rev}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(a.stdout, "Revision %s (%s)\n", rev.Key(), orDash(rev.Format))
	}
	if f.archive {
		_, err := a.archiveRevision(ctx, projectID, rev.Key())
		return err
	}
	return nil
}

func newWarmupCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "warmup",
		Short: "Wake the model so the next generation starts quickly",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.client.Warmup(cmd.Context())
			if err != nil {
				return err
			}
			a.success("Model warm (%s)", orDash(status))
			return nil
		},
	}
}
