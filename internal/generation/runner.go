// Package generation drives docstring generation against the model-backed
// service: bounded retries on server errors, model status reporting, and
// waiting for the resulting revision.
package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"docscribe/internal/api"
	"docscribe/internal/retry"
	"docscribe/internal/types"
)

const (
	DefaultPollInterval = 2 * time.Second
	DefaultPollTimeout  = 60 * time.Second

	MsgCanceled    = "Generation canceled."
	MsgUnavailable = "The model service is starting up (5xx). Please wait and try again."
	MsgRejected    = "Model is currently unavailable (4xx). Please try again later."
	MsgFailed      = "Generation failed"
)

// Docs is the part of the API client generation needs.
type Docs interface {
	Generate(ctx context.Context, projectID string, req types.GenerateRequest) (types.GenerateResponse, error)
	ListRevisions(ctx context.Context, projectID string) (types.RevisionList, error)
	UpdateProject(ctx context.Context, projectID string, in types.ProjectUpdate) (types.Project, error)
}

// ModelStatus is what the UI shows about the model while generating.
type ModelStatus string

const (
	StatusProcessing ModelStatus = "processing"
	StatusBooting    ModelStatus = "booting"
	StatusPaused     ModelStatus = "paused"
)

type Outcome string

const (
	OutcomeSucceeded   Outcome = "succeeded"
	OutcomeCanceled    Outcome = "canceled"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeRejected    Outcome = "rejected"
	OutcomeFailed      Outcome = "failed"
)

type Result struct {
	Outcome  Outcome
	Attempts int
	Response types.GenerateResponse
	Elapsed  time.Duration
	// Message is the user-facing line for the outcome.
	Message string
	Err     error
}

// Summary renders "Generated N docstrings in Xm Ys". The server-reported
// generation time wins over the locally measured one.
func (r Result) Summary() string {
	secs := r.Response.GenerationTimeSeconds
	if secs <= 0 {
		secs = r.Elapsed.Seconds()
	}
	total := int(math.Floor(secs))
	return fmt.Sprintf("Generated %d docstrings in %dm %ds", len(r.Response.Results), total/60, total%60)
}

// Runner runs generation. The zero value is not usable; Docs is required.
type Runner struct {
	Docs   Docs
	Policy retry.Policy
	Logger *zap.Logger

	PollInterval time.Duration
	PollTimeout  time.Duration

	// Now and Sleep drive polling; nil uses the wall clock.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewRunner uses the generation retry policy and default polling.
func NewRunner(docs Docs, logger *zap.Logger) *Runner {
	return &Runner{
		Docs:         docs,
		Policy:       retry.GenerationPolicy(),
		Logger:       logger,
		PollInterval: DefaultPollInterval,
		PollTimeout:  DefaultPollTimeout,
	}
}

func (r *Runner) log() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// Run generates docstrings for the project. onStatus, when set, receives
// every model status change. Cancel ctx to abort; the request itself has no
// timeout.
func (r *Runner) Run(ctx context.Context, projectID string, req types.GenerateRequest, onStatus func(ModelStatus)) Result {
	emit := func(s ModelStatus) {
		if onStatus != nil {
			onStatus(s)
		}
	}
	log := r.log().With(zap.String("project_id", projectID))
	start := r.now()
	emit(StatusProcessing)

	policy := r.Policy
	if policy.Retryable == nil {
		policy.Retryable = retry.ServerError
	}
	userOnRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		log.Info("generation retry scheduled",
			zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
		if userOnRetry != nil {
			userOnRetry(attempt, delay, err)
		}
	}

	var (
		res      Result
		attempts int
	)
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		resp, err := r.Docs.Generate(ctx, projectID, req)
		if err != nil {
			if s, ok := statusFor(err); ok && !canceled(ctx, err) {
				emit(s)
			}
			return err
		}
		res.Response = resp
		return nil
	})
	res.Attempts = attempts
	res.Elapsed = r.now().Sub(start)

	if err == nil {
		emit(StatusProcessing)
		res.Outcome = OutcomeSucceeded
		res.Message = res.Summary()
		log.Info("generation finished",
			zap.Int("attempts", attempts), zap.Int("results", len(res.Response.Results)))
		r.markComplete(ctx, projectID)
		return res
	}

	res.Err = err
	status, hasStatus := api.StatusOf(err)
	switch {
	case canceled(ctx, err):
		emit(StatusPaused)
		res.Outcome = OutcomeCanceled
		res.Message = MsgCanceled
	case hasStatus && status >= http.StatusInternalServerError:
		res.Outcome = OutcomeUnavailable
		res.Message = MsgUnavailable
	case hasStatus && status >= http.StatusBadRequest:
		res.Outcome = OutcomeRejected
		res.Message = MsgRejected
	default:
		res.Outcome = OutcomeFailed
		res.Message = failureMessage(err)
	}
	log.Warn("generation did not succeed",
		zap.String("outcome", string(res.Outcome)), zap.Int("attempts", attempts), zap.Error(err))
	return res
}

func (r *Runner) markComplete(ctx context.Context, projectID string) {
	status := types.ProjectComplete
	if _, err := r.Docs.UpdateProject(ctx, projectID, types.ProjectUpdate{Status: &status}); err != nil {
		r.log().Debug("mark project complete failed", zap.String("project_id", projectID), zap.Error(err))
	}
}

// statusFor maps a failed attempt to the model status to show.
func statusFor(err error) (ModelStatus, bool) {
	switch api.ModelStatusOf(err) {
	case string(StatusBooting):
		return StatusBooting, true
	case string(StatusPaused):
		return StatusPaused, true
	}
	status, ok := api.StatusOf(err)
	switch {
	case !ok:
		return "", false
	case status >= http.StatusInternalServerError:
		return StatusBooting, true
	case status >= http.StatusBadRequest:
		return StatusPaused, true
	}
	return "", false
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func failureMessage(err error) string {
	if d := strings.TrimSpace(api.DetailOf(err)); d != "" {
		return d
	}
	var ex *retry.ExhaustedError
	if errors.As(err, &ex) && ex.Last != nil {
		err = ex.Last
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return MsgFailed
}

// WaitForLatest polls for the newest revision until one appears or the poll
// timeout passes. List errors are ignored. found is false on timeout.
func (r *Runner) WaitForLatest(ctx context.Context, projectID string) (rev types.Revision, found bool, err error) {
	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	timeout := r.PollTimeout
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = retry.Sleep
	}

	deadline := r.now().Add(timeout)
	for r.now().Before(deadline) {
		list, err := r.Docs.ListRevisions(ctx, projectID)
		if err == nil && len(list.Revisions) > 0 && list.Revisions[0].Key() != "" {
			return list.Revisions[0], true, nil
		}
		if err != nil {
			r.log().Debug("poll revisions failed", zap.String("project_id", projectID), zap.Error(err))
		}
		if err := sleep(ctx, interval); err != nil {
			return types.Revision{}, false, err
		}
	}
	return types.Revision{}, false, nil
}
