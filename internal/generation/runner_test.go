package generation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"docscribe/internal/api"
	"docscribe/internal/retry"
	"docscribe/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeDocs struct {
	mu sync.Mutex

	errs []error
	resp types.GenerateResponse

	calls    int
	updates  []types.ProjectUpdate
	lists    int
	revAfter int
}

func (d *fakeDocs) Generate(ctx context.Context, _ string, _ types.GenerateRequest) (types.GenerateResponse, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		if err != nil {
			return types.GenerateResponse{}, err
		}
	}
	return d.resp, nil
}

func (d *fakeDocs) ListRevisions(context.Context, string) (types.RevisionList, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lists++
	if d.revAfter > 0 && d.lists >= d.revAfter {
		return types.RevisionList{Revisions: []types.Revision{{ID: "r-new"}, {ID: "r-old"}}}, nil
	}
	if d.lists%2 == 0 {
		return types.RevisionList{}, errors.New("flaky")
	}
	return types.RevisionList{Revisions: []types.Revision{}}, nil
}

func (d *fakeDocs) UpdateProject(_ context.Context, _ string, in types.ProjectUpdate) (types.Project, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updates = append(d.updates, in)
	return types.Project{}, nil
}

func statusErr(code int, modelStatus string) error {
	return &api.StatusError{StatusCode: code, ModelStatus: modelStatus, Method: http.MethodPost, Path: "/documentation/projects/p1/generate"}
}

type fakeClock struct {
	now   time.Time
	waits []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	c.now = c.now.Add(d)
	return ctx.Err()
}

func newTestRunner(docs Docs) (*Runner, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	r := NewRunner(docs, nil)
	r.Policy.Sleep = clock.Sleep
	r.Now = clock.Now
	r.Sleep = clock.Sleep
	return r, clock
}

func TestRunThreeServerErrors(t *testing.T) {
	docs := &fakeDocs{errs: []error{statusErr(503, ""), statusErr(503, ""), statusErr(503, "")}}
	r, clock := newTestRunner(docs)
	var statuses []ModelStatus

	res := r.Run(context.Background(), "p1", types.GenerateRequest{}, func(s ModelStatus) { statuses = append(statuses, s) })

	assert.Equal(t, OutcomeUnavailable, res.Outcome)
	assert.Equal(t, 3, docs.calls)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, clock.waits)
	assert.Equal(t, MsgUnavailable, res.Message)
	assert.Equal(t, []ModelStatus{StatusProcessing, StatusBooting, StatusBooting, StatusBooting}, statuses)
	assert.Empty(t, docs.updates)
}

func TestRunClientErrorIsNotRetried(t *testing.T) {
	docs := &fakeDocs{errs: []error{statusErr(422, "")}}
	r, clock := newTestRunner(docs)
	var last ModelStatus

	res := r.Run(context.Background(), "p1", types.GenerateRequest{}, func(s ModelStatus) { last = s })

	assert.Equal(t, OutcomeRejected, res.Outcome)
	assert.Equal(t, MsgRejected, res.Message)
	assert.Equal(t, 1, docs.calls)
	assert.Empty(t, clock.waits)
	assert.Equal(t, StatusPaused, last)
}

func TestRunModelHeaderWins(t *testing.T) {
	docs := &fakeDocs{errs: []error{statusErr(503, "paused")}, resp: types.GenerateResponse{}}
	r, _ := newTestRunner(docs)
	var statuses []ModelStatus

	res := r.Run(context.Background(), "p1", types.GenerateRequest{}, func(s ModelStatus) { statuses = append(statuses, s) })

	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, []ModelStatus{StatusProcessing, StatusPaused, StatusProcessing}, statuses)
}

func TestRunSucceedsAfterRetry(t *testing.T) {
	docs := &fakeDocs{
		errs: []error{statusErr(502, "booting"), nil},
		resp: types.GenerateResponse{
			Results:               []json.RawMessage{[]byte(`{}`), []byte(`{}`), []byte(`{}`)},
			GenerationTimeSeconds: 125.7,
		},
	}
	r, clock := newTestRunner(docs)

	res := r.Run(context.Background(), "p1", types.GenerateRequest{}, nil)

	require.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.waits)
	assert.Equal(t, "Generated 3 docstrings in 2m 5s", res.Message)
	require.Len(t, docs.updates, 1)
	assert.Equal(t, types.ProjectComplete, *docs.updates[0].Status)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	docs := &fakeDocs{errs: []error{context.Canceled}}
	r, _ := newTestRunner(docs)
	var last ModelStatus

	res := r.Run(ctx, "p1", types.GenerateRequest{}, func(s ModelStatus) { last = s })

	assert.Equal(t, OutcomeCanceled, res.Outcome)
	assert.Equal(t, MsgCanceled, res.Message)
	assert.Equal(t, StatusPaused, last)
}

func TestRunCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	docs := &fakeDocs{errs: []error{statusErr(503, "")}}
	r, _ := newTestRunner(docs)
	r.Policy.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}

	res := r.Run(ctx, "p1", types.GenerateRequest{}, nil)

	assert.Equal(t, OutcomeCanceled, res.Outcome, "cancellation is never reported as failure")
	assert.Equal(t, 1, docs.calls)
}

func TestRunDeadlineIsCanceled(t *testing.T) {
	docs := &fakeDocs{errs: []error{context.DeadlineExceeded}}
	r, _ := newTestRunner(docs)

	res := r.Run(context.Background(), "p1", types.GenerateRequest{}, nil)
	assert.Equal(t, OutcomeCanceled, res.Outcome)
}

func TestRunOtherErrorUsesMessage(t *testing.T) {
	docs := &fakeDocs{errs: []error{errors.New("dial tcp: connection refused")}}
	r, _ := newTestRunner(docs)

	res := r.Run(context.Background(), "p1", types.GenerateRequest{}, nil)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.Equal(t, "dial tcp: connection refused", res.Message)
	assert.Equal(t, 1, docs.calls)
}

func TestSummaryFallsBackToElapsed(t *testing.T) {
	res := Result{Elapsed: 61 * time.Second}
	assert.Equal(t, "Generated 0 docstrings in 1m 1s", res.Summary())
}

func TestWaitForLatest(t *testing.T) {
	docs := &fakeDocs{revAfter: 4}
	r, clock := newTestRunner(docs)

	rev, found, err := r.WaitForLatest(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "r-new", rev.ID)
	assert.Equal(t, 4, docs.lists)
	assert.Len(t, clock.waits, 3)
}

func TestWaitForLatestTimesOut(t *testing.T) {
	docs := &fakeDocs{}
	r, clock := newTestRunner(docs)

	_, found, err := r.WaitForLatest(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 30, docs.lists)
	for _, w := range clock.waits {
		assert.Equal(t, DefaultPollInterval, w)
	}
}

func TestWaitForLatestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, _ := newTestRunner(&fakeDocs{})

	_, found, err := r.WaitForLatest(ctx, "p1")
	assert.False(t, found)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultPolicy(t *testing.T) {
	r := NewRunner(&fakeDocs{}, nil)
	assert.Equal(t, 3, r.Policy.MaxAttempts)
	assert.Equal(t, retry.GenerationDelays, r.Policy.Delays)
}
