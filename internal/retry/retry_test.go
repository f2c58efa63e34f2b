package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type statusErr int

func (e statusErr) Error() string   { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatus() int { return int(e) }

type recordingSleep struct {
	waits []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.waits = append(r.waits, d)
	return ctx.Err()
}

func TestGenerationPolicyThreeServerErrors(t *testing.T) {
	rec := &recordingSleep{}
	p := GenerationPolicy()
	p.Sleep = rec.sleep

	attempts := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		attempts++
		return statusErr(http.StatusServiceUnavailable)
	})

	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, rec.waits)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)
	status, ok := StatusOf(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestGenerationPolicyClientErrorIsTerminal(t *testing.T) {
	rec := &recordingSleep{}
	p := GenerationPolicy()
	p.Sleep = rec.sleep

	attempts := 0
	err := p.Do(context.Background(), func(context.Context, int) error {
		attempts++
		return statusErr(http.StatusTooManyRequests)
	})

	assert.Equal(t, 1, attempts)
	assert.Empty(t, rec.waits)
	assert.Equal(t, statusErr(http.StatusTooManyRequests), err)
}

func TestDoSucceedsAfterRetry(t *testing.T) {
	rec := &recordingSleep{}
	var retried []int
	p := GenerationPolicy()
	p.Sleep = rec.sleep
	p.OnRetry = func(attempt int, _ time.Duration, _ error) { retried = append(retried, attempt) }

	err := p.Do(context.Background(), func(_ context.Context, attempt int) error {
		if attempt < 2 {
			return statusErr(http.StatusBadGateway)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, []int{1}, retried)
	assert.Equal(t, []time.Duration{5 * time.Second}, rec.waits)
}

func TestDoStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 5, Delays: []time.Duration{time.Hour}}

	errc := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		errc <- p.Do(ctx, func(context.Context, int) error {
			select {
			case <-started:
			default:
				close(started)
			}
			return errors.New("flaky")
		})
	}()
	<-started
	cancel()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancel")
	}
}

func TestDoContextErrorIsNotRetried(t *testing.T) {
	attempts := 0
	err := Policy{MaxAttempts: 3}.Do(context.Background(), func(context.Context, int) error {
		attempts++
		return fmt.Errorf("request: %w", context.DeadlineExceeded)
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPermanent(t *testing.T) {
	attempts := 0
	base := errors.New("bad input")
	err := Policy{MaxAttempts: 3}.Do(context.Background(), func(context.Context, int) error {
		attempts++
		return Permanent(base)
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, base)
	assert.True(t, IsPermanent(err))
	assert.Nil(t, Permanent(nil))
}

func TestDelayReusesLast(t *testing.T) {
	p := GenerationPolicy()
	assert.Equal(t, time.Duration(0), p.Delay(0))
	assert.Equal(t, 5*time.Second, p.Delay(1))
	assert.Equal(t, 20*time.Second, p.Delay(3))
	assert.Equal(t, 20*time.Second, p.Delay(9))
	assert.Equal(t, time.Duration(0), Policy{}.Delay(1))
}

func TestZeroPolicyRunsOnce(t *testing.T) {
	attempts := 0
	err := Policy{}.Do(context.Background(), func(context.Context, int) error {
		attempts++
		return errors.New("x")
	})
	assert.Equal(t, 1, attempts)
	var ex *ExhaustedError
	assert.ErrorAs(t, err, &ex)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
