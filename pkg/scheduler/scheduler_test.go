package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/gate"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/pipeline"
	"github.com/draftcoreservices-svg/immigration-intel-brief/pkg/scheduler/mocks"
)

func TestNewScheduler(t *testing.T) {
	s := NewScheduler(&mocks.RunnerMock{}, 5*time.Minute)
	assert.Equal(t, 5*time.Minute, s.interval)

	s = NewScheduler(&mocks.RunnerMock{}, 0)
	assert.Equal(t, DefaultInterval, s.interval)
}

func TestScheduler_StartStop(t *testing.T) {
	runner := &mocks.RunnerMock{
		RunFunc: func(context.Context, pipeline.Trigger) (pipeline.Result, error) {
			return pipeline.Result{Skipped: "outside send window"}, nil
		},
	}
	s := NewScheduler(runner, 10*time.Millisecond)
	s.Start(context.Background())

	require.Eventually(t, func() bool { return len(runner.RunCalls()) >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()

	calls := len(runner.RunCalls())
	for _, c := range runner.RunCalls() {
		assert.Equal(t, pipeline.TriggerScheduled, c.Trigger)
	}
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, runner.RunCalls(), calls, "no triggers after stop")
}

func TestScheduler_TriggerErrors(t *testing.T) {
	errs := []error{pipeline.ErrBusy, errors.New("boom"), nil}
	i := 0
	runner := &mocks.RunnerMock{
		RunFunc: func(context.Context, pipeline.Trigger) (pipeline.Result, error) {
			err := errs[i%len(errs)]
			i++
			return pipeline.Result{}, err
		},
	}
	s := NewScheduler(runner, time.Hour)
	for range errs {
		s.trigger(context.Background())
	}
	assert.Len(t, runner.RunCalls(), 3)
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(&mocks.RunnerMock{}, time.Minute)
	assert.NotPanics(t, s.Stop)
}

func TestScheduler_TicksLandInGateWindowForAnyStart(t *testing.T) {
	g, err := gate.New("Europe/London", 7, gate.DefaultWindow)
	require.NoError(t, err)

	// three days across the spring clock change
	base := time.Date(2025, 3, 29, 0, 0, 0, 0, time.UTC)
	for offset := time.Duration(0); offset < DefaultInterval; offset += 30 * time.Second {
		start := base.Add(offset)
		days := map[string]bool{}
		for tick := start; tick.Before(start.Add(72 * time.Hour)); tick = tick.Add(DefaultInterval) {
			if g.ShouldRunNow(tick) {
				days[g.Date(tick)] = true
			}
		}
		assert.Len(t, days, 3, "start offset %v", offset)
	}
}
