package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MarlyH/CorpsAPI-sub000/internal/dto"
	"github.com/MarlyH/CorpsAPI-sub000/internal/service"
)

type mockSweepRunner struct {
	mock.Mock
}

func (m *mockSweepRunner) RunSweep(ctx context.Context, name string) (*dto.SweepResult, error) {
	args := m.Called(ctx, name)
	res, _ := args.Get(0).(*dto.SweepResult)
	return res, args.Error(1)
}

func TestScheduler_RunsEverySweepOnStart(t *testing.T) {
	runner := &mockSweepRunner{}
	for _, name := range []string{service.SweepRelease, service.SweepReminders, service.SweepConclude, service.SweepSuspensions} {
		runner.On("RunSweep", mock.Anything, name).Return(&dto.SweepResult{Sweep: name}, nil).Once()
	}
	runner.On("RunSweep", mock.Anything, mock.Anything).Return(&dto.SweepResult{}, nil).Maybe()

	s := NewScheduler(runner, &SchedulerConfig{
		ReleaseInterval:  time.Hour,
		ReminderInterval: time.Hour,
		DailyInterval:    time.Hour,
		RunOnStart:       true,
	})
	require.NoError(t, s.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return s.GetStats().Runs == 4
	}, time.Second, 5*time.Millisecond)

	s.Stop()
	runner.AssertExpectations(t)
	assert.Equal(t, int64(0), s.GetStats().Failures)
}

func TestScheduler_CountsFailures(t *testing.T) {
	runner := &mockSweepRunner{}
	runner.On("RunSweep", mock.Anything, service.SweepRelease).Return(nil, errors.New("db down"))
	runner.On("RunSweep", mock.Anything, mock.Anything).Return(&dto.SweepResult{}, nil)

	s := NewScheduler(runner, &SchedulerConfig{
		ReleaseInterval:  10 * time.Millisecond,
		ReminderInterval: time.Hour,
		DailyInterval:    time.Hour,
	})
	require.NoError(t, s.Start(context.Background()))

	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyRunning)

	assert.Eventually(t, func() bool {
		return s.GetStats().Failures >= 2
	}, time.Second, 5*time.Millisecond)

	s.Stop()
}

func TestScheduler_StopsWithContext(t *testing.T) {
	runner := &mockSweepRunner{}
	s := NewScheduler(runner, &SchedulerConfig{RunOnStart: false})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	runner.AssertNotCalled(t, "RunSweep", mock.Anything, mock.Anything)
}
