package trigger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcraft/corerun/internal/domain"
)

func TestScheduleSetupArmsNextExecutionTime(t *testing.T) {
	node := domain.NewNode("cron", "trigger")
	exec := &recordingExecutor{}
	s := NewSchedule("cron", node, exec)

	err := s.Setup(Descriptor{Kind: KindInterval, Interval: 50 * time.Millisecond})
	require.NoError(t, err)
	assert.False(t, s.NextExecutionTime().IsZero())
}

func TestScheduleSetupRejectsInvalidDescriptor(t *testing.T) {
	node := domain.NewNode("cron", "trigger")
	exec := &recordingExecutor{}
	s := NewSchedule("cron", node, exec)

	err := s.Setup(Descriptor{Kind: KindInterval, Interval: 0})
	assert.Error(t, err)
}

func TestScheduleFiresRepeatedly(t *testing.T) {
	node := domain.NewNode("cron", "trigger")
	exec := &recordingExecutor{}
	s := NewSchedule("cron", node, exec)

	require.NoError(t, s.Setup(Descriptor{Kind: KindInterval, Interval: 20 * time.Millisecond}))
	defer s.Deactivate()

	require.Eventually(t, func() bool {
		calls, _ := exec.snapshot()
		return calls >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduleDeactivateStopsFurtherFirings(t *testing.T) {
	node := domain.NewNode("cron", "trigger")
	exec := &recordingExecutor{}
	s := NewSchedule("cron", node, exec)

	require.NoError(t, s.Setup(Descriptor{Kind: KindInterval, Interval: 15 * time.Millisecond}))
	time.Sleep(30 * time.Millisecond)
	s.Deactivate()

	callsAtStop, _ := exec.snapshot()
	time.Sleep(60 * time.Millisecond)
	callsAfter, _ := exec.snapshot()

	assert.Equal(t, callsAtStop, callsAfter)
	assert.True(t, s.NextExecutionTime().IsZero())
}

func TestScheduleSwallowsAlreadyExecutingError(t *testing.T) {
	node := domain.NewNode("cron", "trigger")
	busyExec := &blockingThenBusyExecutor{}
	s := NewSchedule("cron", node, busyExec)

	require.NoError(t, s.Setup(Descriptor{Kind: KindInterval, Interval: 10 * time.Millisecond}))
	defer s.Deactivate()

	time.Sleep(50 * time.Millisecond)
	assert.NotEqual(t, domain.StatusFailed, node.Status())
}

type blockingThenBusyExecutor struct {
	mu    sync.Mutex
	calls int
}

func (b *blockingThenBusyExecutor) Execute(context.Context, string, map[string]domain.PortValue) error {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	return domain.ErrAlreadyExecuting
}
