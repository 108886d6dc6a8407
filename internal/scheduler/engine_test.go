package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcraft/corerun/internal/domain"
	"github.com/flowcraft/corerun/internal/events"
	"github.com/flowcraft/corerun/internal/graph"
)

type echoProcessor struct{ addend float64 }

func (e echoProcessor) Process(_ context.Context, nc *domain.NodeContext) (map[string]domain.PortValue, error) {
	var total float64
	for _, rec := range nc.Input["in"] {
		if v, ok := rec["value"].(float64); ok {
			total += v
		}
	}
	return map[string]domain.PortValue{"out": {domain.Record{"value": total + e.addend}}}, nil
}

type failingProcessor struct{}

func (failingProcessor) Process(context.Context, *domain.NodeContext) (map[string]domain.PortValue, error) {
	return nil, errors.New("boom")
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingNotifier) Notify(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingNotifier) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func linearGraph(t *testing.T) (*graph.Graph, *domain.Node) {
	t.Helper()
	g := graph.New()

	seed := domain.NewNode("seed", "trigger")
	seed.IsTrigger = true
	seed.Outputs = []domain.Port{{Name: "out", DataType: "number", Kind: domain.LinkStandard}}
	require.NoError(t, g.AddNode(seed))

	addOne := domain.NewNode("add-one", "adder")
	addOne.Inputs = []domain.Port{{Name: "in", DataType: "number", Kind: domain.LinkStandard}}
	addOne.Outputs = []domain.Port{{Name: "out", DataType: "number", Kind: domain.LinkStandard}}
	addOne.Processor = echoProcessor{addend: 1}
	require.NoError(t, g.AddNode(addOne))

	addThree := domain.NewNode("add-three", "adder")
	addThree.Inputs = []domain.Port{{Name: "in", DataType: "number", Kind: domain.LinkStandard}}
	addThree.Outputs = []domain.Port{{Name: "out", DataType: "number", Kind: domain.LinkStandard}}
	addThree.Processor = echoProcessor{addend: 3}
	require.NoError(t, g.AddNode(addThree))

	require.NoError(t, g.LinkNodes("seed", "out", "add-one", "in"))
	require.NoError(t, g.LinkNodes("add-one", "out", "add-three", "in"))

	return g, seed
}

func TestEngineExecuteLinearChain(t *testing.T) {
	g, _ := linearGraph(t)
	notifier := &recordingNotifier{}
	e := New("wf", g, DefaultOptions(), notifier, nil, nil)

	err := e.Execute(context.Background(), "seed", map[string]domain.PortValue{
		"out": {domain.Record{"value": 1.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, e.Status())

	out, ok := e.State().NodeOutputPort("add-three", "out")
	require.True(t, ok)
	assert.Equal(t, domain.Record{"value": 5.0}, out)

	assert.Contains(t, notifier.types(), events.WaveStarted)
	assert.Contains(t, notifier.types(), events.WaveCompleted)
}

func TestEngineExecuteRejectsConcurrentRun(t *testing.T) {
	g, _ := linearGraph(t)
	e := New("wf", g, DefaultOptions(), nil, nil, nil)

	require.NoError(t, e.begin())
	err := e.Execute(context.Background(), "seed", nil)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExecuting))
}

func TestEngineExecutePropagatesNodeFailure(t *testing.T) {
	g := graph.New()
	seed := domain.NewNode("seed", "trigger")
	seed.IsTrigger = true
	seed.Outputs = []domain.Port{{Name: "out", DataType: "number", Kind: domain.LinkStandard}}
	require.NoError(t, g.AddNode(seed))

	failer := domain.NewNode("failer", "bad")
	failer.Inputs = []domain.Port{{Name: "in", DataType: "number", Kind: domain.LinkStandard}}
	failer.Processor = failingProcessor{}
	require.NoError(t, g.AddNode(failer))
	require.NoError(t, g.LinkNodes("seed", "out", "failer", "in"))

	e := New("wf", g, DefaultOptions(), nil, nil, nil)
	err := e.Execute(context.Background(), "seed", map[string]domain.PortValue{"out": {domain.Record{"value": 1.0}}})
	require.Error(t, err)
	var execErr *domain.ExecutionError
	assert.ErrorAs(t, err, &execErr)
	assert.Equal(t, domain.StatusFailed, e.Status())
}

func TestEngineExecuteHonorsMaxParallelExecutions(t *testing.T) {
	g := graph.New()
	seed := domain.NewNode("seed", "trigger")
	seed.IsTrigger = true
	seed.Outputs = []domain.Port{{Name: "out", DataType: "number", Kind: domain.LinkStandard}}
	require.NoError(t, g.AddNode(seed))

	for _, name := range []string{"a", "b", "c"} {
		n := domain.NewNode(name, "adder")
		n.Inputs = []domain.Port{{Name: "in", DataType: "number", Kind: domain.LinkStandard}}
		n.Outputs = []domain.Port{{Name: "out", DataType: "number", Kind: domain.LinkStandard}}
		n.Processor = echoProcessor{addend: 1}
		require.NoError(t, g.AddNode(n))
		require.NoError(t, g.LinkNodes("seed", "out", name, "in"))
	}

	e := New("wf", g, Options{MaxParallelExecutions: 2}, nil, nil, nil)
	err := e.Execute(context.Background(), "seed", map[string]domain.PortValue{"out": {domain.Record{"value": 0.0}}})
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		out, ok := e.State().NodeOutputPort(name, "out")
		require.True(t, ok)
		assert.Equal(t, domain.Record{"value": 1.0}, out)
	}
}
