// Package scheduler implements the Engine: wave-by-wave dispatch,
// concurrency cap, cancellation, and the completion barrier that make
// up the core of the execution engine.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowcraft/corerun/internal/domain"
	"github.com/flowcraft/corerun/internal/events"
	"github.com/flowcraft/corerun/internal/execstate"
	"github.com/flowcraft/corerun/internal/graph"
	"github.com/flowcraft/corerun/internal/logging"
	"github.com/flowcraft/corerun/internal/noderunner"
	"github.com/flowcraft/corerun/internal/planner"
)

// PersistenceHook is the snapshot/restore boundary for ExecutionState.
// Implementations may be file-, database-, or in-memory-backed; the
// engine treats them as opaque.
type PersistenceHook interface {
	Persist(workflowID string, snap execstate.Snapshot, metadata map[string]any)
	Recover(workflowID string) (snap execstate.Snapshot, metadata map[string]any, ok bool)
}

// Engine is the Scheduler component: it owns one Graph and one
// ExecutionState and drives runs from either trigger kind.
type Engine struct {
	WorkflowID string

	graph    *graph.Graph
	state    *execstate.ExecutionState
	notifier events.Notifier
	options  Options
	hook     PersistenceHook
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	status  domain.Status
}

// New constructs an Engine over an already-built Graph. notifier and
// hook may be nil. logger may be nil, in which case logging.Default()
// builds an info-level JSON logger and also installs it as slog's
// package-level default.
func New(workflowID string, g *graph.Graph, options Options, notifier events.Notifier, hook PersistenceHook, logger *slog.Logger) *Engine {
	if notifier == nil {
		notifier = events.NoOp{}
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		WorkflowID: workflowID,
		graph:      g,
		state:      execstate.New(),
		notifier:   events.Safe{Notifier: notifier},
		options:    options,
		hook:       hook,
		logger:     logger,
		status:     domain.StatusIdle,
	}
}

// State exposes the engine's ExecutionState for read-only inspection
// between runs (e.g. by a caller wanting the final output).
func (e *Engine) State() *execstate.ExecutionState {
	return e.state
}

// Status returns the workflow-level lifecycle tag.
func (e *Engine) Status() domain.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Execute drives one run from triggerName through to Completed or
// Failed. initialData, if non-nil, seeds ExecutionState under the
// trigger's name instead of the trigger node's own resultData.
func (e *Engine) Execute(ctx context.Context, triggerName string, initialData map[string]domain.PortValue) error {
	if err := e.begin(); err != nil {
		e.logger.Warn("execute rejected", "workflow_id", e.WorkflowID, "trigger", triggerName, "error", err)
		return err
	}
	start := time.Now()
	e.logger.Info("run started", "workflow_id", e.WorkflowID, "trigger", triggerName)

	triggerNode, ok := e.graph.Node(triggerName)
	if !ok {
		e.finish(domain.StatusFailed)
		e.logger.Error("run failed", "workflow_id", e.WorkflowID, "trigger", triggerName, "error", domain.ErrNodeNotFound)
		return fmt.Errorf("execute %q: %w", triggerName, domain.ErrNodeNotFound)
	}

	if initialData == nil {
		initialData = triggerNode.ResultData()
	}
	e.resetAll()
	e.seedTrigger(triggerNode, initialData)

	names := e.graph.Reachable(triggerName)
	delete(names, triggerName)
	adjacency := e.graph.AdjacencyFrom(names)

	waves, err := planner.Plan(adjacency)
	if err != nil {
		e.finish(domain.StatusFailed)
		e.logger.Error("run failed", "workflow_id", e.WorkflowID, "trigger", triggerName, "error", err)
		return &domain.ExecutionError{TriggerName: triggerName, Err: err}
	}

	runner := noderunner.New(e.graph, e.state, e.notifier)

	if err := e.dispatch(ctx, runner, waves); err != nil {
		e.finish(domain.StatusFailed)
		e.logger.Error("run failed", "workflow_id", e.WorkflowID, "trigger", triggerName, "error", err, "duration", time.Since(start))
		return &domain.ExecutionError{TriggerName: triggerName, Err: err}
	}

	e.finish(domain.StatusCompleted)
	e.logger.Info("run completed", "workflow_id", e.WorkflowID, "trigger", triggerName, "duration", time.Since(start))

	if e.hook != nil {
		e.hook.Persist(e.WorkflowID, e.state.Export(), map[string]any{"trigger": triggerName})
	}
	return nil
}

func (e *Engine) begin() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return domain.ErrAlreadyExecuting
	}
	e.running = true
	e.status = domain.StatusRunning
	return nil
}

func (e *Engine) finish(status domain.Status) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.status = status
}

func (e *Engine) resetAll() {
	for _, n := range e.graph.Nodes() {
		n.Reset()
	}
	e.state.Clear()
}

func (e *Engine) seedTrigger(trigger *domain.Node, initialData map[string]domain.PortValue) {
	output := initialData
	if output == nil {
		output = trigger.ResultData()
	}
	if output == nil {
		output = make(map[string]domain.PortValue)
	}
	trigger.Complete(output)
	e.state.RecordNodeStart(trigger.Name)
	e.state.SetNodeOutput(trigger.Name, output)
	e.state.RecordNodeEnd(trigger.Name, domain.StatusCompleted)
}

// dispatch runs every wave in order, batching each wave by
// MaxParallelExecutions and halting at the first non-continuable
// terminal failure.
func (e *Engine) dispatch(ctx context.Context, runner *noderunner.Runner, waves [][]string) error {
	for waveIdx, names := range waves {
		start := time.Now()
		e.logger.Debug("wave started", "workflow_id", e.WorkflowID, "wave", waveIdx, "nodes", len(names))
		e.notifier.Notify(events.Event{Type: events.WaveStarted, Timestamp: start, WaveIndex: waveIdx, NodeCount: len(names)})

		for _, batch := range batches(names, e.options.MaxParallelExecutions) {
			fatalErr := e.runBatch(ctx, runner, batch)
			if fatalErr != nil {
				e.logger.Error("wave failed", "workflow_id", e.WorkflowID, "wave", waveIdx, "error", fatalErr)
				return fatalErr
			}
		}

		e.logger.Debug("wave completed", "workflow_id", e.WorkflowID, "wave", waveIdx, "duration", time.Since(start))
		e.notifier.Notify(events.Event{Type: events.WaveCompleted, Timestamp: time.Now(), WaveIndex: waveIdx, Duration: time.Since(start)})
	}
	return nil
}

// runBatch executes one batch of a wave concurrently and returns the
// first non-continuable failure, if any, after every node in the
// batch has settled.
func (e *Engine) runBatch(ctx context.Context, runner *noderunner.Runner, names []string) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var fatal error

	for _, name := range names {
		node, ok := e.graph.Node(name)
		if !ok {
			continue
		}
		wg.Add(1)
		go func(n *domain.Node) {
			defer wg.Done()
			if err := runner.Run(ctx, n); err != nil && !n.ContinueOnFail {
				mu.Lock()
				if fatal == nil {
					fatal = err
				}
				mu.Unlock()
			}
		}(node)
	}
	wg.Wait()
	return fatal
}

// batches partitions names into groups of size ≤ limit. limit ≤ 0
// means unlimited: one batch containing every name.
func batches(names []string, limit int) [][]string {
	if limit <= 0 || limit >= len(names) {
		return [][]string{names}
	}
	var out [][]string
	for i := 0; i < len(names); i += limit {
		end := i + limit
		if end > len(names) {
			end = len(names)
		}
		out = append(out, names[i:end])
	}
	return out
}
