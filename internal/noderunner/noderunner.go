// Package noderunner implements NodeRunner: the component that drives
// one node through one wave — port-input assembly, the retry loop,
// timing, and error capture.
package noderunner

import (
	"context"
	"fmt"
	"time"

	"github.com/flowcraft/corerun/internal/domain"
	"github.com/flowcraft/corerun/internal/events"
	"github.com/flowcraft/corerun/internal/execstate"
	"github.com/flowcraft/corerun/internal/graph"
	"github.com/flowcraft/corerun/internal/retry"
)

// Runner drives nodes against one Graph and one ExecutionState.
type Runner struct {
	Graph    *graph.Graph
	State    *execstate.ExecutionState
	Notifier events.Notifier
}

// New returns a Runner; a nil notifier is replaced with a no-op one.
func New(g *graph.Graph, state *execstate.ExecutionState, notifier events.Notifier) *Runner {
	if notifier == nil {
		notifier = events.NoOp{}
	}
	return &Runner{Graph: g, State: state, Notifier: events.Safe{Notifier: notifier}}
}

// Run drives node through exactly one wave: input assembly, the retry
// loop around Processor.Process, and terminal status recording. It
// returns nil on success (including a no-op skip of a disabled node)
// and a domain.NodeError wrapping the last process error otherwise.
func (r *Runner) Run(ctx context.Context, node *domain.Node) error {
	if node.Disabled {
		r.Notifier.Notify(events.Event{Type: events.NodeSkipped, Timestamp: time.Now(), NodeName: node.Name, NodeType: node.NodeType, Message: "disabled"})
		return nil
	}

	input := r.assembleInput(node)

	if err := node.Start(); err != nil {
		return err
	}
	r.State.RecordNodeStart(node.Name)
	r.Notifier.Notify(events.Event{Type: events.NodeStarted, Timestamp: time.Now(), NodeName: node.Name, NodeType: node.NodeType})

	nc := &domain.NodeContext{Input: input, State: r.State}
	policy := retry.FromNode(node.RetryOnFail, node.RetryDelay)

	attempt := 1
	var lastErr error
	for {
		result, err := node.Processor.Process(ctx, nc)
		if err == nil {
			r.complete(node, result)
			return nil
		}
		lastErr = err

		if !policy.ShouldRetry(attempt, node.MaxRetries) {
			break
		}

		r.Notifier.Notify(events.Event{Type: events.NodeRetrying, Timestamp: time.Now(), NodeName: node.Name, NodeType: node.NodeType, Attempt: attempt, Err: err})

		delay := policy.Delay(attempt)
		if delay > 0 {
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				goto failed
			case <-time.After(delay):
			}
		}
		attempt++
	}

failed:
	nodeErr := &domain.NodeError{NodeName: node.Name, Attempt: attempt, Err: fmt.Errorf("%w: %v", domain.ErrNodeProcessFailed, lastErr)}
	node.Fail(nodeErr)
	r.State.RecordNodeEnd(node.Name, domain.StatusFailed)
	r.Notifier.Notify(events.Event{Type: events.NodeFailed, Timestamp: time.Now(), NodeName: node.Name, NodeType: node.NodeType, Attempt: attempt, Err: lastErr})
	return nodeErr
}

func (r *Runner) complete(node *domain.Node, result map[string]domain.PortValue) {
	if result == nil {
		result = make(map[string]domain.PortValue)
	}
	r.State.SetNodeOutput(node.Name, result)
	node.Complete(result)
	r.State.RecordNodeEnd(node.Name, domain.StatusCompleted)
	r.Notifier.Notify(events.Event{Type: events.NodeCompleted, Timestamp: time.Now(), NodeName: node.Name, NodeType: node.NodeType})
}

// assembleInput builds context.input by consulting the Graph's reverse
// adjacency: for each declared input port, the values produced on
// every incoming link are concatenated in link-insertion order. A
// port with no contributing links, or whose sole contributor has not
// produced output (e.g. it is disabled), becomes an empty list.
func (r *Runner) assembleInput(node *domain.Node) map[string]domain.PortValue {
	input := make(map[string]domain.PortValue, len(node.Inputs))
	for _, port := range node.Inputs {
		var values domain.PortValue
		for _, link := range r.Graph.IncomingLinks(node.Name, port.Name) {
			contribution, ok := r.State.RawOutputPort(link.Source, link.SourcePort)
			if !ok {
				continue
			}
			values = append(values, contribution...)
		}
		input[port.Name] = values
	}
	return input
}
