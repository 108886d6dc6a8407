package domain

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NodeContext is handed to a node's Processor on each invocation: the
// assembled input for every port plus a read-only view of everything
// prior waves have produced.
type NodeContext struct {
	Input map[string]PortValue
	State StateView
}

// StateView is the read-only slice of ExecutionState a running node may
// consult. Defined here, rather than imported from the execstate
// package, so domain has no dependency on it — execstate depends on
// domain instead.
type StateView interface {
	NodeOutput(name string) (map[string]PortValue, bool)
	NodeOutputPort(name, port string) (any, bool)
}

// Processor is the behavior a NodeType contributes to a Node. It is the
// systems-language stand-in for "duck-typed, has a process method":
// any concrete node body registers one of these against a NodeType and
// the engine only ever calls through the interface.
type Processor interface {
	Process(ctx context.Context, nc *NodeContext) (map[string]PortValue, error)
}

// Node is a stateful unit in a Graph. Its identity, port shape and
// policy fields are set by the caller before the Node is added to a
// Graph and are not changed by the engine; its status/resultData/error
// are per-run mutable state cleared by Reset at the start of every run.
type Node struct {
	Name     string
	ID       uuid.UUID
	NodeType string
	Version  int

	Inputs  []Port
	Outputs []Port

	IsTrigger      bool
	Disabled       bool
	ContinueOnFail bool
	RetryOnFail    bool
	MaxRetries     int
	RetryDelay     RetryDelay

	Config    map[string]any
	Processor Processor

	mu         sync.Mutex
	status     Status
	lastErr    error
	resultData map[string]PortValue
	startedAt  time.Time
	finishedAt time.Time
}

// NewNode constructs a Node in Idle state with a freshly generated ID.
func NewNode(name, nodeType string) *Node {
	return &Node{
		Name:       name,
		ID:         uuid.New(),
		NodeType:   nodeType,
		Version:    1,
		status:     StatusIdle,
		resultData: make(map[string]PortValue),
	}
}

// InputPort looks up one of the node's declared input ports by name.
func (n *Node) InputPort(name string) (Port, bool) {
	for _, p := range n.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// OutputPort looks up one of the node's declared output ports by name.
func (n *Node) OutputPort(name string) (Port, bool) {
	for _, p := range n.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return Port{}, false
}

// Reset clears all per-run mutable state. Called by the engine before
// every run, for every node in the graph.
func (n *Node) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = StatusIdle
	n.lastErr = nil
	n.resultData = make(map[string]PortValue)
	n.startedAt = time.Time{}
	n.finishedAt = time.Time{}
}

// Status returns the node's current lifecycle tag.
func (n *Node) Status() Status {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.status
}

// LastError returns the error from the most recent failed attempt, if any.
func (n *Node) LastError() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastErr
}

// ResultData returns the node's per-run output, port by port.
func (n *Node) ResultData() map[string]PortValue {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[string]PortValue, len(n.resultData))
	for k, v := range n.resultData {
		out[k] = v
	}
	return out
}

// Start transitions Idle -> Running and stamps the start time.
func (n *Node) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.status == StatusRunning {
		return &NodeError{NodeName: n.Name, Err: ErrInvalidStateTransition}
	}
	n.status = StatusRunning
	n.startedAt = time.Now()
	return nil
}

// Complete records a successful result and transitions to Completed.
func (n *Node) Complete(output map[string]PortValue) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = StatusCompleted
	n.lastErr = nil
	n.resultData = output
	n.finishedAt = time.Now()
}

// Fail records the terminal error and transitions to Failed.
func (n *Node) Fail(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.status = StatusFailed
	n.lastErr = err
	n.finishedAt = time.Now()
}

// Duration returns how long the node's most recent attempt has taken,
// or is currently taking if it has not finished.
func (n *Node) Duration() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.startedAt.IsZero() {
		return 0
	}
	if n.finishedAt.IsZero() {
		return time.Since(n.startedAt)
	}
	return n.finishedAt.Sub(n.startedAt)
}
