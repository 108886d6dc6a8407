// Package trigger implements ManualTrigger and ScheduleTrigger: the two
// initiators that invoke Engine.Execute.
package trigger

import (
	"context"

	"github.com/flowcraft/corerun/internal/domain"
)

// Executor is the slice of Engine a trigger needs: Execute. Defined
// here rather than imported from scheduler so neither package depends
// on the other's internals.
type Executor interface {
	Execute(ctx context.Context, triggerName string, initialData map[string]domain.PortValue) error
}

// Manual is a one-shot initiator bound to an engine. Trigger stores the
// payload as the trigger node's resultData and starts execution on a
// new goroutine so callers observe fire-and-forget semantics.
type Manual struct {
	Name        string
	Node        *domain.Node
	Engine      Executor
	InitialData map[string]domain.PortValue
}

// NewManual constructs a Manual trigger bound to node and engine.
func NewManual(name string, node *domain.Node, engine Executor, initialData map[string]domain.PortValue) *Manual {
	return &Manual{Name: name, Node: node, Engine: engine, InitialData: initialData}
}

// Trigger stores data (or the configured InitialData) as the trigger
// node's resultData and fires engine.Execute in a new goroutine,
// returning immediately.
func (m *Manual) Trigger(ctx context.Context, data map[string]domain.PortValue) {
	payload := data
	if payload == nil {
		payload = m.InitialData
	}
	m.Node.Complete(payload)
	go func() {
		_ = m.Engine.Execute(ctx, m.Name, payload)
	}()
}
