package trigger

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flowcraft/corerun/internal/domain"
)

// Schedule is a self-rescheduling timer that computes the next firing
// instant from a calendar-recurrence Descriptor and initiates a run.
type Schedule struct {
	Name   string
	Node   *domain.Node
	Engine Executor

	mu                sync.Mutex
	descriptor        Descriptor
	timer             *time.Timer
	nextExecutionTime time.Time
	active            bool
}

// NewSchedule constructs an inactive Schedule trigger; call Setup to
// validate a descriptor and arm it.
func NewSchedule(name string, node *domain.Node, engine Executor) *Schedule {
	return &Schedule{Name: name, Node: node, Engine: engine}
}

// Setup validates desc, deactivating any previously armed timer first,
// then computes nextExecutionTime and arms a one-shot timer for it.
func (s *Schedule) Setup(desc Descriptor) error {
	if err := desc.Validate(); err != nil {
		return err
	}
	s.Deactivate()

	s.mu.Lock()
	s.descriptor = desc
	s.mu.Unlock()

	s.arm(time.Now())
	return nil
}

// NextExecutionTime returns the instant currently armed, or the zero
// time if the trigger is inactive.
func (s *Schedule) NextExecutionTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextExecutionTime
}

// Deactivate cancels the armed timer and clears nextExecutionTime.
func (s *Schedule) Deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.active = false
	s.nextExecutionTime = time.Time{}
}

func (s *Schedule) arm(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.descriptor.NextExecutionTime(now)
	s.nextExecutionTime = next
	s.active = true
	s.timer = time.AfterFunc(time.Until(next), s.fire)
}

// fire re-arms itself first — computing the next nextExecutionTime
// from the descriptor and the current instant before doing any other
// work — so an overrun of one run does not compound delay onto later
// firings. It then marks the trigger node Completed with the firing
// metadata and invokes Engine.Execute. An AlreadyExecuting error from
// a still-running prior firing is swallowed; the already-armed next
// firing will pick up the cadence.
func (s *Schedule) fire() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	now := time.Now()
	next := s.descriptor.NextExecutionTime(now)
	s.nextExecutionTime = next
	kind := s.descriptor.Kind
	s.timer = time.AfterFunc(time.Until(next), s.fire)
	s.mu.Unlock()

	if s.Node.Status().IsTerminal() {
		s.Node.Reset()
	}
	_ = s.Node.Start()

	output := map[string]domain.PortValue{
		"default": {domain.Record{
			"timestamp":         now,
			"scheduleType":      string(kind),
			"nextExecutionTime": next,
		}},
	}
	s.Node.Complete(output)

	err := s.Engine.Execute(context.Background(), s.Name, output)
	if err != nil && !errors.Is(err, domain.ErrAlreadyExecuting) {
		s.Node.Fail(err)
	}
}
