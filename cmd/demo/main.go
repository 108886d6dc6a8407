// Command demo builds a small three-node workflow (a seed value, an
// adder, and a second adder) and runs it once from a manual trigger,
// printing the final output.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/flowcraft/corerun"
)

// constantNode emits a fixed number on its "out" port.
type constantNode struct {
	value float64
}

func (c *constantNode) Process(_ context.Context, _ *corerun.NodeContext) (map[string]corerun.PortValue, error) {
	return map[string]corerun.PortValue{
		"out": {corerun.Record{"value": c.value}},
	}, nil
}

// adderNode sums every "value" field fed into its "in" port, adds
// addend, and emits the result on "out".
type adderNode struct {
	addend float64
}

func (a *adderNode) Process(_ context.Context, nc *corerun.NodeContext) (map[string]corerun.PortValue, error) {
	var total float64
	for _, rec := range nc.Input["in"] {
		if v, ok := rec["value"].(float64); ok {
			total += v
		}
	}
	return map[string]corerun.PortValue{
		"out": {corerun.Record{"value": total + a.addend}},
	}, nil
}

func main() {
	g := corerun.NewGraph()

	seed := corerun.NewNode("seed", "constant")
	seed.IsTrigger = true
	seed.Outputs = []corerun.Port{{Name: "out", DataType: "number", Kind: corerun.LinkStandard}}
	seed.Processor = &constantNode{value: 1}

	addOne := corerun.NewNode("add-one", "adder")
	addOne.Inputs = []corerun.Port{{Name: "in", DataType: "number", Kind: corerun.LinkStandard}}
	addOne.Outputs = []corerun.Port{{Name: "out", DataType: "number", Kind: corerun.LinkStandard}}
	addOne.Processor = &adderNode{addend: 1}

	addThree := corerun.NewNode("add-three", "adder")
	addThree.Inputs = []corerun.Port{{Name: "in", DataType: "number", Kind: corerun.LinkStandard}}
	addThree.Outputs = []corerun.Port{{Name: "out", DataType: "number", Kind: corerun.LinkStandard}}
	addThree.Processor = &adderNode{addend: 3}

	for _, n := range []*corerun.Node{seed, addOne, addThree} {
		if err := g.AddNode(n); err != nil {
			log.Fatalf("add node: %v", err)
		}
	}

	if err := g.LinkNodes("seed", "out", "add-one", "in"); err != nil {
		log.Fatalf("link seed->add-one: %v", err)
	}
	if err := g.LinkNodes("add-one", "out", "add-three", "in"); err != nil {
		log.Fatalf("link add-one->add-three: %v", err)
	}

	engine := corerun.NewEngine("demo-workflow", g, corerun.DefaultEngineOptions(), nil, corerun.NewMemoryPersistence())
	manual := corerun.NewManualTrigger("seed", seed, engine, nil)

	ctx := context.Background()
	manual.Trigger(ctx, map[string]corerun.PortValue{
		"out": {corerun.Record{"value": float64(1)}},
	})

	// Trigger fires the run on its own goroutine (fire-and-forget), so
	// the demo waits for the terminal status before reading output.
	for !engine.Status().IsTerminal() {
		time.Sleep(10 * time.Millisecond)
	}
	if engine.Status() == corerun.StatusFailed {
		log.Fatal("workflow run failed")
	}

	output, ok := engine.State().NodeOutputPort("add-three", "out")
	if !ok {
		log.Fatal("add-three produced no output")
	}
	fmt.Printf("add-three output: %v\n", output)
}
