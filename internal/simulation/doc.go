// Package simulation provides an end-to-end test harness for validating
// model dynamics across the whole pipeline.
//
// The harness exercises the real graph builder, loop detector, propagation
// engine and analysis reporter together, no mocks. Scenarios are Go builders
// that declare a model, an intervention schedule and a horizon; the runner
// produces the full time series plus the loop and stability reports for
// property-based assertions.
//
// Usage:
//
//	func TestTourismRegulates(t *testing.T) {
//	    r := simulation.NewRunner(t)
//	    result := r.Run(simulation.Scenario{
//	        Name:    "tourism-baseline",
//	        Nodes:   []graph.Node{...},
//	        Edges:   []graph.Edge{...},
//	        Horizon: 60,
//	    })
//	    simulation.AssertVerdict(t, result, analysis.VerdictStable)
//	    simulation.AssertLoopCount(t, result, 2)
//	}
package simulation
