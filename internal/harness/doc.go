// Package harness runs conformance scenarios against the sampling engine.
//
// A scenario pairs a graph document and a seed with the posterior
// moments its queries should produce. The harness samples the chain and
// checks every declared expectation, so scenarios double as executable
// documentation of what a model's posterior looks like.
//
// # Scenario Format
//
// A scenario is a YAML file:
//
//	name: scenario_name
//	description: "what this scenario pins down"
//	graph: testdata/graphs/model.json
//	seed: 42
//	iterations: 600
//	burn_in: 50
//	expect:
//	  - query: 0
//	    mean: 0.5
//	    tolerance: 0.25
//	    stddev: 0.7071
//	    stddev_tolerance: 0.3
//
// # Expectations
//
// Each expect entry names a query index and the posterior mean it should
// land on, within the given tolerance. A stddev bound is optional; when
// present it is checked with its own tolerance. Burn-in sweeps run
// before the collected draws and are excluded from the moments.
//
// # Deterministic Testing
//
// A scenario's seed fixes the whole chain, so two runs of the same
// scenario produce identical move traces. This makes traces suitable
// for golden snapshot comparison via RunWithGolden.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/conjugate_normal.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, f := range result.Failures {
//	        log.Println(f)
//	    }
//	}
package harness
