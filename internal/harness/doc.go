// Package harness runs selection scenarios: scripted sessions against a
// catalog directory whose resulting trace and document can be asserted on
// and compared with golden files.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: debug_session
//	description: "Select debug, keep one rule, save and reload"
//	catalog: catalog            # relative to the scenario file
//	anchor: orchestrator        # optional
//	permissive_anchor: false    # optional
//	steps:
//	  - action: toggle_model
//	    target: debug
//	  - action: toggle_rule
//	    target: debug/trace
//	  - action: save
//	    target: first
//	  - action: load
//	    target: missing
//	    expect:
//	      error: NOT_FOUND
//	assertions:
//	  - type: models
//	    expect: [orchestrator, debug]
//	  - type: rules
//	    model: debug
//	    expect: [trace]
//	  - type: snapshot_count
//	    count: 1
//
// # Determinism
//
// Each run uses a fresh in-memory snapshot store with a step clock and
// sequential snapshot ids, and waits for every rule fetch a step issues
// before moving on. Identical scenarios therefore produce identical traces
// and documents.
package harness
