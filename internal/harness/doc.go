// Package harness runs scripted sessions against a scene and checks the
// responses, the request journal and the final document.
//
// # Scenario Format
//
//	name: modify_partial
//	description: "A missing target fails alone"
//	scene: ../scenes/office.yaml
//	steps:
//	  - tool: operate_element_modify
//	    args:
//	      data: {elementIds: [12, 999], modifyAction: SetParameter,
//	             parameterName: Comments, parameterValue: reviewed}
//	    expect:
//	      success: false
//	      succeeded: [12]
//	      failed: [{id: 999, reason: element not found}]
//	assertions:
//	  - type: element
//	    element: 12
//	    param: Comments
//	    value: reviewed
//	  - type: final_state
//	    table: results
//	    where: {request_id: req-0001}
//	    expect: {outcome: partial}
//
// # Assertion Types
//
//   - trace_contains: a call of the tool with matching args was made
//   - trace_order: tools were first called in the given order
//   - trace_count: a tool was called exactly N times
//   - final_state: one journal row (requests, results, transactions) matches
//   - element: an element exists or not, has a parameter value, or is
//     hidden in a named view
//
// # Determinism
//
// Every run starts from the scene file with a fresh in-memory journal.
// Request ids come from a sequence ("req-0001"...), and the identifier
// allocator's random fallback is replaced by FixedToken, so runs are
// repeatable and snapshots can be compared with golden files.
package harness
