// Package harness runs task board scenarios and checks their outcome.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: drag_and_drop
//	description: "Dropping a dragged task moves it and ends the drag"
//	seed: empty            # or "default" for the ABC-1..ABC-4 board
//	flow:
//	  - action: addTask
//	    args: { title: "Write spec", status: open }
//	    as: spec            # alias for the generated id
//	  - action: setDraggingTaskId
//	    args: { id: spec }
//	  - action: onTaskDrop
//	    args: { status: in-progress }
//	    expect: { commit: true }
//	assertions:
//	  - type: commit_count
//	    count: 3
//	  - type: task_status
//	    task: spec
//	    status: in-progress
//
// Wherever a task id is expected, an alias bound by an earlier `as:` is
// replaced by the id it names.
//
// # Assertion Types
//
//   - commit_count: number of commits the flow produced
//   - action_order: exact sequence of committed action labels
//   - task_status: status of one task
//   - dragging: the dragged task id, or none when task is omitted
//   - tasks_in_status: ids of the tasks in a column, in id order
//
// # Deterministic Testing
//
// Each scenario runs against a fresh store with sequential task ids (T-1,
// T-2, ...) and a recording inspector, so traces are byte-stable and can be
// compared with golden files:
//
//	go test ./internal/harness -update
package harness
