// Package reactive implements the generic reactive store engine.
//
// A Store holds one versioned snapshot of application state. Mutations are
// dispatched through an ordered middleware pipeline; the innermost layer
// applies the mutation, replaces the snapshot and notifies subscribers.
//
// ARCHITECTURE:
//
// Dispatch Flow:
//  1. Caller invokes SetState / Produce / Replace (or Dispatch directly)
//  2. The mutation enters the outermost middleware
//  3. Each middleware delegates inward (and may rewrite the mutation)
//  4. The innermost commit step applies the mutator to a shallow copy of
//     the current snapshot (or to the zero value for replace mutations)
//  5. Unchanged results are dropped (shallow equality)
//  6. Changed results replace the snapshot, the version clock advances and
//     every subscriber is called in registration order with (next, prev)
//  7. Control returns outward; middleware run post-commit side effects
//
// Merge Rule:
// Snapshots are Go values. A mutator receives a shallow copy of the previous
// snapshot, so every field it does not assign is carried over unchanged.
// This is the shallow-merge contract. ReplaceState() hands the mutator the
// zero value instead, which is a full replacement.
//
// Containers:
// Container fields should use Map, a copy-on-write map. Writes outside a
// draft always clone the backing map, so committed snapshots are never
// edited in place. Plain Go maps and slices inside snapshots are shared
// between copies and must be rebuilt by the mutator, never written.
//
// Reentrancy:
// A dispatch that arrives while the same store is already dispatching (for
// example a subscriber writing back into the store it observes) is queued.
// Queued mutations run in arrival order once the in-flight commit's fan-out
// has finished, before the outermost call returns. The queued call itself
// returns nil; its failure goes to the store's error handler.
//
// Concurrency:
// A store has one writer goroutine. A mutex guards the snapshot swap so
// GetState, Version and Subscribe are safe from any goroutine. A mutation
// issued from another goroutine while a dispatch is in flight cannot be told
// apart from a reentrant one: it is queued and its caller gets nil back.
// Callers that write from several goroutines must serialize those writes
// themselves.
package reactive
