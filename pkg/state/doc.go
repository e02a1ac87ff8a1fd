// Package state holds the shared state store every rendered unit reads from.
//
// Responsibilities:
//   - Store keeps static fields (set once at construction) and dataset values
//     (absent until a load cycle writes them).
//   - Cycle is the only write path. A dataset key is written at most once per
//     cycle and never removed; a later cycle may replace the value.
//   - Binding exposes a single key as an observable value so root views can
//     re-render as datasets land.
//
// Data flow:
//
//	loader -> Store.BeginCycle() -> Cycle.Set(name, value) -> Binding subscribers
//	                                                       -> overlay contexts (live reads)
//
// Store is safe for concurrent use. Values handed out by Lookup/Get are shared
// with the store and must be treated as read-only; use Snapshot for a detached
// copy.
package state
