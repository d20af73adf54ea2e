// Package selection holds the live record of what a user has chosen from
// the catalog and enforces the cross-entity rules between those choices.
//
// State is the mutable aggregate: selected models (ordered, unique by id),
// a per-model rule cache, per-model selected rule names, at most one role,
// and selected commands (ordered, unique by id).
//
// INVARIANTS (hold after every mutation, see Validate):
//  1. the anchor model is always selected; removing it is a no-op
//  2. the anchor's selected rules equal its cached rules (locked policy)
//  3. selected rule names are a subset of the model's cached rules
//  4. no rule cache or rule selection exists for an unselected model
//  5. zero or one role is selected
//  6. no duplicate command ids
//
// Mutators never fail. Unknown ids and mismatched model/rule pairs are
// silent no-ops; callers only present ids sourced from the catalog.
//
// DEPENDENCY RESOLUTION:
//
// Adding a model starts an asynchronous rule fetch (resolver.go). Fetches
// complete in any order. On completion the stale-response guard checks that
// the model is still selected by the same selection that issued the fetch;
// otherwise the result is discarded so a deselected model never regains
// cache or selection entries.
//
// Thread-safety: a mutex serializes mutators and fetch completions.
// Observers registered with Subscribe run outside the lock.
package selection
