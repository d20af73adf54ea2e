// Package catalog provides the read-only universe of selectable entries.
//
// A Source fetches models, per-model rules, roles, commands, and the fixed
// hook pair from a backend. Cache sits in front of a Source and stores each
// entity type after the first successful fetch.
//
// Rule catalogs are not stored here: the selection state owns the per-model
// rule cache so it can purge it when a model is deselected. Cache only
// deduplicates concurrent rule fetches for the same model.
//
// Two Sources ship with the package:
//   - DirSource reads YAML files from a directory
//   - HTTPSource talks to a REST-like backend
package catalog
