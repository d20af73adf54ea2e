// Package ir provides the foundational types for loadout: catalog entries,
// the hook pair, and the composed configuration document.
//
// All other internal packages import ir; ir imports nothing internal. This
// keeps the data model the bottom layer with no circular dependencies.
//
// Key design constraints:
//   - Catalog entries are tagged variants (Model, Rule, Role, Command) sharing Item
//   - NO float types anywhere - numbers are int64
//   - All JSON tags use snake_case
//   - Documents serialize through MarshalCanonical for byte-stable output
package ir
