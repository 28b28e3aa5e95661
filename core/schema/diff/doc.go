// Package diff computes the sparse patch that converges a remote collection towards its
// target definition.
//
// Three sections are compared independently:
//
//   - fields: added when missing, overlaid when a target-specified attribute differs, and
//     removed by omission when the target no longer declares them. Removal is an explicit,
//     logged decision and never touches the reserved names handed to New.
//   - rules: only the rule kinds the target declares are compared, so a target may be
//     partial with respect to rules.
//   - indexes: every desired index is upserted by name; the full resulting set is sent.
//
// A Result whose Patch is empty is a no-op and callers must not issue a write for it.
package diff
