// Package policy holds the static house-style rules every pipeline stage
// shares: numeric thresholds, the fixed layout enumeration and its classes,
// the required-block-per-layout table, design tokens, and the evidence anchor
// grammar.
//
// Policy values are immutable, process-wide state. Per-deck variation goes
// through the two-tier constraint records on the document
// (global_constraints, then slide_constraints) and is resolved exclusively by
// ResolveBounds and its siblings, so the densifier, the validator, and the
// post-render checker can never disagree on an effective limit.
package policy
