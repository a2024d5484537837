// Package textutil provides the text heuristics shared by the densify,
// validate, and QA passes.
//
// The primary use cases are:
//   - Whitespace collapsing and ellipsis truncation of bullet and message text
//   - Line-count and slug heuristics used by validation and evidence anchoring
//   - Token fingerprints for fuzzy title comparison between a deck and its
//     rendered artifact
//
// The line estimate and fingerprint similarity are explicitly approximate;
// callers surface their results as warnings or informational findings, never
// as hard failures.
package textutil
