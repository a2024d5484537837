// Package evidence resolves deck content against the source catalog. The
// catalog is parsed from the markdown sources document; every heading becomes
// a sources.md#<slug> anchor. The enricher fills missing evidence on bullets
// and visual payloads so downstream validation can require evidence totality.
package evidence
