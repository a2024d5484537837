// Package report carries the issue lists produced by the validator and the
// post-render checker. Both stages share one report shape so callers can gate
// on it uniformly and encode it as JSON or markdown.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Severity ranks an issue. Errors gate the pipeline; warnings gate it only in
// strict mode; infos never gate.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// rank orders severities for stable report output, most severe first.
func (s Severity) rank() int {
	switch s {
	case SeverityError:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	}
	return 3
}

// Issue is one finding. Path locates it in the deck document, for example
// "slides[3].blocks[1]" or "global_constraints".
type Issue struct {
	Severity Severity `json:"severity"`
	Path     string   `json:"path"`
	Category string   `json:"category,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.Category != "" {
		return fmt.Sprintf("[%s] %s: (%s) %s", strings.ToUpper(string(i.Severity)), i.Path, i.Category, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", strings.ToUpper(string(i.Severity)), i.Path, i.Message)
}

// Report aggregates the findings of one check run over one deck or artifact.
type Report struct {
	Target      string  `json:"target,omitempty"`
	TotalSlides int     `json:"total_slides"`
	Issues      []Issue `json:"issues"`
}

// New returns an empty report for the named target.
func New(target string, totalSlides int) *Report {
	return &Report{Target: target, TotalSlides: totalSlides}
}

// Add appends issues to the report.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Addf appends one issue built from a format string.
func (r *Report) Addf(severity Severity, path, category, format string, args ...any) {
	r.Issues = append(r.Issues, Issue{
		Severity: severity,
		Path:     path,
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Merge appends every issue of other into r.
func (r *Report) Merge(other *Report) {
	if other != nil {
		r.Issues = append(r.Issues, other.Issues...)
	}
}

// Count returns the number of issues at the given severity.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == s {
			n++
		}
	}
	return n
}

// Errors returns the error count.
func (r *Report) Errors() int { return r.Count(SeverityError) }

// Warnings returns the warning count.
func (r *Report) Warnings() int { return r.Count(SeverityWarning) }

// Infos returns the info count.
func (r *Report) Infos() int { return r.Count(SeverityInfo) }

// Passed reports whether the run produced no errors.
func (r *Report) Passed() bool { return r.Errors() == 0 }

// PassedStrict reports whether the run produced neither errors nor warnings.
func (r *Report) PassedStrict() bool { return r.Errors() == 0 && r.Warnings() == 0 }

// Filter returns the issues at the given severity, in report order.
func (r *Report) Filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Sort orders issues by severity, then path, then message. The sort is
// stable so repeated runs over the same deck produce identical reports.
func (r *Report) Sort() {
	sort.SliceStable(r.Issues, func(a, b int) bool {
		ia, ib := r.Issues[a], r.Issues[b]
		if ia.Severity != ib.Severity {
			return ia.Severity.rank() < ib.Severity.rank()
		}
		if ia.Path != ib.Path {
			return ia.Path < ib.Path
		}
		return ia.Message < ib.Message
	})
}

// summary is the counts block of the JSON encoding.
type summary struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// MarshalJSON encodes the report with its pass flag and severity counts.
func (r *Report) MarshalJSON() ([]byte, error) {
	type plain Report
	return json.Marshal(struct {
		*plain
		Passed  bool    `json:"passed"`
		Summary summary `json:"summary"`
	}{
		plain:  (*plain)(r),
		Passed: r.Passed(),
		Summary: summary{
			Errors:   r.Errors(),
			Warnings: r.Warnings(),
			Info:     r.Infos(),
		},
	})
}

// Markdown renders the report as a human-readable document, issues grouped by
// path in sorted order.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Deck QA Report\n\n")
	if r.Target != "" {
		fmt.Fprintf(&b, "**Target**: `%s`\n", r.Target)
	}
	fmt.Fprintf(&b, "**Slides**: %d\n", r.TotalSlides)
	if r.Passed() {
		b.WriteString("**Result**: PASS\n\n")
	} else {
		b.WriteString("**Result**: FAIL\n\n")
	}
	fmt.Fprintf(&b, "## Summary\n- errors: %d\n- warnings: %d\n- info: %d\n\n", r.Errors(), r.Warnings(), r.Infos())

	if len(r.Issues) == 0 {
		b.WriteString("All checks passed.\n")
		return b.String()
	}

	b.WriteString("## Issues\n\n")
	byPath := make(map[string][]Issue)
	var paths []string
	for _, i := range r.Issues {
		if _, ok := byPath[i.Path]; !ok {
			paths = append(paths, i.Path)
		}
		byPath[i.Path] = append(byPath[i.Path], i)
	}
	sort.Strings(paths)
	for _, path := range paths {
		fmt.Fprintf(&b, "### %s\n", path)
		for _, i := range byPath[path] {
			if i.Category != "" {
				fmt.Fprintf(&b, "- **%s** (%s): %s\n", i.Severity, i.Category, i.Message)
			} else {
				fmt.Fprintf(&b, "- **%s**: %s\n", i.Severity, i.Message)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
