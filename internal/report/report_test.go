package report

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleReport() *Report {
	r := New("deck_spec.yaml", 4)
	r.Addf(SeverityWarning, "slides[2]", "evidence", "anchor %q not in catalog", "sources.md#bogus")
	r.Addf(SeverityError, "slides[1].blocks[0]", "schema", "chart block missing chart payload")
	r.Addf(SeverityInfo, "slides[2]", "evidence", "confidence defaulted to medium")
	r.Addf(SeverityError, "slides[0]", "density", "bullet count 12 exceeds the maximum 9")
	return r
}

func TestCountsAndGates(t *testing.T) {
	r := sampleReport()
	if r.Errors() != 2 || r.Warnings() != 1 || r.Infos() != 1 {
		t.Fatalf("counts: %d/%d/%d", r.Errors(), r.Warnings(), r.Infos())
	}
	if r.Passed() {
		t.Fatal("report with errors must not pass")
	}

	clean := New("x", 1)
	clean.Addf(SeverityWarning, "slides[0]", "", "wide bullet")
	if !clean.Passed() {
		t.Fatal("warnings alone must pass the default gate")
	}
	if clean.PassedStrict() {
		t.Fatal("warnings must fail the strict gate")
	}
}

func TestSortIsStableAndSeverityFirst(t *testing.T) {
	r := sampleReport()
	r.Sort()
	if r.Issues[0].Severity != SeverityError || r.Issues[1].Severity != SeverityError {
		t.Fatalf("errors must sort first: %+v", r.Issues)
	}
	if r.Issues[0].Path != "slides[0]" {
		t.Fatalf("equal severities must sort by path: %+v", r.Issues[0])
	}
	if r.Issues[3].Severity != SeverityInfo {
		t.Fatalf("info must sort last: %+v", r.Issues[3])
	}
}

func TestFilter(t *testing.T) {
	r := sampleReport()
	errs := r.Filter(SeverityError)
	if len(errs) != 2 {
		t.Fatalf("filter: %v", errs)
	}
	for _, i := range errs {
		if i.Severity != SeverityError {
			t.Fatalf("filter leaked severity: %+v", i)
		}
	}
}

func TestJSONEncoding(t *testing.T) {
	r := sampleReport()
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded struct {
		Passed  bool `json:"passed"`
		Summary struct {
			Errors   int `json:"errors"`
			Warnings int `json:"warnings"`
			Info     int `json:"info"`
		} `json:"summary"`
		TotalSlides int `json:"total_slides"`
		Issues      []Issue
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Passed {
		t.Fatal("passed flag wrong")
	}
	if decoded.Summary.Errors != 2 || decoded.Summary.Warnings != 1 || decoded.Summary.Info != 1 {
		t.Fatalf("summary: %+v", decoded.Summary)
	}
	if decoded.TotalSlides != 4 || len(decoded.Issues) != 4 {
		t.Fatalf("payload: %+v", decoded)
	}
}

func TestMarkdownEncoding(t *testing.T) {
	r := sampleReport()
	md := r.Markdown()
	for _, want := range []string{"**Result**: FAIL", "### slides[0]", "- errors: 2", "chart block missing chart payload"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}

	clean := New("deck_spec.yaml", 2)
	if !strings.Contains(clean.Markdown(), "All checks passed.") {
		t.Fatal("clean report must state that all checks passed")
	}
}
