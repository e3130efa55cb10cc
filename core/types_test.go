package core

import (
	"testing"
	"time"
)

func TestSummarize_CountsByStatus(t *testing.T) {
	results := []ToolResult{
		{Tool: "a", Status: StatusSuccess},
		{Tool: "b", Status: StatusWarning},
		{Tool: "c", Status: StatusFailure},
		{Tool: "d", Status: StatusSkipped},
		{Tool: "e", Status: StatusSuccess},
	}

	s := Summarize(results, 1500*time.Millisecond)

	if s.Total != 5 {
		t.Errorf("Total = %d, want 5", s.Total)
	}
	if s.Passed != 2 {
		t.Errorf("Passed = %d, want 2", s.Passed)
	}
	if s.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", s.Warnings)
	}
	if s.Failed != 1 {
		t.Errorf("Failed = %d, want 1", s.Failed)
	}
	if s.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", s.Skipped)
	}
	if s.Duration != 1500 {
		t.Errorf("Duration = %d, want 1500", s.Duration)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, 0)
	if s.Total != 0 || s.Passed != 0 || s.Failed != 0 {
		t.Errorf("empty summary should be zero, got %+v", s)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		summary RunSummary
		want    Classification
	}{
		{"all passed", RunSummary{Total: 3, Passed: 3}, ClassificationPass},
		{"warnings only", RunSummary{Total: 3, Passed: 2, Warnings: 1}, ClassificationPassWarnings},
		{"any failure", RunSummary{Total: 3, Passed: 1, Warnings: 1, Failed: 1}, ClassificationFail},
		{"skipped does not fail", RunSummary{Total: 2, Passed: 1, Skipped: 1}, ClassificationPass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.summary); got != tt.want {
				t.Errorf("Classify(%+v) = %q, want %q", tt.summary, got, tt.want)
			}
		})
	}
}

func TestSortResults_DimensionThenName(t *testing.T) {
	results := []ToolResult{
		{Tool: "zeta", Dimension: DimensionLint},
		{Tool: "alpha", Dimension: DimensionTest},
		{Tool: "alpha", Dimension: DimensionLint},
	}

	SortResults(results)

	wantOrder := []string{"lint/alpha", "lint/zeta", "test/alpha"}
	for i, r := range results {
		key := string(r.Dimension) + "/" + r.Tool
		if key != wantOrder[i] {
			t.Errorf("results[%d] = %s, want %s", i, key, wantOrder[i])
		}
	}
}

func TestDescriptorKey(t *testing.T) {
	d := Descriptor{Name: "eslint", Dimension: DimensionLint}
	if d.Key() != "lint/eslint" {
		t.Errorf("Key() = %q, want %q", d.Key(), "lint/eslint")
	}
}
