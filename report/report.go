// Package report defines the machine-readable run report: a stable JSON
// shape downstream automation can parse across releases. Fields are only
// ever added, never renamed or removed.
package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gate-labs/qualgate/core"
)

// Version is the report schema version. Bumped only for additive changes.
const Version = "1"

// Meta identifies one run.
type Meta struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Version    string    `json:"version"`
}

// Report is the full machine-readable outcome of a run.
type Report struct {
	Meta           Meta                `json:"meta"`
	Results        []core.ToolResult   `json:"results"`
	Summary        core.RunSummary     `json:"summary"`
	Classification core.Classification `json:"classification"`
}

// New assembles a report from sorted results. Results are re-sorted
// defensively so the serialized order never depends on execution order.
func New(runID string, startedAt time.Time, duration time.Duration, results []core.ToolResult) Report {
	core.SortResults(results)
	summary := core.Summarize(results, duration)
	return Report{
		Meta: Meta{
			RunID:      runID,
			StartedAt:  startedAt.UTC(),
			DurationMS: duration.Milliseconds(),
			Version:    Version,
		},
		Results:        results,
		Summary:        summary,
		Classification: core.Classify(summary),
	}
}

// Encode serializes the report as indented JSON.
func (r Report) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("report encode: %w", err)
	}
	return data, nil
}

// Parse decodes a serialized report.
func Parse(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("report parse: %w", err)
	}
	return r, nil
}
