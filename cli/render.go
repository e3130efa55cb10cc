package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gate-labs/qualgate/report"
)

// renderReport prints a human-readable summary of a run.
func renderReport(w io.Writer, rep report.Report) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tDIMENSION\tSTATUS\tTIME\tFINDINGS")
	for _, res := range rep.Results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%d\n",
			res.Tool, res.Dimension, res.Status, res.ExecutionTime, len(res.Findings))
	}
	tw.Flush()

	fmt.Fprintf(w, "\n%d checks: %d passed, %d warnings, %d failed, %d skipped\n",
		rep.Summary.Total, rep.Summary.Passed, rep.Summary.Warnings,
		rep.Summary.Failed, rep.Summary.Skipped)
	fmt.Fprintf(w, "Classification: %s (%dms)\n", rep.Classification, rep.Meta.DurationMS)

	for _, res := range rep.Results {
		for _, f := range res.Findings {
			if f.Line > 0 {
				fmt.Fprintf(w, "  [%s] %s:%d %s\n", res.Tool, f.File, f.Line, f.Message)
			} else {
				fmt.Fprintf(w, "  [%s] %s %s\n", res.Tool, f.File, f.Message)
			}
		}
		for _, msg := range res.Errors {
			fmt.Fprintf(w, "  [%s] error: %s\n", res.Tool, msg)
		}
	}
}
