// Package daemon runs quality checks in the background, either on a
// cron schedule or in response to file changes.
package daemon

import (
	"context"

	"github.com/gate-labs/qualgate"
	"github.com/gate-labs/qualgate/report"
)

// Runner executes one quality run. *qualgate.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, opts qualgate.Options) (report.Report, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, opts qualgate.Options) (report.Report, error)

// Run calls f.
func (f RunnerFunc) Run(ctx context.Context, opts qualgate.Options) (report.Report, error) {
	return f(ctx, opts)
}
