package tool

import (
	"sort"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/proc"
)

// stackTool is one candidate invocation inferred from the project layout.
type stackTool struct {
	name string
	args []string
}

// stackCatalog maps a marker file to the tools each dimension would use
// in a project of that kind. Order within a slice is preference order;
// the first available candidate wins.
var stackCatalog = map[string]map[core.Dimension][]stackTool{
	"go.mod": {
		core.DimensionLint:     {{name: "golangci-lint", args: []string{"run"}}, {name: "staticcheck", args: []string{"./..."}}},
		core.DimensionFormat:   {{name: "gofmt", args: []string{"-l", "."}}},
		core.DimensionTest:     {{name: "go", args: []string{"test", "./..."}}},
		core.DimensionSecurity: {{name: "gosec", args: []string{"./..."}}, {name: "govulncheck", args: []string{"./..."}}},
		core.DimensionBuild:    {{name: "go", args: []string{"build", "./..."}}},
	},
	"package.json": {
		core.DimensionLint:     {{name: "eslint", args: []string{"."}}, {name: "biome", args: []string{"lint", "."}}},
		core.DimensionFormat:   {{name: "prettier", args: []string{"--check", "."}}},
		core.DimensionTest:     {{name: "jest"}, {name: "vitest", args: []string{"run"}}},
		core.DimensionSecurity: {{name: "npm", args: []string{"audit"}}},
		core.DimensionBuild:    {{name: "tsc", args: []string{"--noEmit"}}},
	},
	"pyproject.toml": {
		core.DimensionLint:     {{name: "ruff", args: []string{"check", "."}}, {name: "pylint", args: []string{"."}}},
		core.DimensionFormat:   {{name: "black", args: []string{"--check", "."}}},
		core.DimensionTest:     {{name: "pytest"}},
		core.DimensionSecurity: {{name: "bandit", args: []string{"-r", "."}}},
	},
	"Cargo.toml": {
		core.DimensionLint:   {{name: "cargo", args: []string{"clippy"}}},
		core.DimensionFormat: {{name: "cargo", args: []string{"fmt", "--check"}}},
		core.DimensionTest:   {{name: "cargo", args: []string{"test"}}},
		core.DimensionBuild:  {{name: "cargo", args: []string{"build"}}},
	},
}

// requirements.txt marks a Python project the same way pyproject.toml does.
func init() {
	stackCatalog["requirements.txt"] = stackCatalog["pyproject.toml"]
}

// StackDetector infers which tools a dimension should run from the
// marker files present in the project directory.
type StackDetector struct {
	files proc.FileService
}

// NewStackDetector creates a stack detector over the given file service.
func NewStackDetector(files proc.FileService) *StackDetector {
	return &StackDetector{files: files}
}

// Candidates returns every candidate invocation for the dimension across
// all detected stacks, marker order sorted for determinism. Preference
// order within a stack is preserved.
func (d *StackDetector) Candidates(dim core.Dimension) []stackTool {
	markers := make([]string, 0, len(stackCatalog))
	for marker := range stackCatalog {
		if d.files.Exists(marker) {
			markers = append(markers, marker)
		}
	}
	sort.Strings(markers)

	var candidates []stackTool
	seen := make(map[string]bool)
	for _, marker := range markers {
		for _, t := range stackCatalog[marker][dim] {
			if seen[t.name] {
				continue
			}
			seen[t.name] = true
			candidates = append(candidates, t)
		}
	}
	return candidates
}

// Stacks returns the detected marker files in sorted order.
func (d *StackDetector) Stacks() []string {
	var markers []string
	for marker := range stackCatalog {
		if d.files.Exists(marker) {
			markers = append(markers, marker)
		}
	}
	sort.Strings(markers)
	return markers
}
