package tool

import (
	"testing"

	"github.com/gate-labs/qualgate/core"
)

func TestClassifierBuiltins(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name string
		want core.ToolCategory
	}{
		{"npm", core.CategoryPackageManager},
		{"poetry", core.CategoryPackageManager},
		{"cargo", core.CategoryPackageManager},
		{"lint", core.CategoryDimension},
		{"test", core.CategoryDimension},
		{"security", core.CategoryDimension},
		{"eslint", core.CategoryLinter},
		{"golangci-lint", core.CategoryLinter},
		{"ruff", core.CategoryLinter},
		{"prettier", core.CategoryFormatter},
		{"gofmt", core.CategoryFormatter},
		{"black", core.CategoryFormatter},
		{"pytest", core.CategoryTestRunner},
		{"jest", core.CategoryTestRunner},
		{"gosec", core.CategorySecurityScanner},
		{"npm-audit", core.CategorySecurityScanner},
		{"tsc", core.CategoryCompiler},
		{"webpack", core.CategoryBundler},
		{"vite", core.CategoryBundler},
		{"some-unknown-tool", core.CategoryGeneric},
		{"", core.CategoryGeneric},
		{"ESLint", core.CategoryLinter},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.name); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestClassifierPackageManagerBeatsPatterns(t *testing.T) {
	c := NewClassifier()
	// "cargo" would also match the test-runner registry via "cargo test"
	// style names; the bare name must stay a package manager.
	if got := c.Classify("cargo"); got != core.CategoryPackageManager {
		t.Fatalf("Classify(cargo) = %q, want %q", got, core.CategoryPackageManager)
	}
}

func TestClassifierRegisterPattern(t *testing.T) {
	c := NewClassifier()

	const category = core.ToolCategory("license-checker")
	if got := c.Classify("licensee"); got != core.CategoryGeneric {
		t.Fatalf("pre-registration Classify(licensee) = %q, want generic", got)
	}

	c.RegisterPattern(category, "license")
	if got := c.Classify("licensee"); got != category {
		t.Errorf("post-registration Classify(licensee) = %q, want %q", got, category)
	}
	// Existing classifications keep working; the algorithm is untouched.
	if got := c.Classify("eslint"); got != core.CategoryLinter {
		t.Errorf("Classify(eslint) = %q after registry extension, want linter", got)
	}
}

func TestClassifierRegisterDimension(t *testing.T) {
	c := NewClassifier()
	if got := c.Classify("accessibility"); got != core.CategoryGeneric {
		t.Fatalf("pre-registration Classify(accessibility) = %q, want generic", got)
	}
	c.RegisterDimension("accessibility")
	if got := c.Classify("accessibility"); got != core.CategoryDimension {
		t.Errorf("Classify(accessibility) = %q, want dimension", got)
	}
}

func TestClassifierDefaultActions(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		category core.ToolCategory
		want     string
	}{
		{core.CategoryPackageManager, "install"},
		{core.CategoryLinter, "lint"},
		{core.CategoryFormatter, "format"},
		{core.CategoryTestRunner, "test"},
		{core.CategorySecurityScanner, "scan"},
		{core.ToolCategory("never-registered"), "validate"},
	}
	for _, tt := range tests {
		if got := c.DefaultAction(tt.category); got != tt.want {
			t.Errorf("DefaultAction(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}

	c.RegisterAction(core.ToolCategory("license-checker"), "check-licenses")
	if got := c.DefaultAction(core.ToolCategory("license-checker")); got != "check-licenses" {
		t.Errorf("DefaultAction(license-checker) = %q, want check-licenses", got)
	}
}
