package tool

import (
	"context"
	"testing"

	"github.com/gate-labs/qualgate/core"
	"github.com/gate-labs/qualgate/proc"
)

func TestFactoryLazyConstruction(t *testing.T) {
	f := NewFactory(testDeps(newFakeExecutor(), nil, nil))

	first, err := f.Load(core.CategoryLinter)
	if err != nil {
		t.Fatalf("Load(linter): %v", err)
	}
	second, err := f.Load(core.CategoryLinter)
	if err != nil {
		t.Fatalf("second Load(linter): %v", err)
	}
	if first != second {
		t.Error("Load built a new wrapper instead of reusing the cached one")
	}
}

func TestFactoryUnknownCategory(t *testing.T) {
	f := NewFactory(testDeps(newFakeExecutor(), nil, nil))

	_, err := f.Load(core.ToolCategory("no-such-category"))
	if err == nil {
		t.Fatal("Load(no-such-category) succeeded, want error")
	}
	if core.ErrorCode(err) != core.CodeIntegration {
		t.Errorf("error code = %q, want %q", core.ErrorCode(err), core.CodeIntegration)
	}
}

func TestFactoryDuplicateRegistrationRejected(t *testing.T) {
	f := NewFactory(testDeps(newFakeExecutor(), nil, nil))

	err := f.RegisterWrapper(core.CategoryLinter, NewGenericWrapper)
	if err == nil {
		t.Fatal("re-registering an existing category succeeded, want error")
	}

	// A genuinely new category registers cleanly and loads.
	const custom = core.ToolCategory("license-checker")
	if err := f.RegisterWrapper(custom, NewGenericWrapper); err != nil {
		t.Fatalf("RegisterWrapper(%q): %v", custom, err)
	}
	if _, err := f.Load(custom); err != nil {
		t.Fatalf("Load(%q): %v", custom, err)
	}
}

func TestFactoryWrapperForRouting(t *testing.T) {
	exec := newFakeExecutor()
	f := NewFactory(testDeps(exec, nil, nil))

	tests := []struct {
		desc core.Descriptor
		want any
	}{
		{core.Descriptor{Name: "eslint", Mode: core.ModeSpecificTool}, &LintWrapper{}},
		{core.Descriptor{Name: "prettier", Mode: core.ModeSpecificTool}, &FormatWrapper{}},
		{core.Descriptor{Name: "pytest", Mode: core.ModeSpecificTool}, &TestWrapper{}},
		{core.Descriptor{Name: "gosec", Mode: core.ModeSpecificTool}, &SecurityWrapper{}},
		{core.Descriptor{Name: "npm", Mode: core.ModeSpecificTool}, &PackageManagerWrapper{}},
		{core.Descriptor{Name: "mystery", Mode: core.ModeSpecificTool}, &GenericWrapper{}},
		// Auto-detect always routes to the dimension wrapper regardless of
		// what the name would classify as.
		{core.Descriptor{Name: "lint", Mode: core.ModeStackAutoDetect}, &DimensionWrapper{}},
	}
	for _, tt := range tests {
		w, err := f.WrapperFor(tt.desc)
		if err != nil {
			t.Fatalf("WrapperFor(%q): %v", tt.desc.Name, err)
		}
		switch tt.want.(type) {
		case *LintWrapper:
			if _, ok := w.(*LintWrapper); !ok {
				t.Errorf("WrapperFor(%q) = %T, want LintWrapper", tt.desc.Name, w)
			}
		case *FormatWrapper:
			if _, ok := w.(*FormatWrapper); !ok {
				t.Errorf("WrapperFor(%q) = %T, want FormatWrapper", tt.desc.Name, w)
			}
		case *TestWrapper:
			if _, ok := w.(*TestWrapper); !ok {
				t.Errorf("WrapperFor(%q) = %T, want TestWrapper", tt.desc.Name, w)
			}
		case *SecurityWrapper:
			if _, ok := w.(*SecurityWrapper); !ok {
				t.Errorf("WrapperFor(%q) = %T, want SecurityWrapper", tt.desc.Name, w)
			}
		case *PackageManagerWrapper:
			if _, ok := w.(*PackageManagerWrapper); !ok {
				t.Errorf("WrapperFor(%q) = %T, want PackageManagerWrapper", tt.desc.Name, w)
			}
		case *GenericWrapper:
			if _, ok := w.(*GenericWrapper); !ok {
				t.Errorf("WrapperFor(%q) = %T, want GenericWrapper", tt.desc.Name, w)
			}
		case *DimensionWrapper:
			if _, ok := w.(*DimensionWrapper); !ok {
				t.Errorf("WrapperFor(%q) = %T, want DimensionWrapper", tt.desc.Name, w)
			}
		}
	}
}

func TestFactoryInjectsItself(t *testing.T) {
	exec := newFakeExecutor()
	exec.script("golangci-lint", proc.Result{Success: true}, nil)

	deps := testDeps(exec, &fakeFiles{present: map[string]bool{"go.mod": true}},
		map[string]bool{"golangci-lint": true})
	f := NewFactory(deps)

	// The dimension wrapper dispatches sub-tools through the factory; a
	// factory-built instance must be able to reach its siblings.
	w, err := f.WrapperFor(core.Descriptor{Name: "lint", Mode: core.ModeStackAutoDetect})
	if err != nil {
		t.Fatalf("WrapperFor: %v", err)
	}
	res := w.Run(context.Background(), core.Descriptor{
		Name: "lint", Dimension: core.DimensionLint, Mode: core.ModeStackAutoDetect,
	}, nil)
	if res.Status != core.StatusSuccess {
		t.Fatalf("status = %q, errors = %v", res.Status, res.Errors)
	}
}
