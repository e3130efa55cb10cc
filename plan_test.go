package qualgate

import (
	"testing"

	"github.com/gate-labs/qualgate/core"
)

func TestBuildPlanGroupsAndOrders(t *testing.T) {
	descs := []core.Descriptor{
		{Name: "pytest", Dimension: core.DimensionTest, Mode: core.ModeSpecificTool},
		{Name: "eslint", Dimension: core.DimensionLint, Mode: core.ModeSpecificTool},
		{Name: "black", Dimension: core.DimensionFormat, Mode: core.ModeSpecificTool},
		{Name: "ruff", Dimension: core.DimensionLint, Mode: core.ModeSpecificTool},
	}

	plan := BuildPlan(descs)
	if len(plan.Groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(plan.Groups))
	}
	// Dimension order: format < lint < test.
	if plan.Groups[0].Dimension != core.DimensionFormat ||
		plan.Groups[1].Dimension != core.DimensionLint ||
		plan.Groups[2].Dimension != core.DimensionTest {
		t.Errorf("group order: %v, %v, %v",
			plan.Groups[0].Dimension, plan.Groups[1].Dimension, plan.Groups[2].Dimension)
	}
	lint := plan.Groups[1].Descriptors
	if len(lint) != 2 || lint[0].Name != "eslint" || lint[1].Name != "ruff" {
		t.Errorf("lint group = %+v", lint)
	}
	if plan.Tools() != 4 {
		t.Errorf("Tools() = %d, want 4", plan.Tools())
	}
}

func TestBuildPlanDropsDuplicatesWithinGroup(t *testing.T) {
	descs := []core.Descriptor{
		{Name: "eslint", Dimension: core.DimensionLint, Mode: core.ModeSpecificTool},
		{Name: "eslint", Dimension: core.DimensionLint, Mode: core.ModeSpecificTool},
	}
	plan := BuildPlan(descs)
	if plan.Tools() != 1 {
		t.Fatalf("Tools() = %d, want 1 after dedup", plan.Tools())
	}
}

func TestSharedTools(t *testing.T) {
	descs := []core.Descriptor{
		{Name: "npm", Dimension: core.DimensionLint, Mode: core.ModeSpecificTool},
		{Name: "npm", Dimension: core.DimensionSecurity, Mode: core.ModeSpecificTool},
		{Name: "eslint", Dimension: core.DimensionLint, Mode: core.ModeSpecificTool},
		// Auto-detect units are never shared across dimensions.
		{Name: "lint", Dimension: core.DimensionLint, Mode: core.ModeStackAutoDetect},
	}
	plan := BuildPlan(descs)
	shared := plan.SharedTools()
	if len(shared) != 1 || shared[0] != "npm" {
		t.Errorf("SharedTools() = %v, want [npm]", shared)
	}
}

func TestBuildPlanEmpty(t *testing.T) {
	plan := BuildPlan(nil)
	if len(plan.Groups) != 0 || plan.Tools() != 0 {
		t.Errorf("empty plan = %+v", plan)
	}
}
