package qualgate

import (
	"sort"

	"github.com/gate-labs/qualgate/core"
)

// PlanGroup is the planned tool set for one dimension. Tool names within
// a group are unique.
type PlanGroup struct {
	Dimension   core.Dimension
	Descriptors []core.Descriptor
}

// ExecutionPlan is the ordered set of groups a run will execute. Groups
// are ordered by dimension and descriptors by tool name, so two runs
// over the same inputs produce the same plan.
type ExecutionPlan struct {
	Groups []PlanGroup
}

// Tools returns the total descriptor count across all groups.
func (p ExecutionPlan) Tools() int {
	n := 0
	for _, g := range p.Groups {
		n += len(g.Descriptors)
	}
	return n
}

// SharedTools returns the tool names that appear in more than one
// group. The executor runs each of these once and reuses the result for
// every dimension that requested it.
func (p ExecutionPlan) SharedTools() []string {
	count := map[string]int{}
	for _, g := range p.Groups {
		for _, d := range g.Descriptors {
			if d.Mode == core.ModeSpecificTool {
				count[d.Name]++
			}
		}
	}
	var shared []string
	for name, n := range count {
		if n > 1 {
			shared = append(shared, name)
		}
	}
	sort.Strings(shared)
	return shared
}

// BuildPlan groups descriptors by dimension, dropping duplicate tool
// names within a group.
func BuildPlan(descriptors []core.Descriptor) ExecutionPlan {
	byDim := map[core.Dimension][]core.Descriptor{}
	seen := map[string]bool{}
	for _, d := range descriptors {
		key := d.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		byDim[d.Dimension] = append(byDim[d.Dimension], d)
	}

	dims := make([]core.Dimension, 0, len(byDim))
	for dim := range byDim {
		dims = append(dims, dim)
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i] < dims[j] })

	plan := ExecutionPlan{Groups: make([]PlanGroup, 0, len(dims))}
	for _, dim := range dims {
		group := byDim[dim]
		sort.Slice(group, func(i, j int) bool { return group[i].Name < group[j].Name })
		plan.Groups = append(plan.Groups, PlanGroup{Dimension: dim, Descriptors: group})
	}
	return plan
}
