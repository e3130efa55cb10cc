package tool

import (
	"fmt"
	"sync"

	"github.com/gate-labs/qualgate/core"
)

// Factory constructs and caches tool wrappers by category. Wrappers are
// built lazily on first use with the factory's dependency set; new
// categories register a Provider without touching existing wrappers.
type Factory struct {
	mu        sync.Mutex
	deps      Deps
	providers map[core.ToolCategory]Provider
	instances map[core.ToolCategory]Wrapper
}

// NewFactory creates a factory with the built-in category providers
// registered. The factory injects itself into Deps so composite
// wrappers can dispatch to sibling categories.
func NewFactory(deps Deps) *Factory {
	f := &Factory{
		deps:      deps,
		providers: make(map[core.ToolCategory]Provider),
		instances: make(map[core.ToolCategory]Wrapper),
	}
	f.deps.Factory = f

	f.providers[core.CategoryLinter] = NewLintWrapper
	f.providers[core.CategoryFormatter] = NewFormatWrapper
	f.providers[core.CategoryTestRunner] = NewTestWrapper
	f.providers[core.CategorySecurityScanner] = NewSecurityWrapper
	f.providers[core.CategoryPackageManager] = NewPackageManagerWrapper
	f.providers[core.CategoryDimension] = NewDimensionWrapper
	f.providers[core.CategoryCompiler] = NewGenericWrapper
	f.providers[core.CategoryBundler] = NewGenericWrapper
	f.providers[core.CategoryDependencyManager] = NewGenericWrapper
	f.providers[core.CategoryGeneric] = NewGenericWrapper
	return f
}

// RegisterWrapper adds a provider for a category. Registering an
// already-registered category is an error; existing behavior is never
// silently replaced.
func (f *Factory) RegisterWrapper(category core.ToolCategory, provider Provider) error {
	if provider == nil {
		return core.NewError(core.CodeIntegration, "factory: provider is nil", true, nil)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.providers[category]; exists {
		return core.NewError(core.CodeIntegration,
			fmt.Sprintf("factory: category %q already registered", category), true, nil)
	}
	f.providers[category] = provider
	return nil
}

// Load returns the wrapper for a category, constructing it on first use.
func (f *Factory) Load(category core.ToolCategory) (Wrapper, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if w, ok := f.instances[category]; ok {
		return w, nil
	}
	provider, ok := f.providers[category]
	if !ok {
		return nil, core.NewError(core.CodeIntegration,
			fmt.Sprintf("factory: no wrapper for category %q", category), true, nil)
	}
	w, err := provider(f.deps)
	if err != nil {
		return nil, core.NewError(core.CodeIntegration,
			fmt.Sprintf("factory: constructing %q wrapper failed", category), true, err)
	}
	f.instances[category] = w
	return w, nil
}

// WrapperFor resolves the wrapper for a descriptor. Stack-auto-detect
// descriptors always route to the dimension wrapper; everything else is
// classified by tool name.
func (f *Factory) WrapperFor(desc core.Descriptor) (Wrapper, error) {
	if desc.Mode == core.ModeStackAutoDetect {
		return f.Load(core.CategoryDimension)
	}
	return f.Load(f.deps.Classifier.Classify(desc.Name))
}

// Categories returns the registered category names, for diagnostics.
func (f *Factory) Categories() []core.ToolCategory {
	f.mu.Lock()
	defer f.mu.Unlock()
	cats := make([]core.ToolCategory, 0, len(f.providers))
	for c := range f.providers {
		cats = append(cats, c)
	}
	return cats
}
