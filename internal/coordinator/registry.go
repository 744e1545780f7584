// Package coordinator implements the Intent Classifier + Coordinator
// Agent ("Product Owner", spec.md §4.5): the capability registry, base
// tools, agentic tool-calling loop, and intent-classifier gate.
// Grounded on the teacher's pkg/tools/registry.go (global registry,
// sealed after first use, allow-set scoped providers), generalized from
// per-tool allow-sets to capability bundles per spec.md §4.5's "a
// capability is a bundle: activating it exposes all its tools
// atomically".
package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/forgeworks/sdo/internal/llm"
)

// Capability is one of the canonical bundles named in spec.md §4.5.
type Capability string

const (
	CapabilityDeploy            Capability = "deploy"
	CapabilityInfrastructure    Capability = "infrastructure"
	CapabilityProjectManagement Capability = "project_management"
	CapabilityEngineering       Capability = "engineering"
	CapabilityDiagnose          Capability = "diagnose"
	CapabilityAdmin             Capability = "admin"
)

// Tool is one callable Coordinator tool.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any // JSON schema, passed through to llm.ToolSpec
	Execute(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error)
}

// ToolFunc adapts a plain function to Tool for tools with no extra state.
type ToolFunc struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error)
}

// NewToolFunc builds a Tool from a bare function.
func NewToolFunc(name, description string, parameters map[string]any, fn func(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error)) Tool {
	return &ToolFunc{name: name, description: description, parameters: parameters, fn: fn}
}

func (t *ToolFunc) Name() string                    { return t.name }
func (t *ToolFunc) Description() string             { return t.description }
func (t *ToolFunc) Parameters() map[string]any      { return t.parameters }
func (t *ToolFunc) Execute(ctx context.Context, rc *RunContext, args map[string]any) (map[string]any, error) {
	return t.fn(ctx, rc, args)
}

// bundle pairs a capability with the tools it exposes.
type bundle struct {
	description string
	tools       []Tool
}

// Registry is the process-wide capability → tool-bundle mapping. The
// zero value is not usable; construct via NewRegistry.
type Registry struct {
	mu       sync.RWMutex
	sealed   bool
	bundles  map[Capability]bundle
	baseTool map[string]Tool
}

// NewRegistry builds an empty registry. A single instance is expected
// to live for the process lifetime (constructed in cmd/sdo's wiring).
func NewRegistry() *Registry {
	return &Registry{
		bundles:  make(map[Capability]bundle),
		baseTool: make(map[string]Tool),
	}
}

// RegisterBaseTool adds a tool to the always-available base set
// (spec.md §4.5 "Base tools"). Panics if called after Seal.
func (r *Registry) RegisterBaseTool(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic(fmt.Sprintf("coordinator: registry sealed, cannot register base tool %q", t.Name()))
	}
	r.baseTool[t.Name()] = t
}

// RegisterCapability declares a capability bundle. Panics if called
// after Seal or on a duplicate capability name.
func (r *Registry) RegisterCapability(cap Capability, description string, tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic(fmt.Sprintf("coordinator: registry sealed, cannot register capability %q", cap))
	}
	if _, exists := r.bundles[cap]; exists {
		panic(fmt.Sprintf("coordinator: capability %q already registered", cap))
	}
	r.bundles[cap] = bundle{description: description, tools: tools}
}

// Seal prevents further registration. Called once after all capability
// bundles are wired at process startup.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Validate reports whether every name in caps is a known capability,
// returning the first unknown name found.
func (r *Registry) Validate(caps []Capability) (unknown Capability, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range caps {
		if _, exists := r.bundles[c]; !exists {
			return c, false
		}
	}
	return "", true
}

// KnownCapabilities lists every registered capability name, sorted.
func (r *Registry) KnownCapabilities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.bundles))
	for c := range r.bundles {
		names = append(names, string(c))
	}
	sort.Strings(names)
	return names
}

// ToolsFor returns base_tools ∪ tools_for(active) per spec.md §4.5's
// agentic-loop step 1, de-duplicated by tool name.
func (r *Registry) ToolsFor(active map[string]bool) []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []Tool
	for _, t := range r.baseTool {
		out = append(out, t)
		seen[t.Name()] = struct{}{}
	}

	capNames := make([]string, 0, len(active))
	for c, on := range active {
		if on {
			capNames = append(capNames, c)
		}
	}
	sort.Strings(capNames)
	for _, c := range capNames {
		b, ok := r.bundles[Capability(c)]
		if !ok {
			continue
		}
		for _, t := range b.tools {
			if _, dup := seen[t.Name()]; dup {
				continue
			}
			out = append(out, t)
			seen[t.Name()] = struct{}{}
		}
	}
	return out
}

// lookup finds a tool by name across the base set and every bundle,
// used by the tool-executor node to dispatch a call regardless of
// whether the capability exposing it is currently active (a call for a
// capability activated mid-turn must still resolve on the next turn).
func (r *Registry) lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if t, ok := r.baseTool[name]; ok {
		return t, true
	}
	for _, b := range r.bundles {
		for _, t := range b.tools {
			if t.Name() == name {
				return t, true
			}
		}
	}
	return nil, false
}

// toLLMSpecs converts tools to the wire shape the llm package sends to
// the model.
func toLLMSpecs(tools []Tool) []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(tools))
	for _, t := range tools {
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return specs
}
