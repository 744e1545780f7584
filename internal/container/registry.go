package container

import (
	"context"
	"fmt"
	"sync"
)

// Factory is the polymorphic surface every agent family implements
// (spec.md §4.1 "Factory registry ... polymorphic over the capability
// set {install-command generation, invocation command, required env
// vars, instruction-file generation, send_message}", §9 "duck typing ->
// interface abstraction"). The Manager dispatches to the registered
// Factory for a Config's Agent field; it never special-cases a
// particular agent family itself.
type Factory interface {
	// InstallCommands returns the shell commands needed to install the
	// agent binary and the given capabilities inside a freshly built
	// image, skipping any capability the image already provides
	// (§4.1 "pre-installed capabilities ... MUST be recognized and not
	// re-installed").
	InstallCommands(capabilities []string, preInstalled map[string]bool) []string

	// InvokeCommand returns the argv used to start the agent process
	// inside the container.
	InvokeCommand(cfg Config) []string

	// RequiredEnvVars names the environment variables this agent family
	// needs injected at create time (§4.1 "Policy: credentials flow only
	// in environment variables declared by required_credentials").
	RequiredEnvVars(cfg Config) []string

	// WriteInstructions returns the in-container skill/documentation
	// files to materialize for the given capability set and allowed
	// tools, keyed by path (§4.1 "writes in-container skill/
	// documentation files derived from the configured capability set").
	WriteInstructions(cfg Config) map[string]string

	// SendMessage delivers text to the running container identified by id
	// and returns its reply plus updated session context (§4.1
	// "send_message ... MUST be the only path for text exchange between
	// orchestrator and agent").
	SendMessage(ctx context.Context, exec ContainerExec, id, text string, session SessionContext) (SendResult, error)
}

// Registry is the process-wide agent_type -> factory mapping (spec.md
// §4.1 "Factory registry", §9 "global mutable state -> process-wide
// singletons with explicit init ... initialized at service startup ...
// then treated as read-only"). Grounded on pkg/tools/registry.go's
// sealed-after-first-use global registry pattern, generalized here from
// per-tool allow-sets to whole agent factories.
type Registry struct {
	mu       sync.RWMutex
	factories map[AgentType]Factory
	sealed   bool
}

// NewRegistry builds an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[AgentType]Factory)}
}

// Register adds a factory for the given agent type. Panics if called
// after Seal, matching the teacher's "no mutation at request handling
// time" registry discipline.
func (r *Registry) Register(agent AgentType, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		panic(fmt.Sprintf("container: Registry.Register(%s) called after Seal", agent))
	}
	r.factories[agent] = f
}

// Seal freezes the registry once startup wiring is complete.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup returns the factory for agent, or errInvalidConfig if none is
// registered.
func (r *Registry) Lookup(agent AgentType) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[agent]
	if !ok {
		return nil, errInvalidConfig("unknown agent type %q", agent)
	}
	return f, nil
}

// KnownCapabilities is consulted by Manager.Create to validate a
// config's requested capability set before provisioning (§4.1 "Fails
// with InvalidConfig on unknown agent type or unknown capability").
// It is itself a sealed, process-wide singleton populated at startup.
type KnownCapabilities struct {
	mu     sync.RWMutex
	byName map[string]bool
	sealed bool
}

// NewKnownCapabilities builds an empty, unsealed capability set.
func NewKnownCapabilities() *KnownCapabilities {
	return &KnownCapabilities{byName: make(map[string]bool)}
}

// Add registers a recognized capability name.
func (k *KnownCapabilities) Add(name string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.sealed {
		panic("container: KnownCapabilities.Add called after Seal")
	}
	k.byName[name] = true
}

// Seal freezes the set once startup wiring is complete.
func (k *KnownCapabilities) Seal() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.sealed = true
}

// Validate reports the first unrecognized capability name, if any.
func (k *KnownCapabilities) Validate(names []string) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	for _, n := range names {
		if !k.byName[n] {
			return errInvalidConfig("unknown capability %q", n)
		}
	}
	return nil
}
