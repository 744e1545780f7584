package container

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/logx"
	"github.com/forgeworks/sdo/internal/redisx"
)

// instance is the Manager's in-process bookkeeping for one agent
// container, mirroring the spec's "Agent Container" entity (§3): a
// platform-native container id, the config it was created with, its
// lifecycle State, and its last-activity timestamp.
type instance struct {
	id           string
	name         string
	cfg          Config
	factory      Factory
	state        State
	lastActivity time.Time
}

// Manager implements the Agent Container Manager's public operations
// (spec.md §4.1): create, send_message, send_file, status, logs, pause,
// resume, delete. It is the only path between the orchestrator and a
// running agent container (§4.1 "MUST be the only path for text
// exchange"). Grounded on pkg/exec/container_registry.go's id->info
// tracking map, generalized here to also own the session-continuity and
// pause/resume policy the teacher's registry does not implement.
type Manager struct {
	registry *Registry
	caps     *KnownCapabilities
	exec     ContainerExec
	rdb      *redisx.Client
	logger   *logx.Logger

	mu        sync.Mutex
	instances map[string]*instance
}

// NewManager builds a Manager over exec using registry for agent-family
// dispatch and rdb to persist Agent Session Context records (§3) across
// ephemeral container instances with a TTL equal to the container TTL.
func NewManager(registry *Registry, caps *KnownCapabilities, exec ContainerExec, rdb *redisx.Client) *Manager {
	return &Manager{
		registry:  registry,
		caps:      caps,
		exec:      exec,
		rdb:       rdb,
		logger:    logx.NewLogger("container.manager"),
		instances: make(map[string]*instance),
	}
}

func sessionKey(agentID string) string { return fmt.Sprintf("agent_session:%s", agentID) }

// Create provisions a new agent container for cfg and returns its
// opaque agent id (spec.md §4.1 "create(config) -> agent_id").
func (m *Manager) Create(ctx context.Context, cfg Config) (string, error) {
	cfg = cfg.normalize()

	factory, err := m.registry.Lookup(cfg.Agent)
	if err != nil {
		return "", err
	}
	if err := m.caps.Validate(cfg.Capabilities); err != nil {
		return "", err
	}
	for _, env := range factory.RequiredEnvVars(cfg) {
		if _, ok := cfg.EnvVars[env]; !ok {
			return "", errInvalidConfig("agent %s requires env var %q", cfg.Agent, env)
		}
	}

	preInstalled := map[string]bool{"git": true} // base image ships git (§4.1 "pre-installed capabilities")
	installCmds := factory.InstallCommands(cfg.Capabilities, preInstalled)
	invokeCmd := factory.InvokeCommand(cfg)

	agentID := uuid.NewString()
	name := fmt.Sprintf("sdo-agent-%s", agentID[:8])

	id, err := m.exec.Create(ctx, name, cfg, installCmds, invokeCmd)
	if err != nil {
		return "", errs.Wrap(errs.KindTransient, fmt.Errorf("container: create failed: %w", err))
	}

	for path, content := range factory.WriteInstructions(cfg) {
		if err := m.exec.WriteFile(ctx, id, path, []byte(content)); err != nil {
			return "", errs.Wrap(errs.KindTransient, fmt.Errorf("container: failed to write instructions: %w", err))
		}
	}

	m.mu.Lock()
	m.instances[agentID] = &instance{
		id:           id,
		name:         name,
		cfg:          cfg,
		factory:      factory,
		state:        StateIdle,
		lastActivity: time.Now().UTC(),
	}
	m.mu.Unlock()

	m.logger.Info("created agent %s (container %s, type %s)", agentID, id, cfg.Agent)
	return agentID, nil
}

func (m *Manager) get(agentID string) (*instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[agentID]
	if !ok {
		return nil, errNotFound(agentID)
	}
	return inst, nil
}

// loadSession reads the Agent Session Context for agentID, if any
// (spec.md §3 "Agent Session Context ... owned exclusively by the
// Container Manager; the Coordinator never reads session context
// directly").
func (m *Manager) loadSession(ctx context.Context, agentID string) (SessionContext, error) {
	raw, ok, err := m.rdb.Get(ctx, sessionKey(agentID))
	if err != nil {
		return SessionContext{}, errs.Wrap(errs.KindTransient, err)
	}
	if !ok {
		return SessionContext{}, nil
	}
	var sc SessionContext
	if err := json.Unmarshal([]byte(raw), &sc); err != nil {
		return SessionContext{}, fmt.Errorf("container: failed to unmarshal session context for %s: %w", agentID, err)
	}
	return sc, nil
}

func (m *Manager) saveSession(ctx context.Context, agentID string, sc SessionContext, ttl time.Duration) error {
	data, err := json.Marshal(sc)
	if err != nil {
		return fmt.Errorf("container: failed to marshal session context for %s: %w", agentID, err)
	}
	if err := m.rdb.Set(ctx, sessionKey(agentID), string(data), ttl); err != nil {
		return errs.Wrap(errs.KindTransient, err)
	}
	return nil
}

// SendMessage is the sole text-exchange path between orchestrator and
// agent (spec.md §4.1). It loads prior session context, unpauses the
// container if idle, delegates to the agent-specific factory, persists
// the updated context, and re-enters idle.
func (m *Manager) SendMessage(ctx context.Context, agentID, text string) (SendResult, error) {
	inst, err := m.get(agentID)
	if err != nil {
		return SendResult{}, err
	}

	session, err := m.loadSession(ctx, agentID)
	if err != nil {
		return SendResult{}, err
	}

	if err := m.transition(ctx, inst, StateRunning); err != nil {
		return SendResult{}, err
	}

	timeout := inst.cfg.commandTimeout()
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, sendErr := inst.factory.SendMessage(callCtx, m.exec, inst.id, text, session)

	m.mu.Lock()
	inst.lastActivity = time.Now().UTC()
	m.mu.Unlock()

	if sendErr != nil {
		if callCtx.Err() != nil {
			m.markState(inst, StateError)
			return SendResult{}, errTimeout(agentID, timeout)
		}
		m.markState(inst, StateError)
		return SendResult{}, errAgentError(agentID, sendErr)
	}

	if err := m.saveSession(ctx, agentID, result.UpdatedContext, inst.cfg.ttl()); err != nil {
		return SendResult{}, err
	}
	if err := m.transition(ctx, inst, StateIdle); err != nil {
		return SendResult{}, err
	}
	return result, nil
}

// SendFile writes content at path inside the container (spec.md §4.1
// "send_file(agent_id, path, content)").
func (m *Manager) SendFile(ctx context.Context, agentID, path string, content []byte) error {
	inst, err := m.get(agentID)
	if err != nil {
		return err
	}
	if err := m.exec.WriteFile(ctx, inst.id, path, content); err != nil {
		return errs.Wrap(errs.KindTransient, err)
	}
	return nil
}

// Status returns the current Info for agentID.
func (m *Manager) Status(ctx context.Context, agentID string) (Info, error) {
	inst, err := m.get(agentID)
	if err != nil {
		return Info{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return Info{ID: agentID, Agent: inst.cfg.Agent, State: inst.state, LastActivity: inst.lastActivity}, nil
}

// Logs returns the most recent container output.
func (m *Manager) Logs(ctx context.Context, agentID string, tail int) (string, error) {
	inst, err := m.get(agentID)
	if err != nil {
		return "", err
	}
	out, err := m.exec.Logs(ctx, inst.id, tail)
	if err != nil {
		return "", errs.Wrap(errs.KindTransient, err)
	}
	return out, nil
}

// Pause suspends the container's CPU, entering the idle state early
// (spec.md §4.1 "Entering idle pauses the container").
func (m *Manager) Pause(ctx context.Context, agentID string) error {
	inst, err := m.get(agentID)
	if err != nil {
		return err
	}
	return m.transition(ctx, inst, StateIdle)
}

// Resume unpauses the container ahead of the next send_message.
func (m *Manager) Resume(ctx context.Context, agentID string) error {
	inst, err := m.get(agentID)
	if err != nil {
		return err
	}
	return m.transition(ctx, inst, StateRunning)
}

// Delete stops and removes the container and deletes its session
// context entry (spec.md §4.1 "On container deletion, the session
// context entry is deleted").
func (m *Manager) Delete(ctx context.Context, agentID string) error {
	inst, err := m.get(agentID)
	if err != nil {
		return err
	}
	if err := m.exec.Stop(ctx, inst.id, 10*time.Second); err != nil {
		m.logger.Warn("stop failed for agent %s during delete: %v", agentID, err)
	}
	if err := m.exec.Remove(ctx, inst.id); err != nil {
		return errs.Wrap(errs.KindTransient, err)
	}
	if err := m.rdb.Delete(ctx, sessionKey(agentID)); err != nil {
		return err
	}

	m.mu.Lock()
	inst.state = StateDeleted
	delete(m.instances, agentID)
	m.mu.Unlock()
	return nil
}

// transition drives the lifecycle state machine (§4.1 "initializing ->
// idle <-> running -> (idle|error) -> deleted"), pausing/unpausing the
// underlying container to match idle/running.
func (m *Manager) transition(ctx context.Context, inst *instance, target State) error {
	m.mu.Lock()
	current := inst.state
	m.mu.Unlock()

	if current == target {
		return nil
	}

	switch target {
	case StateIdle:
		if current == StateRunning || current == StateError {
			if err := m.exec.Pause(ctx, inst.id); err != nil {
				return errs.Wrap(errs.KindTransient, err)
			}
		}
	case StateRunning:
		if current == StateIdle {
			if err := m.exec.Unpause(ctx, inst.id); err != nil {
				return errs.Wrap(errs.KindTransient, err)
			}
		}
	}
	m.markState(inst, target)
	return nil
}

func (m *Manager) markState(inst *instance, s State) {
	m.mu.Lock()
	inst.state = s
	inst.lastActivity = time.Now().UTC()
	m.mu.Unlock()
}
