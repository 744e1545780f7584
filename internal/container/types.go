// Package container implements the Agent Container Manager & Factory
// Registry (spec.md §4.1, component C1): a pluggable factory that
// provisions, pauses, resumes and destroys isolated execution
// environments per user session, carrying per-session state across
// ephemeral container instances.
//
// Grounded on agents/{claude,claude_live,driver_agent}.go for the
// per-agent-family send-message shape and pkg/exec/{docker,
// docker_long_running,container_registry}.go for the pause/resume
// lifecycle and image-cache-key idea, generalized onto the
// github.com/docker/docker SDK client the way kdlbs-kandev's
// internal/agent/docker wraps it (the teacher itself only shells out to
// the docker CLI; the SDK client is the idiomatic choice once the
// dependency is already declared).
package container

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// AgentType identifies a CLI-agent family (spec.md §4.1 "CLI brand A,
// CLI brand B"). New families register a Factory under a new AgentType;
// no Manager changes required.
type AgentType string

// State is the container lifecycle state (spec.md §4.1 "Lifecycle state
// machine"): initializing -> idle <-> running -> (idle|error) -> deleted.
type State string

const (
	StateInitializing State = "initializing"
	StateIdle          State = "idle"
	StateRunning       State = "running"
	StateError         State = "error"
	StateDeleted       State = "deleted"
)

// AllowedTool is one of the capability-level authorization scopes a
// container config may grant (spec.md §6 "allowed_tools").
type AllowedTool string

const (
	AllowedProject  AllowedTool = "project"
	AllowedDeploy   AllowedTool = "deploy"
	AllowedEngineer AllowedTool = "engineering"
	AllowedInfra    AllowedTool = "infra"
	AllowedRespond  AllowedTool = "respond"
	AllowedAdmin    AllowedTool = "admin"
)

// Config is the declarative agent-container config contract (spec.md §6).
type Config struct {
	Agent          AgentType
	Capabilities   []string
	AllowedTools   []AllowedTool
	HasInternet    bool
	TTLHours       int
	TimeoutMinutes int
	EnvVars        map[string]string

	// PreviewPorts exposes container-internal ports on the host loopback
	// interface (127.0.0.1) so the tester node can probe a dev server the
	// developer agent started, without routing through the deploy
	// sub-pipeline's server/port allocator (§3 "Allocation" is a
	// (server, port) reservation for a deployed *service*; this is an
	// ephemeral debugging aid scoped to one container's lifetime).
	PreviewPorts []int
}

const (
	defaultTTLHours       = 2
	defaultTimeoutMinutes = 10
)

// normalize fills in defaults (§6 "ttl_hours (default 2)",
// "timeout_minutes (default 10)") without mutating the caller's copy.
// HasInternet is not defaulted: a Config that leaves it unset keeps the
// bool zero value, false.
func (c Config) normalize() Config {
	if c.TTLHours <= 0 {
		c.TTLHours = defaultTTLHours
	}
	if c.TimeoutMinutes <= 0 {
		c.TimeoutMinutes = defaultTimeoutMinutes
	}
	return c
}

func (c Config) ttl() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

func (c Config) commandTimeout() time.Duration {
	return time.Duration(c.TimeoutMinutes) * time.Minute
}

// ImageCacheKey returns hash(agent_type, capabilities_sorted) (§4.1
// "Image cache key ... changing only the capability set SHOULD produce a
// distinct image"). Every entry of Capabilities contributes to the key,
// as DockerExec.resolveImage uses it; no capability is filtered out first.
func (c Config) ImageCacheKey() string {
	caps := append([]string(nil), c.Capabilities...)
	sort.Strings(caps)
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s", c.Agent, strings.Join(caps, ","))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Allows reports whether tool is granted by the config's allow-list.
func (c Config) Allows(tool AllowedTool) bool {
	for _, t := range c.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}

// SessionContext is the Agent Session Context record (spec.md §3): state
// carried across ephemeral container instances for a given container id.
// The blob is agent-specific and opaque to the Manager.
type SessionContext struct {
	SessionID string `json:"session_id"`
	Blob      string `json:"blob"`
}

// SendResult is send_message's return value (spec.md §4.1).
type SendResult struct {
	Response        string
	UpdatedContext  SessionContext
	Metadata        map[string]string
}

// Info is what status(agent_id) returns.
type Info struct {
	ID           string
	Agent        AgentType
	State        State
	LastActivity time.Time
}
