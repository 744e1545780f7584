package container

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// capabilityPackages maps a declared capability name to the system
// package(s)/skill file it installs (spec.md §6 "capabilities (list of
// strings; each mapped to a system-package + skill-file set)").
var capabilityPackages = map[string][]string{
	"git":    {"git"},
	"node":   {"nodejs", "npm"},
	"python": {"python3", "python3-pip"},
	"go":     {"golang-go"},
	"docker": {"docker.io"},
}

func installFor(capabilities []string, preInstalled map[string]bool) []string {
	var cmds []string
	for _, c := range capabilities {
		if preInstalled[c] {
			continue // §4.1 "pre-installed capabilities MUST be recognized and not re-installed"
		}
		pkgs, ok := capabilityPackages[c]
		if !ok {
			continue
		}
		cmds = append(cmds, fmt.Sprintf("apt-get install -y %s", strings.Join(pkgs, " ")))
	}
	return cmds
}

func instructionsFor(cfg Config) map[string]string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Agent capabilities\n\ncapabilities: %s\n\nallowed tools:\n", strings.Join(cfg.Capabilities, ", "))
	for _, t := range cfg.AllowedTools {
		fmt.Fprintf(&b, "- %s\n", t)
	}
	return map[string]string{"/workspace/AGENT_SKILLS.md": b.String()}
}

// structuredReply is the one-JSON-object-per-reply shape agents report
// over agents:{agent_id}:response (spec.md §6). Both factories below
// parse it the same way; only the invocation command differs.
type structuredReply struct {
	Response  string            `json:"response"`
	SessionID string            `json:"session_id"`
	Blob      string            `json:"blob,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ClaudeFactory drives the "claude" CLI coding agent (spec.md §4.1 "CLI
// brand A"), grounded on agents/{claude,claude_live}.go's invocation and
// structured-output parsing.
type ClaudeFactory struct{}

func (ClaudeFactory) InstallCommands(capabilities []string, preInstalled map[string]bool) []string {
	cmds := installFor(capabilities, preInstalled)
	if !preInstalled["claude-cli"] {
		cmds = append(cmds, "npm install -g @anthropic-ai/claude-code")
	}
	return cmds
}

func (ClaudeFactory) InvokeCommand(cfg Config) []string {
	return []string{"claude", "--print", "--output-format", "json"}
}

func (ClaudeFactory) RequiredEnvVars(cfg Config) []string {
	return []string{"ANTHROPIC_API_KEY"}
}

func (ClaudeFactory) WriteInstructions(cfg Config) map[string]string {
	return instructionsFor(cfg)
}

func (ClaudeFactory) SendMessage(ctx context.Context, exec ContainerExec, id, text string, session SessionContext) (SendResult, error) {
	return runStructuredTurn(ctx, exec, id, []string{"claude", "--print", "--output-format", "json"}, text, session)
}

// CodexFactory drives a second CLI coding agent family (spec.md §4.1
// "CLI brand B"), proving the factory registry is genuinely pluggable:
// adding it required zero Manager changes, only a Registry.Register call
// at startup.
type CodexFactory struct{}

func (CodexFactory) InstallCommands(capabilities []string, preInstalled map[string]bool) []string {
	cmds := installFor(capabilities, preInstalled)
	if !preInstalled["codex-cli"] {
		cmds = append(cmds, "npm install -g @openai/codex")
	}
	return cmds
}

func (CodexFactory) InvokeCommand(cfg Config) []string {
	return []string{"codex", "exec", "--json"}
}

func (CodexFactory) RequiredEnvVars(cfg Config) []string {
	return []string{"OPENAI_API_KEY"}
}

func (CodexFactory) WriteInstructions(cfg Config) map[string]string {
	return instructionsFor(cfg)
}

func (CodexFactory) SendMessage(ctx context.Context, exec ContainerExec, id, text string, session SessionContext) (SendResult, error) {
	return runStructuredTurn(ctx, exec, id, []string{"codex", "exec", "--json"}, text, session)
}

// runStructuredTurn execs the agent's invoke command with text piped via
// a temp prompt file (simpler and more robust across CLI brands than
// arg-escaping a multi-line prompt), parses the last JSON object out of
// stdout as a structuredReply, and folds any continuation id the agent
// reports back into an updated SessionContext.
func runStructuredTurn(ctx context.Context, exec ContainerExec, id string, invoke []string, text string, session SessionContext) (SendResult, error) {
	const promptPath = "/workspace/.sdo-prompt.txt"
	if err := exec.WriteFile(ctx, id, promptPath, []byte(text)); err != nil {
		return SendResult{}, fmt.Errorf("container: failed to write prompt file: %w", err)
	}

	argv := append([]string{}, invoke...)
	if session.SessionID != "" {
		argv = append(argv, "--resume", session.SessionID)
	}
	argv = append(argv, "--prompt-file", promptPath)

	stdout, exitCode, err := exec.Exec(ctx, id, argv, 120*time.Second)
	if err != nil {
		return SendResult{}, err
	}
	if exitCode != 0 {
		return SendResult{}, fmt.Errorf("container: agent process exited %d", exitCode)
	}

	var reply structuredReply
	last := lastJSONObject(stdout)
	if last == "" {
		return SendResult{Response: strings.TrimSpace(stdout)}, nil
	}
	if err := json.Unmarshal([]byte(last), &reply); err != nil {
		return SendResult{Response: strings.TrimSpace(stdout)}, nil
	}

	return SendResult{
		Response:       reply.Response,
		UpdatedContext: SessionContext{SessionID: reply.SessionID, Blob: reply.Blob},
		Metadata:       reply.Metadata,
	}, nil
}

// lastJSONObject returns the last top-level `{...}` substring in s, or ""
// if none is found — CLI agents often emit progress lines before their
// final structured reply.
func lastJSONObject(s string) string {
	end := strings.LastIndexByte(s, '}')
	if end < 0 {
		return ""
	}
	depth := 0
	for i := end; i >= 0; i-- {
		switch s[i] {
		case '}':
			depth++
		case '{':
			depth--
			if depth == 0 {
				return s[i : end+1]
			}
		}
	}
	return ""
}
