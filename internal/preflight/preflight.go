// Package preflight validates that the services and credentials a
// configured orchestrator process actually needs are available before
// it starts accepting chat traffic or durable jobs: Docker (every
// agent container),
// the repository host, and the LLM provider behind each model
// `internal/config.Config.Models` names.
//
// Grounded on pkg/preflight's own Run/RequiredProviders/CheckResult
// shape and main.go's checkDependencies, trimmed to the provider set
// this system's own config schema can name (no Gitea/airplane-mode
// alternate forge, no PM-agent model) and adapted onto
// internal/config.GetAPIKey instead of direct per-provider env lookups.
package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/forgeworks/sdo/internal/config"
)

// CheckResult is the outcome of a single preflight check.
type CheckResult struct {
	Provider string
	Message  string
	Passed   bool
	Err      error
}

// Results aggregates every check run by Run.
type Results struct {
	Checks []CheckResult
	Passed bool
}

// Run executes a Docker availability check, a repository-host
// credential check, and one LLM-provider check per distinct provider
// referenced by cfg.Models.
func Run(ctx context.Context, cfg *config.Config) *Results {
	results := &Results{Passed: true}

	for _, check := range []CheckResult{checkDocker(ctx), checkRepoHost()} {
		results.Checks = append(results.Checks, check)
		if !check.Passed {
			results.Passed = false
		}
	}

	seen := make(map[config.Provider]bool)
	for _, model := range cfg.Models {
		if seen[model.Provider] {
			continue
		}
		seen[model.Provider] = true

		check := checkLLMProvider(model.Provider)
		results.Checks = append(results.Checks, check)
		if !check.Passed {
			results.Passed = false
		}
	}

	return results
}

// Validate is a convenience wrapper returning a single combined error.
func Validate(ctx context.Context, cfg *config.Config) error {
	results := Run(ctx, cfg)
	if results.Passed {
		return nil
	}

	var failed []string
	for _, c := range results.Checks {
		if !c.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", c.Provider, c.Message))
		}
	}
	return fmt.Errorf("preflight checks failed:\n%s", strings.Join(failed, "\n"))
}

func checkDocker(ctx context.Context) CheckResult {
	cmd := exec.CommandContext(ctx, "docker", "version", "--format", "{{.Server.Version}}")
	output, err := cmd.Output()
	if err != nil {
		return CheckResult{Provider: "docker", Message: "docker is not running or not installed", Err: err}
	}
	return CheckResult{Provider: "docker", Passed: true, Message: fmt.Sprintf("docker %s is running", strings.TrimSpace(string(output)))}
}

// checkRepoHost pings the GitHub API anonymously to confirm network
// reachability; the App credentials themselves are validated lazily on
// first repository creation rather than here, since verifying a JWT-
// signed installation token would require minting one just to discard it.
func checkRepoHost() CheckResult {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("https://api.github.com")
	if err != nil {
		return CheckResult{Provider: "repo-host", Message: "cannot reach the repository host API", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return CheckResult{Provider: "repo-host", Message: fmt.Sprintf("repository host returned status %d", resp.StatusCode), Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	return CheckResult{Provider: "repo-host", Passed: true, Message: "repository host is reachable"}
}

func checkLLMProvider(provider config.Provider) CheckResult {
	name := string(provider)

	if provider == config.ProviderOllama {
		host, err := config.GetAPIKey(provider)
		if err != nil {
			return CheckResult{Provider: name, Message: "OLLAMA_HOST is not set", Err: err}
		}
		client := &http.Client{Timeout: 5 * time.Second}
		resp, err := client.Get(strings.TrimRight(host, "/") + "/api/tags")
		if err != nil {
			return CheckResult{Provider: name, Message: fmt.Sprintf("cannot reach ollama at %s", host), Err: err}
		}
		defer resp.Body.Close()
		return CheckResult{Provider: name, Passed: true, Message: fmt.Sprintf("ollama is reachable at %s", host)}
	}

	if _, err := config.GetAPIKey(provider); err != nil {
		return CheckResult{Provider: name, Message: fmt.Sprintf("%s API key is not configured", name), Err: err}
	}
	return CheckResult{Provider: name, Passed: true, Message: fmt.Sprintf("%s API key is configured", name)}
}
