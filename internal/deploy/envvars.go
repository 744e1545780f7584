// Package deploy implements the Deployment Sub-pipeline (spec.md
// §4.6): fetch_project_config → env_analyzer → secret_resolver →
// readiness_check → {deployer|END} → verify_deployment → END, with a
// handle_failure sink. Grounded on the teacher's pkg/workspace (project/
// server resource handling) and pkg/tools/compose_*.go (declarative,
// compose-shaped deploy execution).
package deploy

import "strings"

// EnvClass is env_analyzer's classification of one .env variable
// (spec.md §4.6 "env_analyzer").
type EnvClass string

const (
	EnvClassInfra    EnvClass = "infra"
	EnvClassComputed EnvClass = "computed"
	EnvClassUser     EnvClass = "user"
)

// proto.GraphState carries no dedicated env-classification field, so
// classifications and resolved values are encoded into the existing
// AllocatedResources string map under reserved key prefixes:
//
//	envclass:{NAME} -> "infra" | "computed" | "user"
//	envvalue:{NAME} -> resolved value (infra/computed only; user values
//	                   live in the external project record, not state)
//
// This keeps the classification durable across checkpoint/resume
// boundaries without widening the shared state schema for a detail
// specific to one sub-pipeline.
const (
	envClassPrefix = "envclass:"
	envValuePrefix = "envvalue:"
)

func classKey(name string) string { return envClassPrefix + name }
func valueKey(name string) string { return envValuePrefix + name }

// envVarNames extracts the variable names declared in .env.example
// content: one NAME=... per line, blank lines and #-comments ignored.
func envVarNames(envExample string) []string {
	var names []string
	for _, line := range strings.Split(envExample, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, _, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		names = append(names, strings.TrimSpace(name))
	}
	return names
}

// classifications reads every envclass:* entry out of resources.
func classifications(resources map[string]string) map[string]EnvClass {
	out := make(map[string]EnvClass)
	for k, v := range resources {
		if name, ok := strings.CutPrefix(k, envClassPrefix); ok {
			out[name] = EnvClass(v)
		}
	}
	return out
}

// resolvedValues reads every envvalue:* entry out of resources.
func resolvedValues(resources map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range resources {
		if name, ok := strings.CutPrefix(k, envValuePrefix); ok {
			out[name] = v
		}
	}
	return out
}
