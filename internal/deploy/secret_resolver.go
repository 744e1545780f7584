package deploy

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/proto"
)

// SecretResolverNode builds the secret_resolver graph node (spec.md
// §4.6): for each classified variable, resolves infra values by
// generation, computed values from project context, and user values
// from the project's stored secrets.
func SecretResolverNode(crud *crudclient.Client) graph.Node {
	return graph.Node{
		Name: "secret_resolver",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			classes := classifications(state.AllocatedResources)
			if len(classes) == 0 {
				return proto.Update{}, nil
			}

			resources := make(map[string]string, len(classes))
			var missing []string

			for name, class := range classes {
				switch class {
				case EnvClassInfra:
					value, err := generateInfraValue(name)
					if err != nil {
						return proto.Update{}, fmt.Errorf("secret_resolver: failed to generate value for %s: %w", name, err)
					}
					resources[valueKey(name)] = value
				case EnvClassComputed:
					resources[valueKey(name)] = computedValue(name, state)
				case EnvClassUser:
					value, ok, err := crud.GetProjectSecret(ctx, state.CurrentProject, name)
					if err != nil {
						return proto.Update{}, fmt.Errorf("secret_resolver: failed to look up stored secret %s: %w", name, err)
					}
					if ok && value != "" {
						resources[valueKey(name)] = value
					} else {
						missing = append(missing, name)
					}
				}
			}

			update := proto.Update{AllocatedResources: resources}
			if len(missing) > 0 {
				update.MissingUserSecrets = missing
			}
			return update, nil
		},
		Edges:     []string{"readiness_check"},
		OnFailure: "handle_failure",
	}
}

// generateInfraValue produces a 32-byte URL-safe random token. This
// covers secret-key-shaped infra variables; *_URL-shaped ones (e.g. a
// database connection string) get the same random-token treatment
// rather than a composed connection string, since nothing in this
// pipeline provisions the backing datastore itself.
func generateInfraValue(name string) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// computedValue derives a value from project context for variables the
// system can fill in without asking the user or generating randomness.
func computedValue(name string, state *proto.GraphState) string {
	switch name {
	case "APP_NAME", "APPLICATION_NAME":
		return state.RepositoryInfo["project_name"]
	case "ENVIRONMENT", "NODE_ENV", "APP_ENV":
		return "production"
	default:
		return state.RepositoryInfo["project_name"]
	}
}
