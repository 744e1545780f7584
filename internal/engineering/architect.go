package engineering

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/forgeworks/sdo/internal/crudclient"
	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/graph"
	"github.com/forgeworks/sdo/internal/llm"
	"github.com/forgeworks/sdo/internal/proto"
)

const architectSystemPrompt = `You are the architect for a new software project. Given the project's
template and task description, select the modules the template generator should materialize, and
write short instructions for the developer agent that will implement the task, plus any deployment
hints the later deployment pipeline should know about (e.g. required env vars not already obvious
from the template). You do not write code. Respond only by calling the plan_project tool.`

var planProjectSpec = llm.ToolSpec{
	Name:        "plan_project",
	Description: "Report the selected template modules, developer instructions, and deployment hints.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"modules":                map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"developer_instructions": map[string]any{"type": "string"},
			"deployment_hints":       map[string]any{"type": "string"},
		},
		"required": []string{"modules", "developer_instructions"},
	},
}

type architectPlan struct {
	Modules               []string `json:"modules"`
	DeveloperInstructions string   `json:"developer_instructions"`
	DeploymentHints       string   `json:"deployment_hints"`
}

// ArchitectNode builds the architect graph node (spec.md §4.7): selects
// modules, stands up the repository, and hands off instructions without
// writing any code itself.
func ArchitectNode(client llm.Client, model string, crud *crudclient.Client, repos RepoCreator) graph.Node {
	return graph.Node{
		Name: "architect",
		Run: func(ctx context.Context, state *proto.GraphState) (proto.Update, error) {
			if state.CurrentProject == "" {
				return proto.Update{}, errs.New(errs.KindInvariant, "architect: no current_project set on thread %s", state.ThreadID)
			}
			project, err := crud.GetProject(ctx, state.CurrentProject)
			if err != nil {
				return proto.Update{}, fmt.Errorf("architect: %w", err)
			}

			resp, err := client.Complete(ctx, llm.Request{
				Model:  model,
				System: architectSystemPrompt,
				Messages: []proto.Message{
					proto.NewUserMessage(fmt.Sprintf("Project: %s\nTemplate: %s\nTask: %s", project.Name, project.Template, state.ProjectSpec)),
				},
				Tools: []llm.ToolSpec{planProjectSpec},
			})
			if err != nil {
				return proto.Update{}, fmt.Errorf("architect: llm call failed: %w", err)
			}
			if len(resp.ToolCalls) == 0 {
				return proto.Update{}, errs.New(errs.KindInvariant, "architect: model did not call plan_project")
			}

			plan, err := parseArchitectPlan(resp.ToolCalls[0].Args)
			if err != nil {
				return proto.Update{}, err
			}

			repoURL, err := repos.CreateRepository(ctx, project.Slug, true)
			if err != nil {
				return proto.Update{}, errs.Wrap(errs.KindTransient, fmt.Errorf("architect: %w", err))
			}
			if err := crud.UpdateProject(ctx, state.CurrentProject, map[string]any{"repository_url": repoURL}); err != nil {
				return proto.Update{}, fmt.Errorf("architect: failed to record repository_url: %w", err)
			}

			status := proto.EngineeringWorking
			repoInfo := map[string]string{
				"repository_url":         repoURL,
				"project_name":           project.Name,
				"selected_modules":       strings.Join(plan.Modules, ","),
				"developer_instructions": plan.DeveloperInstructions,
				"deployment_hints":       plan.DeploymentHints,
			}
			return proto.Update{RepositoryInfo: repoInfo, EngineeringStatus: &status}, nil
		},
		Edges:     []string{"preparer"},
		OnFailure: "handle_failure",
	}
}

func parseArchitectPlan(args map[string]any) (architectPlan, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return architectPlan{}, fmt.Errorf("architect: failed to re-marshal plan_project args: %w", err)
	}
	var plan architectPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return architectPlan{}, fmt.Errorf("architect: failed to parse plan_project args: %w", err)
	}
	if len(plan.Modules) == 0 {
		return architectPlan{}, errs.New(errs.KindInvariant, "architect: plan_project reported no modules")
	}
	return plan, nil
}
