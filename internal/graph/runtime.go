// Package graph implements the Orchestration Graph Runtime (spec.md
// §4.4): a statically declared directed graph of nodes over a shared
// proto.GraphState, with conditional edges, sub-graph embedding via
// plain Go function composition, and checkpointing at every node
// boundary. Grounded on the teacher's pkg/agent/state_machine.go
// trio (BaseStateMachine / TransitionTable / StateStore), generalized
// from one finite-state-machine-per-agent to one shared node runtime.
package graph

import (
	"context"
	"fmt"

	"github.com/forgeworks/sdo/internal/errs"
	"github.com/forgeworks/sdo/internal/eventlog"
	"github.com/forgeworks/sdo/internal/logx"
	"github.com/forgeworks/sdo/internal/persistence"
	"github.com/forgeworks/sdo/internal/proto"
)

// End is the sentinel successor name that terminates graph execution.
const End = "END"

// NodeFunc executes one node's logic against the current state and
// returns a partial Update to merge. A Router sees only the post-update
// state, so anything it needs from the node must be carried in the Update.
type NodeFunc func(ctx context.Context, state *proto.GraphState) (proto.Update, error)

// Router picks the next node name (or End) as a pure function of the
// post-update state.
type Router func(state *proto.GraphState) string

// Node is one registered graph node.
type Node struct {
	Name string
	Run  NodeFunc
	// Next is consulted after Run succeeds and its Update has been
	// applied. A nil Next means "always route to the nodes listed in
	// Edges[0]" for a static single-successor node.
	Next Router
	// Edges holds the statically possible successor names (including
	// End), used for build-time reachability validation.
	Edges []string
	// OnFailure names a sink node to route to when Run returns a
	// recoverable error (spec.md §4.4 "Failure semantics"); empty means
	// the error propagates to the caller.
	OnFailure string
}

// Graph is a statically declared set of nodes and a designated entry point.
type Graph struct {
	name    string
	nodes   map[string]Node
	entry   string
	store   *persistence.CheckpointStore
	events  *eventlog.Writer
	logger  *logx.Logger
}

// Builder accumulates nodes before Build validates reachability.
type Builder struct {
	name  string
	nodes map[string]Node
	entry string
}

// NewBuilder starts a graph named name.
func NewBuilder(name string) *Builder {
	return &Builder{name: name, nodes: make(map[string]Node)}
}

// AddNode registers n, panicking on duplicate names (a build-time
// programmer error, not a runtime condition).
func (b *Builder) AddNode(n Node) *Builder {
	if _, exists := b.nodes[n.Name]; exists {
		panic(fmt.Sprintf("graph %s: duplicate node %q", b.name, n.Name))
	}
	b.nodes[n.Name] = n
	return b
}

// Entry designates the graph's starting node.
func (b *Builder) Entry(name string) *Builder {
	b.entry = name
	return b
}

// Build validates that every declared edge (including OnFailure sinks)
// names either End or a registered node, per spec.md §4.4 "The runtime
// validates reachability at build time."
func (b *Builder) Build(store *persistence.CheckpointStore, events *eventlog.Writer) (*Graph, error) {
	if b.entry == "" {
		return nil, fmt.Errorf("graph %s: no entry node designated", b.name)
	}
	if _, ok := b.nodes[b.entry]; !ok {
		return nil, fmt.Errorf("graph %s: entry node %q not registered", b.name, b.entry)
	}
	for _, n := range b.nodes {
		for _, succ := range n.Edges {
			if succ == End {
				continue
			}
			if _, ok := b.nodes[succ]; !ok {
				return nil, fmt.Errorf("graph %s: node %q declares unreachable successor %q", b.name, n.Name, succ)
			}
		}
		if n.OnFailure != "" {
			if _, ok := b.nodes[n.OnFailure]; !ok {
				return nil, fmt.Errorf("graph %s: node %q declares unreachable failure sink %q", b.name, n.Name, n.OnFailure)
			}
		}
	}
	return &Graph{name: b.name, nodes: b.nodes, entry: b.entry, store: store, events: events, logger: logx.NewLogger("graph." + b.name)}, nil
}

// Run executes the graph for threadID starting from state, checkpointing
// after every node boundary. If a checkpoint already exists for
// threadID, callers should load it via Resume instead of calling Run
// with a fresh state.
func (g *Graph) Run(ctx context.Context, threadID string, state *proto.GraphState) (*proto.GraphState, error) {
	return g.run(ctx, threadID, g.entry, state)
}

// Resume continues execution of threadID from its last checkpointed
// node, or starts fresh at the entry node if no checkpoint exists.
func (g *Graph) Resume(ctx context.Context, threadID string, fresh *proto.GraphState) (*proto.GraphState, error) {
	node, state, err := g.store.Load(ctx, threadID)
	if err == persistence.ErrNotFound {
		return g.Run(ctx, threadID, fresh)
	}
	if err != nil {
		return nil, fmt.Errorf("graph %s: failed to load checkpoint for %s: %w", g.name, threadID, err)
	}
	return g.run(ctx, threadID, node, state)
}

func (g *Graph) run(ctx context.Context, threadID, startNode string, state *proto.GraphState) (*proto.GraphState, error) {
	current := startNode

	for current != End {
		node, ok := g.nodes[current]
		if !ok {
			return state, fmt.Errorf("graph %s: unknown node %q", g.name, current)
		}

		g.logEvent(threadID, state, "node_enter", node.Name)
		update, err := node.Run(ctx, state)
		if err != nil {
			if node.OnFailure != "" && errs.KindOf(err) != errs.KindInvariant {
				g.logEvent(threadID, state, "node_failure_routed", node.Name)
				current = node.OnFailure
				continue
			}
			return state, fmt.Errorf("graph %s: node %q failed: %w", g.name, node.Name, err)
		}

		if err := state.Apply(update); err != nil {
			return state, fmt.Errorf("graph %s: node %q produced invalid update: %w", g.name, node.Name, err)
		}

		if err := g.store.Save(ctx, threadID, current, state); err != nil {
			return state, fmt.Errorf("graph %s: checkpoint save failed after node %q: %w", g.name, node.Name, err)
		}
		g.logEvent(threadID, state, "node_exit", node.Name)

		switch {
		case node.Next != nil:
			current = node.Next(state)
		case len(node.Edges) == 1:
			current = node.Edges[0]
		default:
			return state, fmt.Errorf("graph %s: node %q has no router and no single static edge", g.name, node.Name)
		}
	}

	return state, nil
}

func (g *Graph) logEvent(threadID string, state *proto.GraphState, kind, node string) {
	if g.events == nil {
		return
	}
	if err := g.events.Write(eventlog.Event{
		ThreadID:      threadID,
		CorrelationID: state.CorrelationID,
		Kind:          kind,
		Node:          node,
	}); err != nil {
		g.logger.Warn("failed to write event log entry: %v", err)
	}
}
