package agent

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
)

// End is the terminal node of a graph
const End = "__end__"

// NodeFunc mutates the shared state of a graph run
type NodeFunc[S any] func(ctx context.Context, state S) error

// RouteFunc picks a route label from the state after a node ran
type RouteFunc[S any] func(state S) string

type conditionalEdge[S any] struct {
	route   RouteFunc[S]
	mapping map[string]string
}

// Graph is a small state graph: named nodes, static edges and conditional edges.
// A node has either one static edge or one conditional edge.
type Graph[S any] struct {
	entry       string
	nodes       map[string]NodeFunc[S]
	edges       map[string]string
	conditional map[string]conditionalEdge[S]
}

// NewGraph creates an empty graph
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:       make(map[string]NodeFunc[S]),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge[S]),
	}
}

// AddNode registers a node
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	g.nodes[name] = fn
	return g
}

// AddEdge always moves from one node to another after from ran
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.edges[from] = to
	return g
}

// AddConditionalEdges routes from a node through route; mapping translates the route label to a node
func (g *Graph[S]) AddConditionalEdges(from string, route RouteFunc[S], mapping map[string]string) *Graph[S] {
	g.conditional[from] = conditionalEdge[S]{route: route, mapping: mapping}
	return g
}

// SetEntryPoint sets the first node to run
func (g *Graph[S]) SetEntryPoint(name string) *Graph[S] {
	g.entry = name
	return g
}

// Compile validates the wiring
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, goerr.New("entry point is not a node", goerr.V("entry", g.entry))
	}

	exists := func(name string) bool {
		_, ok := g.nodes[name]
		return ok || name == End
	}

	for name := range g.nodes {
		to, hasEdge := g.edges[name]
		cond, hasCond := g.conditional[name]
		switch {
		case hasEdge && hasCond:
			return nil, goerr.New("node has both static and conditional edges", goerr.V("node", name))
		case !hasEdge && !hasCond:
			return nil, goerr.New("node has no outgoing edge", goerr.V("node", name))
		case hasEdge && !exists(to):
			return nil, goerr.New("edge points to unknown node", goerr.V("from", name), goerr.V("to", to))
		case hasCond:
			for label, target := range cond.mapping {
				if !exists(target) {
					return nil, goerr.New("conditional edge points to unknown node",
						goerr.V("from", name), goerr.V("label", label), goerr.V("to", target))
				}
			}
		}
	}

	return &CompiledGraph[S]{graph: g}, nil
}

// CompiledGraph is a validated graph ready to run
type CompiledGraph[S any] struct {
	graph *Graph[S]
}

// Invoke runs nodes from the entry point until End is reached, a node fails or ctx is done
func (c *CompiledGraph[S]) Invoke(ctx context.Context, state S) error {
	current := c.graph.entry
	for current != End {
		if err := ctx.Err(); err != nil {
			return goerr.Wrap(err, "graph run interrupted", goerr.V("node", current))
		}

		if err := c.graph.nodes[current](ctx, state); err != nil {
			return err
		}

		if to, ok := c.graph.edges[current]; ok {
			current = to
			continue
		}

		cond := c.graph.conditional[current]
		label := cond.route(state)
		next, ok := cond.mapping[label]
		if !ok {
			return goerr.New("route label has no mapping", goerr.V("node", current), goerr.V("label", label))
		}
		current = next
	}
	return nil
}
