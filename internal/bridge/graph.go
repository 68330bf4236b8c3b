package bridge

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// CycleError reports bridges whose stores form a cycle.
type CycleError struct {
	// Path lists store names around the cycle, starting and ending with the
	// same store: ["a", "b", "a"].
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("bridge cycle: %s", strings.Join(e.Path, " -> "))
}

// Graph owns a set of bridges and their lifecycle.
type Graph struct {
	logger  *slog.Logger
	onError func(error)

	mu      sync.Mutex
	bridges []Bridge
	started bool
}

// GraphOption configures a Graph.
type GraphOption func(*Graph)

// WithLogger sets the logger used for forward failures.
func WithLogger(l *slog.Logger) GraphOption {
	return func(g *Graph) { g.logger = l }
}

// WithErrorHandler receives forward failures.
func WithErrorHandler(fn func(error)) GraphOption {
	return func(g *Graph) { g.onError = fn }
}

// NewGraph creates an empty graph.
func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Add registers bridges. Bridges added after Start are attached at once,
// provided they keep the graph acyclic.
func (g *Graph) Add(bridges ...Bridge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	all := append(slices.Clone(g.bridges), bridges...)
	if g.started {
		if err := checkAcyclic(all); err != nil {
			return err
		}
		for _, b := range bridges {
			b.attach(g.logger, g.onError)
		}
	}
	g.bridges = all
	return nil
}

// Start checks the topology and attaches every bridge.
func (g *Graph) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return nil
	}
	if err := checkAcyclic(g.bridges); err != nil {
		return err
	}
	for _, b := range g.bridges {
		b.attach(g.logger, g.onError)
		g.logger.Debug("bridge attached",
			"bridge", b.Name(),
			"source", b.Source(),
			"target", b.Target())
	}
	g.started = true
	return nil
}

// Stop detaches every bridge. The graph can be started again.
func (g *Graph) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, b := range g.bridges {
		b.detach()
	}
	g.started = false
}

// Edges returns "source -> target" for every bridge, in insertion order.
func (g *Graph) Edges() []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, 0, len(g.bridges))
	for _, b := range g.bridges {
		out = append(out, b.Source()+" -> "+b.Target())
	}
	return out
}

// storeGraph maps a store name to the stores it forwards into.
type storeGraph map[string][]string

func buildStoreGraph(bridges []Bridge) storeGraph {
	graph := make(storeGraph)
	for _, b := range bridges {
		if graph[b.Target()] == nil {
			graph[b.Target()] = []string{}
		}
		graph[b.Source()] = append(graph[b.Source()], b.Target())
	}
	return graph
}

// checkAcyclic returns a CycleError for the first strongly connected
// component with more than one store, or a store bridged into itself.
func checkAcyclic(bridges []Bridge) error {
	graph := buildStoreGraph(bridges)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || slices.Contains(graph[scc[0]], scc[0]) {
			return &CycleError{Path: cyclePath(scc, graph)}
		}
	}
	return nil
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so results are stable.
func tarjanSCC(graph storeGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cyclePath walks the edges inside scc from its smallest member back to it.
func cyclePath(scc []string, graph storeGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	if len(scc) == 1 {
		return []string{start, start}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		var next string
		for _, n := range graph[current] {
			if members[n] && (!visited[n] || n == start) {
				next = n
				break
			}
		}
		if next == "" {
			return path
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}
