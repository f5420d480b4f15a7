package keel

// DependencyGraph orders names so that every name comes after the names it
// depends on.
type DependencyGraph struct {
	nodes map[string]*node
	order []string // Preserve registration order
}

type node struct {
	name         string
	dependencies []string
}

// NewDependencyGraph creates a new dependency graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		nodes: make(map[string]*node),
		order: make([]string, 0),
	}
}

// AddNode adds a node with its dependencies.
// Adding a name twice merges the dependency lists; the name keeps its first position.
func (g *DependencyGraph) AddNode(name string, dependencies []string) {
	if existing, ok := g.nodes[name]; ok {
		existing.dependencies = append(existing.dependencies, dependencies...)

		return
	}

	g.nodes[name] = &node{
		name:         name,
		dependencies: append([]string(nil), dependencies...),
	}
	g.order = append(g.order, name)
}

// GetDependencies returns the dependency names for a node.
func (g *DependencyGraph) GetDependencies(name string) []string {
	if node, ok := g.nodes[name]; ok {
		return node.dependencies
	}

	return nil
}

// HasNode checks if a node exists in the graph.
func (g *DependencyGraph) HasNode(name string) bool {
	_, ok := g.nodes[name]

	return ok
}

// Len returns the number of nodes.
func (g *DependencyGraph) Len() int {
	return len(g.nodes)
}

// TopologicalSort returns nodes in dependency order.
// Nodes without dependencies maintain their registration order (FIFO).
// Dependencies that are not nodes of the graph are ignored.
// Returns a circular dependency error carrying the full chain if a cycle exists.
func (g *DependencyGraph) TopologicalSort() ([]string, error) {
	visited := make(map[string]bool)
	path := NewCycleDetector()
	result := make([]string, 0, len(g.nodes))

	// Visit nodes in registration order to preserve FIFO for nodes without dependencies
	for _, name := range g.order {
		if err := g.visit(name, visited, path, &result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// visit performs DFS traversal.
func (g *DependencyGraph) visit(name string, visited map[string]bool, path *CycleDetector, result *[]string) error {
	if visited[name] {
		return nil
	}

	node := g.nodes[name]
	if node == nil {
		// Not part of this graph, e.g. registered earlier elsewhere
		return nil
	}

	if err := path.Check(name); err != nil {
		return err
	}

	path.Push(name)
	defer path.Pop(name)

	// Visit dependencies first
	for _, dep := range node.dependencies {
		if err := g.visit(dep, visited, path, result); err != nil {
			return err
		}
	}

	visited[name] = true
	*result = append(*result, name)

	return nil
}
