package schema

import (
	"fmt"
	"sort"
	"strings"
)

// RelationshipGraph is the adjacency description of entities and the
// entities their relationships point at. Cycles are legal: fetch depth is
// bounded by with-paths, so the graph is only reported on.
type RelationshipGraph struct {
	nodes []string
	edges map[string][]string
}

// NewRelationshipGraph creates a relationship graph
func NewRelationshipGraph(schemas map[string]*EntitySchema) *RelationshipGraph {
	graph := &RelationshipGraph{
		edges: make(map[string][]string),
	}

	for name := range schemas {
		graph.nodes = append(graph.nodes, name)
	}
	sort.Strings(graph.nodes)

	for _, name := range graph.nodes {
		for _, attr := range schemas[name].Relationships() {
			target := attr.Relationship.TargetName
			if attr.Relationship.Target != nil {
				target = attr.Relationship.Target.Name
			}
			if !contains(graph.edges[name], target) {
				graph.edges[name] = append(graph.edges[name], target)
			}
		}
	}

	return graph
}

// DetectCycles returns every elementary cycle found by a depth-first search,
// including self references
func (g *RelationshipGraph) DetectCycles() [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, neighbor := range g.edges[node] {
			if onStack[neighbor] {
				for i, n := range path {
					if n == neighbor {
						cycle := make([]string, len(path)-i)
						copy(cycle, path[i:])
						cycles = append(cycles, cycle)
						break
					}
				}
				continue
			}
			if !visited[neighbor] {
				dfs(neighbor, path)
			}
		}

		onStack[node] = false
	}

	for _, node := range g.nodes {
		if !visited[node] {
			dfs(node, nil)
		}
	}

	return cycles
}

// Dependents returns the entities that relate to the given entity
func (g *RelationshipGraph) Dependents(entity string) []string {
	dependents := []string{}
	for _, node := range g.nodes {
		if contains(g.edges[node], entity) {
			dependents = append(dependents, node)
		}
	}
	return dependents
}

// FormatCycles formats cycles for display
func FormatCycles(cycles [][]string) string {
	var b strings.Builder
	for i, cycle := range cycles {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  Cycle %d: %s -> %s",
			i+1,
			strings.Join(cycle, " -> "),
			cycle[0]))
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
