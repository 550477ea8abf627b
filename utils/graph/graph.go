package graph

/*
	This package exposes utilities for working with graph structures.

	Graphs appear in several places in the engine: block graphs of analyzed
	functions, the call graph, and its SCC condensation. The caller only
	provides a function describing the edge relation (and a key-value map
	factory for the node type); algorithms are implemented on top of that.
*/

type Mapper[K any] interface {
	Get(key K) (any, bool)
	Set(key K, value any)
}

type mapFactory[K any] func() Mapper[K]
type edgesOf[T any] func(node T) []T

type Graph[T any] struct {
	mapFactory  mapFactory[T]
	edgesOf     edgesOf[T]
	cachedEdges Mapper[T]
}

func (G Graph[T]) Edges(node T) []T {
	if cached, found := G.cachedEdges.Get(node); found {
		return cached.([]T)
	}

	es := G.edgesOf(node)
	G.cachedEdges.Set(node, es)
	return es
}

func Of[T any](mapFactory mapFactory[T], edgesOf edgesOf[T]) Graph[T] {
	return Graph[T]{
		mapFactory,
		edgesOf,
		mapFactory(),
	}
}

// Mapper implementation using Go's builtin maps
type mapMapper[K comparable] map[K]any

func (m mapMapper[K]) Get(key K) (any, bool) {
	value, ok := m[key]
	return value, ok
}

func (m mapMapper[K]) Set(key K, value any) {
	m[key] = value
}

func OfHashable[K comparable](edgesOf edgesOf[K]) Graph[K] {
	return Of(func() Mapper[K] { return mapMapper[K]{} }, edgesOf)
}

// Postorder returns the nodes reachable from the given roots in DFS
// post-order. Reverse iteration over the result yields a reverse
// post-order, which is the preferred visit order for forward dataflow.
func (G Graph[T]) Postorder(roots []T) []T {
	seen := G.mapFactory()
	var order []T

	var dfs func(T)
	dfs = func(node T) {
		if _, found := seen.Get(node); found {
			return
		}
		seen.Set(node, true)

		for _, e := range G.Edges(node) {
			dfs(e)
		}

		order = append(order, node)
	}

	for _, root := range roots {
		dfs(root)
	}
	return order
}
