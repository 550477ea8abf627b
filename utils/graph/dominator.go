package graph

import "fmt"

// Iterative dominator computation in the style of Cooper, Harvey and Kennedy,
// "A Simple, Fast Dominance Algorithm".

// Dominators holds the dominator tree of the subgraph reachable from a root.
type Dominators[T any] struct {
	order   []T
	time    Mapper[T]
	idom    []int
}

func (G Graph[T]) Dominators(root T) Dominators[T] {
	postorderTime := G.mapFactory()
	pred := G.mapFactory()

	// Compute DFS post-order ordering
	time := 0
	order := []T{}

	var dfs func(T)
	dfs = func(node T) {
		if _, seen := postorderTime.Get(node); seen {
			return
		}

		postorderTime.Set(node, -1)

		for _, e := range G.Edges(node) {
			var preds []T
			if predsItf, found := pred.Get(e); found {
				preds = predsItf.([]T)
			}

			pred.Set(e, append(preds, node))

			dfs(e)
		}

		postorderTime.Set(node, time)
		order = append(order, node)
		time++
	}

	dfs(root)

	// Initialize doms to "Undefined"
	doms := make([]int, time)
	for i := 0; i < time; i++ {
		doms[i] = -1
	}
	doms[time-1] = time - 1

	intersect := func(a, b int) int {
		for a != b {
			if a < b {
				a = doms[a]
			} else {
				b = doms[b]
			}
		}
		return a
	}

	for {
		changed := false

		// Process nodes in reverse post-order (except for root)
		for i := time - 2; i >= 0; i-- {
			node := order[i]

			newIdom := -1
			predsItf, _ := pred.Get(node)

			for _, predecessor := range predsItf.([]T) {
				jItf, found := postorderTime.Get(predecessor)
				if !found {
					continue
				}
				j := jItf.(int)

				if doms[j] != -1 {
					if newIdom == -1 {
						newIdom = j
					} else {
						newIdom = intersect(j, newIdom)
					}
				}
			}

			if newIdom != doms[i] {
				doms[i] = newIdom
				changed = true
			}
		}

		if !changed {
			break
		}
	}

	return Dominators[T]{order: order, time: postorderTime, idom: doms}
}

func (D Dominators[T]) timeOf(node T) int {
	iItf, found := D.time.Get(node)
	if !found {
		panic(fmt.Errorf("%v was not reachable when computing the dominator tree", node))
	}
	return iItf.(int)
}

// Dominates checks whether a dominates b. Every node dominates itself.
func (D Dominators[T]) Dominates(a, b T) bool {
	i, j := D.timeOf(a), D.timeOf(b)
	for {
		if i == j {
			return true
		}
		if next := D.idom[j]; next == j || next == -1 {
			return false
		} else {
			j = next
		}
	}
}

// Idom returns the immediate dominator of the node. The root is its own
// immediate dominator.
func (D Dominators[T]) Idom(node T) T {
	return D.order[D.idom[D.timeOf(node)]]
}
