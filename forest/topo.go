package forest

import "github.com/xiongwc/abtree/abterr"

// layerize partitions names (forest node names) per deps (name →
// dependency names) into a topological sequence of layers: every name in
// layer i depends only on names in layers 0..i-1, and every layer is as
// large as possible (Kahn's algorithm, peeling one full in-degree-0 frontier
// at a time instead of one node at a time), so that forest.Tick can run an
// entire layer concurrently. A dependency naming a node absent from names
// is reported as UnknownDependency; a residual non-empty frontier after no
// further progress is a CyclicDependency. Grounded on node/parallel.go's
// fan-out-then-collect shape, generalized from ticking children to ticking
// dependency layers.
func layerize(names []string, deps map[string][]string) ([][]string, error) {
	inDegree := make(map[string]int, len(names))
	dependents := make(map[string][]string, len(names))
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
		inDegree[n] = 0
	}
	for _, n := range names {
		for _, dep := range deps[n] {
			if !known[dep] {
				return nil, abterr.New(abterr.UnknownDependency, n, "depends on unknown forest node \""+dep+"\"")
			}
			inDegree[n]++
			dependents[dep] = append(dependents[dep], n)
		}
	}

	remaining := len(names)
	var layers [][]string
	var frontier []string
	for _, n := range names {
		if inDegree[n] == 0 {
			frontier = append(frontier, n)
		}
	}

	for len(frontier) > 0 {
		layers = append(layers, frontier)
		remaining -= len(frontier)
		var next []string
		for _, n := range frontier {
			for _, dep := range dependents[n] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		frontier = next
	}

	if remaining > 0 {
		return nil, abterr.New(abterr.CyclicDependency, "", "forest dependency graph contains a cycle")
	}
	return layers, nil
}
