package fstree

// Sizes maps directory paths ("/", "/a", "/a/e") to aggregate sizes in bytes.
type Sizes map[string]int64

// Root returns the aggregate size of the root directory.
func (s Sizes) Root() (int64, bool) {
	size, ok := s[RootName]

	return size, ok
}

// ComputeSizes aggregates the size of every directory of t, caches it on the
// tree and returns the sizes keyed by path. Every call recomputes from the
// file sizes, so it is safe to call again after the tree changed.
func ComputeSizes(t *Tree) Sizes {
	nodes := t.nodes

	for i := range nodes {
		if nodes[i].kind == KindDir {
			nodes[i].size = 0
		}
	}

	// Children have larger ids than their parent: walking the arena backwards
	// finalizes each node before it is added to its parent.
	for i := len(nodes) - 1; i > int(Root); i-- {
		nodes[nodes[i].parent].size += nodes[i].size
	}

	t.sized = true

	sizes := make(Sizes, t.DirCount())
	paths := make([]string, len(nodes))
	paths[Root] = RootName

	for i := range nodes {
		if nodes[i].kind != KindDir {
			continue
		}

		if NodeID(i) != Root {
			paths[i] = joinPath(paths[nodes[i].parent], nodes[i].name)
		}

		sizes[paths[i]] = nodes[i].size
	}

	return sizes
}
