package fstree

import (
	"math"
	"slices"
	"strings"
)

// RootName is the name of the root directory and the path it is reported under.
const RootName = "/"

// Kind distinguishes directories from files.
type Kind uint8

const (
	KindDir Kind = iota
	KindFile
)

func (k Kind) String() string {
	switch k {
	case KindDir:
		return "dir"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// NodeID addresses a node in a Tree's arena.
type NodeID int

// Root is the id of the root directory of every Tree.
const Root NodeID = 0

// noParent marks the root's parent slot.
const noParent NodeID = -1

type node struct {
	name   string
	kind   Kind
	parent NodeID
	// size is the file size for files and the cached aggregate for directories.
	size     int64
	children map[string]NodeID
}

// Tree is a rooted directory tree stored as an arena of nodes.
// A Tree is not safe for concurrent mutation.
type Tree struct {
	nodes []node
	files int
	// total is the sum of all file sizes. Every directory aggregate is bounded
	// by it, so keeping it within int64 keeps every aggregate non-negative.
	total int64
	// sized reports whether directory sizes reflect the current structure.
	sized bool
}

// NewTree returns a tree holding only the root directory.
func NewTree() *Tree {
	return &Tree{
		nodes: []node{{
			name:     RootName,
			kind:     KindDir,
			parent:   noParent,
			children: make(map[string]NodeID),
		}},
	}
}

// Len returns the number of nodes, directories and files, including the root.
func (t *Tree) Len() int { return len(t.nodes) }

// DirCount returns the number of directories including the root.
func (t *Tree) DirCount() int { return len(t.nodes) - t.files }

// FileCount returns the number of files.
func (t *Tree) FileCount() int { return t.files }

// Name returns the name of the node.
func (t *Tree) Name(id NodeID) string { return t.nodes[id].name }

// Kind returns the kind of the node.
func (t *Tree) Kind(id NodeID) Kind { return t.nodes[id].kind }

// Parent returns the parent of id, and false for the root.
func (t *Tree) Parent(id NodeID) (NodeID, bool) {
	p := t.nodes[id].parent

	return p, p != noParent
}

// Child looks up a direct child of dir by name.
func (t *Tree) Child(dir NodeID, name string) (NodeID, bool) {
	id, ok := t.nodes[dir].children[name]

	return id, ok
}

// Children returns the ids of dir's direct children ordered by name.
func (t *Tree) Children(dir NodeID) []NodeID {
	children := t.nodes[dir].children
	names := make([]string, 0, len(children))

	for name := range children {
		names = append(names, name)
	}

	slices.Sort(names)

	ids := make([]NodeID, len(names))
	for i, name := range names {
		ids[i] = children[name]
	}

	return ids
}

// Size returns a file's size, or a directory's cached aggregate size.
// The second result is false for a directory whose size has not been
// computed since the last structural change.
func (t *Tree) Size(id NodeID) (int64, bool) {
	n := t.nodes[id]
	if n.kind == KindFile {
		return n.size, true
	}

	return n.size, t.sized
}

// Path returns the slash-joined path of id from the root, e.g. "/a/e".
func (t *Tree) Path(id NodeID) string {
	var ancestry []NodeID

	for ; id != Root; id = t.nodes[id].parent {
		ancestry = append(ancestry, id)
	}

	p := RootName
	for _, a := range slices.Backward(ancestry) {
		p = joinPath(p, t.nodes[a].name)
	}

	return p
}

// AddDir creates an empty subdirectory name under dir. Adding a directory
// that already exists returns its id unchanged. Names that are empty, "." or
// "..", or that contain a slash are rejected with ErrInvalidName.
func (t *Tree) AddDir(dir NodeID, name string) (NodeID, error) {
	if !validName(name) {
		return 0, ErrInvalidName
	}

	if id, ok := t.nodes[dir].children[name]; ok {
		if t.nodes[id].kind != KindDir {
			return 0, &EntryConflictError{Dir: t.Path(dir), Name: name, Existing: KindFile}
		}

		return id, nil
	}

	id := t.insert(dir, node{
		name:     name,
		kind:     KindDir,
		children: make(map[string]NodeID),
	})

	return id, nil
}

// PutFile creates the file name under dir or overwrites its size.
// It returns ErrSizeOverflow when the sum of all file sizes would exceed
// math.MaxInt64, leaving the tree unchanged.
func (t *Tree) PutFile(dir NodeID, name string, size int64) (NodeID, error) {
	if !validName(name) {
		return 0, ErrInvalidName
	}

	if size < 0 {
		return 0, errNegativeSize
	}

	if id, ok := t.nodes[dir].children[name]; ok {
		if t.nodes[id].kind != KindFile {
			return 0, &EntryConflictError{Dir: t.Path(dir), Name: name, Existing: KindDir}
		}

		old := t.nodes[id].size
		if old != size {
			if size-old > math.MaxInt64-t.total {
				return 0, ErrSizeOverflow
			}

			t.total += size - old
			t.nodes[id].size = size
			t.sized = false
		}

		return id, nil
	}

	if size > math.MaxInt64-t.total {
		return 0, ErrSizeOverflow
	}

	t.total += size
	t.files++

	return t.insert(dir, node{name: name, kind: KindFile, size: size}), nil
}

func (t *Tree) insert(dir NodeID, n node) NodeID {
	id := NodeID(len(t.nodes))
	n.parent = dir
	t.nodes = append(t.nodes, n)
	t.nodes[dir].children[n.name] = id
	t.sized = false

	return id
}

// validName rejects names that would make paths or navigation ambiguous.
func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

// joinPath appends a child name to its parent's path the way Path does.
func joinPath(parent, name string) string {
	if parent == RootName {
		return RootName + name
	}

	return parent + "/" + name
}
