// Package fstree rebuilds a directory tree from navigation and listing events
// and aggregates directory sizes.
//
// A Tree is an arena of nodes addressed by NodeID. Children are always created
// after their parent, so a reverse scan of the arena visits every child before
// its parent; ComputeSizes relies on this to aggregate in a single iterative
// post-order pass regardless of nesting depth.
package fstree
