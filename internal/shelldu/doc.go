// Package shelldu reconstructs directory trees from recorded shell sessions
// and reports their sizes.
//
// It reads "$ cd" / "$ ls" transcripts (or records one from a live directory
// using fastwalk), aggregates recursive directory sizes, and answers two
// queries: the summed size of all directories below a threshold, and the
// smallest directory whose removal frees enough space on a disk of a given
// capacity.
package shelldu
