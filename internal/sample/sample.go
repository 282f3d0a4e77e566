// Package sample provides the embedded example transcript.
package sample

import (
	_ "embed"
	"strings"

	"github.com/idelchi/shelldu/internal/fstree"
	"github.com/idelchi/shelldu/internal/transcript"
)

// Name is the source name reported for the embedded transcript.
const Name = "<sample>"

// Answers for Transcript with the default query parameters.
const (
	SumBelowThreshold = 95437
	SmallestDeletion  = 24933642
)

// Transcript is the example session: four directories and ten files.
//
//go:embed sample.txt
var Transcript string

// Events parses Transcript.
func Events() ([]fstree.Event, error) {
	return transcript.Parse(strings.NewReader(Transcript))
}
