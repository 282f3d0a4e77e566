package fstree

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below via errors.Is.
var (
	ErrParse             = errors.New("malformed input")
	ErrNavigation        = errors.New("cannot navigate above root")
	ErrUnknownDirectory  = errors.New("unknown directory")
	ErrEntryConflict     = errors.New("entry kind conflict")
	ErrNoCandidate       = errors.New("no candidate directory")
	ErrInvalidName       = errors.New("invalid entry name")
	ErrSizeOverflow      = errors.New("total size overflows int64")
	errNegativeSize      = errors.New("negative file size")
	errUnknownEventKind  = errors.New("unknown event kind")
	errEmptyChangeTarget = errors.New("empty cd target")
)

// ParseError reports a line that could not be turned into an event.
type ParseError struct {
	// Line is the 1-based source line, 0 when unknown.
	Line int
	// Text is the offending line.
	Text string
	// Err is the underlying reason.
	Err error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %q: %v", e.Line, e.Text, e.Err)
	}

	return fmt.Sprintf("%q: %v", e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// NavigationError reports a "cd .." issued at the root.
type NavigationError struct {
	Line int
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, ErrNavigation)
}

func (e *NavigationError) Is(target error) bool { return target == ErrNavigation }

// UnknownDirectoryError reports a "cd" into a name that was never listed as a
// subdirectory of the current directory.
type UnknownDirectoryError struct {
	Line int
	// Dir is the path of the directory the cd was issued from.
	Dir  string
	Name string
}

func (e *UnknownDirectoryError) Error() string {
	return fmt.Sprintf("line %d: %v %q in %s", e.Line, ErrUnknownDirectory, e.Name, e.Dir)
}

func (e *UnknownDirectoryError) Is(target error) bool { return target == ErrUnknownDirectory }

// EntryConflictError reports a listing entry whose kind differs from an
// existing sibling with the same name.
type EntryConflictError struct {
	Line int
	Dir  string
	Name string
	// Existing is the kind already present in the tree.
	Existing Kind
}

func (e *EntryConflictError) Error() string {
	return fmt.Sprintf("line %d: %v: %q in %s is already a %s", e.Line, ErrEntryConflict, e.Name, e.Dir, e.Existing)
}

func (e *EntryConflictError) Is(target error) bool { return target == ErrEntryConflict }

// NoCandidateError is returned when no directory is at least Target bytes.
type NoCandidateError struct {
	Target int64
}

func (e *NoCandidateError) Error() string {
	return fmt.Sprintf("%v: no directory is at least %d bytes", ErrNoCandidate, e.Target)
}

func (e *NoCandidateError) Is(target error) bool { return target == ErrNoCandidate }
