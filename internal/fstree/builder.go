package fstree

import (
	"fmt"
	"strconv"
)

// EventKind identifies what an Event does to the tree.
type EventKind uint8

const (
	// ChangeDirectory moves the cursor to Target.
	ChangeDirectory EventKind = iota
	// ListDirectory records a subdirectory Name in the current directory.
	ListDirectory
	// ListFile records a file Name of Size bytes in the current directory.
	ListFile
)

// Targets understood by ChangeDirectory besides a child name.
const (
	TargetRoot   = "/"
	TargetParent = ".."
)

// Event is one navigation or listing record of a transcript.
type Event struct {
	Kind EventKind
	// Target is the cd destination for ChangeDirectory.
	Target string
	// Name is the entry name for ListDirectory and ListFile.
	Name string
	// Size is the file size for ListFile.
	Size int64
	// Line is the 1-based transcript line the event came from, 0 if synthesized.
	Line int
}

// Cd returns a ChangeDirectory event.
func Cd(target string) Event { return Event{Kind: ChangeDirectory, Target: target} }

// Dir returns a ListDirectory event.
func Dir(name string) Event { return Event{Kind: ListDirectory, Name: name} }

// File returns a ListFile event.
func File(name string, size int64) Event { return Event{Kind: ListFile, Name: name, Size: size} }

// String renders the event in transcript form.
func (e Event) String() string {
	switch e.Kind {
	case ChangeDirectory:
		return "$ cd " + e.Target
	case ListDirectory:
		return "dir " + e.Name
	case ListFile:
		return strconv.FormatInt(e.Size, 10) + " " + e.Name
	default:
		return fmt.Sprintf("event(%d)", e.Kind)
	}
}

// Builder folds events into a Tree, tracking the current directory.
type Builder struct {
	tree *Tree
	cwd  NodeID
}

// NewBuilder returns a builder over an empty tree with the cursor at the root.
func NewBuilder() *Builder {
	return &Builder{tree: NewTree(), cwd: Root}
}

// Tree returns the tree built so far.
func (b *Builder) Tree() *Tree { return b.tree }

// Cwd returns the current directory.
func (b *Builder) Cwd() NodeID { return b.cwd }

// Apply processes a single event, updating the tree and the cursor.
// On error neither is changed.
func (b *Builder) Apply(ev Event) error {
	switch ev.Kind {
	case ChangeDirectory:
		return b.changeDirectory(ev)
	case ListDirectory:
		_, err := b.tree.AddDir(b.cwd, ev.Name)

		return withLine(err, ev)
	case ListFile:
		_, err := b.tree.PutFile(b.cwd, ev.Name, ev.Size)

		return withLine(err, ev)
	default:
		return &ParseError{Line: ev.Line, Text: ev.String(), Err: errUnknownEventKind}
	}
}

func (b *Builder) changeDirectory(ev Event) error {
	switch ev.Target {
	case "":
		return &ParseError{Line: ev.Line, Text: ev.String(), Err: errEmptyChangeTarget}
	case TargetRoot:
		b.cwd = Root
	case TargetParent:
		parent, ok := b.tree.Parent(b.cwd)
		if !ok {
			return &NavigationError{Line: ev.Line}
		}

		b.cwd = parent
	default:
		id, ok := b.tree.Child(b.cwd, ev.Target)
		if !ok || b.tree.Kind(id) != KindDir {
			return &UnknownDirectoryError{Line: ev.Line, Dir: b.tree.Path(b.cwd), Name: ev.Target}
		}

		b.cwd = id
	}

	return nil
}

// withLine stamps tree errors with the line of the event that caused them.
func withLine(err error, ev Event) error {
	switch e := err.(type) { //nolint:errorlint // Only errors created by Tree are stamped
	case nil:
		return nil
	case *EntryConflictError:
		e.Line = ev.Line

		return e
	default:
		return &ParseError{Line: ev.Line, Text: ev.String(), Err: err}
	}
}

// BuildTree folds events into a new tree in stream order.
func BuildTree(events []Event) (*Tree, error) {
	b := NewBuilder()

	for _, ev := range events {
		if err := b.Apply(ev); err != nil {
			return nil, err
		}
	}

	return b.Tree(), nil
}
