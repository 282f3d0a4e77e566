// Package transcript converts between shell session transcripts and tree events.
//
// A transcript is a sequence of lines:
//
//	$ cd <target>
//	$ ls
//	dir <name>
//	<size> <name>
//
// Entry lines are only valid inside the output of an "$ ls" command.
package transcript

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/idelchi/shelldu/internal/fstree"
)

const (
	promptPrefix = "$"
	dirPrefix    = "dir"
)

var (
	errUnknownCommand  = errors.New("unknown command")
	errCommandArgs     = errors.New("wrong number of arguments")
	errOutsideListing  = errors.New("entry outside of ls output")
	errMalformedEntry  = errors.New("expected 'dir <name>' or '<size> <name>'")
	errInvalidSize     = errors.New("size is not a non-negative integer")
	errUnencodableName = errors.New("name cannot be written on a single line")
)

// Parser turns transcript lines into events one line at a time.
type Parser struct {
	line    int
	listing bool
}

// ParseLine parses the next line. It returns false for lines that produce no
// event, such as blank lines and "$ ls".
func (p *Parser) ParseLine(text string) (fstree.Event, bool, error) {
	p.line++

	text = strings.TrimRight(text, " \t\r")
	if text == "" {
		return fstree.Event{}, false, nil
	}

	if rest, ok := strings.CutPrefix(text, promptPrefix); ok {
		return p.command(text, strings.TrimLeft(rest, " \t"))
	}

	if !p.listing {
		return fstree.Event{}, false, p.errorf(text, errOutsideListing)
	}

	head, name, ok := strings.Cut(text, " ")
	if !ok || name == "" {
		return fstree.Event{}, false, p.errorf(text, errMalformedEntry)
	}

	if head == dirPrefix {
		ev := fstree.Dir(name)
		ev.Line = p.line

		return ev, true, nil
	}

	// ParseInt accepts a sign; sizes are bare digits only.
	if head == "" || head[0] < '0' || head[0] > '9' {
		return fstree.Event{}, false, p.errorf(text, errInvalidSize)
	}

	size, err := strconv.ParseInt(head, 10, 64)
	if err != nil {
		return fstree.Event{}, false, p.errorf(text, errInvalidSize)
	}

	ev := fstree.File(name, size)
	ev.Line = p.line

	return ev, true, nil
}

func (p *Parser) command(text, rest string) (fstree.Event, bool, error) {
	name, arg, _ := strings.Cut(rest, " ")

	switch name {
	case "cd":
		if arg == "" {
			return fstree.Event{}, false, p.errorf(text, errCommandArgs)
		}

		p.listing = false
		ev := fstree.Cd(arg)
		ev.Line = p.line

		return ev, true, nil
	case "ls":
		if strings.TrimSpace(arg) != "" {
			return fstree.Event{}, false, p.errorf(text, errCommandArgs)
		}

		p.listing = true

		return fstree.Event{}, false, nil
	case "":
		return fstree.Event{}, false, p.errorf(text, errUnknownCommand)
	default:
		return fstree.Event{}, false, p.errorf(text, fmt.Errorf("%w %q", errUnknownCommand, name))
	}
}

func (p *Parser) errorf(text string, err error) error {
	return &fstree.ParseError{Line: p.line, Text: text, Err: err}
}

// Parse reads a whole transcript. It stops at the first malformed line.
func Parse(r io.Reader) ([]fstree.Event, error) {
	var (
		parser Parser
		events []fstree.Event
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		ev, ok, err := parser.ParseLine(scanner.Text())
		if err != nil {
			return nil, err
		}

		if ok {
			events = append(events, ev)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}

	return events, nil
}

// Encodable reports whether name survives a Write/Parse round trip.
func Encodable(name string) bool {
	return !strings.ContainsAny(name, "\r\n") && strings.TrimRight(name, " \t") == name
}

// Write renders events as a transcript, emitting "$ ls" before each run of
// listing entries.
func Write(w io.Writer, events []fstree.Event) error {
	bw := bufio.NewWriter(w)
	listing := false

	for _, ev := range events {
		if !Encodable(ev.Name) || !Encodable(ev.Target) {
			return &fstree.ParseError{Line: ev.Line, Text: ev.String(), Err: errUnencodableName}
		}

		switch ev.Kind {
		case fstree.ChangeDirectory:
			listing = false
		case fstree.ListDirectory, fstree.ListFile:
			if !listing {
				if _, err := bw.WriteString("$ ls\n"); err != nil {
					return err
				}

				listing = true
			}
		}

		if _, err := fmt.Fprintln(bw, ev.String()); err != nil {
			return err
		}
	}

	return bw.Flush()
}
