// Package snapshot records a live directory as a transcript event stream.
//
// The directory is walked with fastwalk; callbacks run concurrently and are
// serialized into a listing per directory. The events are then emitted in a
// deterministic depth-first order, with entries sorted by name, so the same
// directory always records the same transcript.
package snapshot

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"

	"github.com/idelchi/shelldu/internal/fstree"
	"github.com/idelchi/shelldu/internal/transcript"
)

// Options configures a walk.
type Options struct {
	// Excludes contains regex patterns matched against slash paths relative
	// to the walked root.
	Excludes []string
}

// Result is a recorded directory.
type Result struct {
	// Events is the transcript of the walk.
	Events []fstree.Event
	// Skipped counts entries that could not be read or encoded.
	Skipped int64
}

type entry struct {
	name string
	dir  bool
	size int64
}

// listing gathers entries per directory from concurrent fastwalk callbacks.
type listing struct {
	mu      sync.Mutex // Protect concurrent access
	dirs    map[string][]entry
	skipped int64
}

func (l *listing) add(dir string, e entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.dirs[dir] = append(l.dirs[dir], e)
}

func (l *listing) skip() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.skipped++
}

// shouldExcludeByPattern checks if path matches any exclusion regex.
func shouldExcludeByPattern(path string, patterns []*regexp.Regexp) *regexp.Regexp {
	fPath := filepath.ToSlash(path)

	for _, re := range patterns {
		if re.MatchString(fPath) {
			return re
		}
	}

	return nil
}

// Walk records the directory at root.
//
//nolint:funlen // Walk callback is easier to follow inline
func Walk(ctx context.Context, root string, opt Options, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}

	root = filepath.Clean(root)

	if info, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("accessing path %q: %w", root, err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path %q is not a directory", root)
	}

	excludes := make([]*regexp.Regexp, 0, len(opt.Excludes))

	for _, p := range opt.Excludes {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compiling exclusion pattern %q: %w", p, err)
		}

		excludes = append(excludes, re)
	}

	l := &listing{dirs: map[string][]entry{".": nil}}

	conf := &fastwalk.Config{
		Follow: false, // Don't follow symlinks
	}

	//nolint:varnamelen // d is standard for DirEntry
	walkErr := fastwalk.Walk(conf, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("error accessing path", zap.String("path", path), zap.Error(err))
			l.skip()

			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			l.skip()

			return nil //nolint:nilerr // Intentionally skip errors during walk
		}

		if re := shouldExcludeByPattern(rel, excludes); re != nil {
			log.Debug("excluding path", zap.String("path", filepath.ToSlash(rel)), zap.String("regex", re.String()))

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		name := d.Name()
		if !transcript.Encodable(name) {
			log.Debug("skipping unencodable name", zap.String("path", filepath.ToSlash(rel)))
			l.skip()

			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		parent := filepath.ToSlash(filepath.Dir(rel))

		if d.IsDir() {
			l.add(parent, entry{name: name, dir: true})

			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			l.skip()

			return nil //nolint:nilerr // Intentionally skip errors during walk
		}

		l.add(parent, entry{name: name, size: info.Size()})

		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return &Result{Events: l.events(), Skipped: l.skipped}, nil
}

// events emits the listings depth-first starting at the root.
func (l *listing) events() []fstree.Event {
	events := []fstree.Event{fstree.Cd(fstree.TargetRoot)}

	type frame struct {
		dir   string
		leave bool
		name  string
	}

	stack := []frame{{dir: "."}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.leave {
			events = append(events, fstree.Cd(fstree.TargetParent))

			continue
		}

		if f.name != "" {
			events = append(events, fstree.Cd(f.name))
		}

		entries := l.dirs[f.dir]
		slices.SortFunc(entries, func(a, b entry) int { return strings.Compare(a.name, b.name) })

		var subdirs []string

		for _, e := range entries {
			if e.dir {
				events = append(events, fstree.Dir(e.name))
				subdirs = append(subdirs, e.name)
			} else {
				events = append(events, fstree.File(e.name, e.size))
			}
		}

		if f.name != "" {
			stack = append(stack, frame{leave: true})
		}

		// Push in reverse so subdirectories are visited in name order.
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, frame{dir: childPath(f.dir, subdirs[i]), name: subdirs[i]})
		}
	}

	// Trailing "cd .." events carry no information.
	for len(events) > 1 && events[len(events)-1].Kind == fstree.ChangeDirectory &&
		events[len(events)-1].Target == fstree.TargetParent {
		events = events[:len(events)-1]
	}

	return events
}

func childPath(dir, name string) string {
	if dir == "." {
		return name
	}

	return dir + "/" + name
}
