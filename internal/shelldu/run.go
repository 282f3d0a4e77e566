package shelldu

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/idelchi/shelldu/internal/fstree"
	"github.com/idelchi/shelldu/internal/sample"
	"github.com/idelchi/shelldu/internal/snapshot"
	"github.com/idelchi/shelldu/internal/transcript"
)

// DefaultProgressInterval is the default interval for progress updates.
const DefaultProgressInterval = 500 * time.Millisecond

// StdinPath selects standard input as a transcript source.
const StdinPath = "-"

// cancelCheckLines is how often the line loop checks for cancellation.
const cancelCheckLines = 4096

var errStdinTwice = errors.New("standard input can only be read once")

// countingReader reports bytes and newlines read to the collector.
type countingReader struct {
	r io.Reader
	c *collector
}

func (cr countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.c.add(int64(bytes.Count(p[:n], []byte{'\n'})), int64(n))
	}

	return n, err
}

// startProgressReporter invokes hook(lines, bytes) on each tick until ctx is done.
//
//nolint:varnamelen // c is idiomatic for collector
func startProgressReporter(ctx context.Context, c *collector, hook func(int64, int64), interval time.Duration) {
	if hook == nil {
		return
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				hook(c.snapshot())
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Analyze builds the tree described by the transcript in r, aggregates its
// directory sizes and evaluates the size queries.
func Analyze(ctx context.Context, r io.Reader, source string, opt Options) (*Stats, error) {
	return analyze(ctx, r, source, opt, newCollector())
}

func analyze(ctx context.Context, r io.Reader, source string, opt Options, c *collector) (*Stats, error) {
	log := opt.logger().With(zap.String("source", source))
	start := time.Now()

	var (
		parser  transcript.Parser
		builder = fstree.NewBuilder()
		lines   int64
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(countingReader{r: r, c: c})
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		lines++
		if lines%cancelCheckLines == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		ev, ok, err := parser.ParseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}

		if !ok {
			continue
		}

		if err := builder.Apply(ev); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tree := builder.Tree()
	sizes := fstree.ComputeSizes(tree)

	log.Debug("tree built",
		zap.Int64("lines", lines),
		zap.Int("dirs", tree.DirCount()),
		zap.Int("files", tree.FileCount()),
	)

	stats, err := finalize(source, tree, sizes, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	stats.Lines = lines
	stats.Elapsed = time.Since(start)

	log.Debug("queries evaluated",
		zap.Int64("sum_below", stats.SumBelow),
		zap.Bool("deletion_needed", stats.Deletion.Needed),
		zap.String("deletion_dir", stats.Deletion.Dir.Path),
		zap.Duration("elapsed", stats.Elapsed),
	)

	return stats, nil
}

// source is a named transcript to open.
type source struct {
	name string
	open func() (io.ReadCloser, error)
}

func (opt Options) sources(fsys afero.Fs) ([]source, error) {
	if opt.Sample {
		return []source{{
			name: sample.Name,
			open: func() (io.ReadCloser, error) {
				return io.NopCloser(strings.NewReader(sample.Transcript)), nil
			},
		}}, nil
	}

	paths := opt.Paths
	if len(paths) == 0 {
		paths = []string{StdinPath}
	}

	sources := make([]source, 0, len(paths))
	stdinUsed := false

	for _, path := range paths {
		if path == StdinPath {
			if stdinUsed {
				return nil, errStdinTwice
			}

			stdinUsed = true
			stdin := opt.Stdin

			if stdin == nil {
				stdin = os.Stdin
			}

			sources = append(sources, source{
				name: path,
				open: func() (io.ReadCloser, error) { return io.NopCloser(stdin), nil },
			})

			continue
		}

		sources = append(sources, source{
			name: path,
			open: func() (io.ReadCloser, error) {
				f, err := fsys.Open(path)
				if err != nil {
					return nil, fmt.Errorf("opening transcript: %w", err)
				}

				return f, nil
			},
		})
	}

	return sources, nil
}

func (opt Options) logger() *zap.Logger {
	if opt.Logger == nil {
		return zap.NewNop()
	}

	return opt.Logger
}

// Run analyzes every transcript selected by opt and returns one Stats per
// source, in the order the sources were given.
//
// Transcripts are analyzed concurrently, each tree owned by one goroutine.
// The run can be cancelled via ctx. Progress updates are sent to
// progressHook if provided.
func Run(ctx context.Context, fsys afero.Fs, opt Options, progressHook func(int64, int64)) ([]*Stats, error) {
	log := opt.logger()

	if opt.TopN <= 0 {
		opt.TopN = 10
	}

	sources, err := opt.sources(fsys)
	if err != nil {
		return nil, err
	}

	c := newCollector()

	// Create child context to ensure progress reporter cleanup
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	startProgressReporter(ctx, c, progressHook, opt.ProgressInterval)

	jobs := opt.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	log.Debug("analyzing transcripts",
		zap.Int("sources", len(sources)),
		zap.Int("jobs", jobs),
		zap.Int64("threshold", opt.Threshold),
		zap.Int64("capacity", opt.Capacity),
		zap.Int64("required", opt.Required),
	)

	results := make([]*Stats, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, src := range sources {
		g.Go(func() error {
			rc, err := src.open()
			if err != nil {
				return fmt.Errorf("%s: %w", src.name, err)
			}
			defer rc.Close()

			stats, err := analyze(gctx, rc, src.name, opt, c)
			if err != nil {
				return err
			}

			results[i] = stats

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Record walks the directory at root and writes its transcript to w.
func Record(ctx context.Context, root string, opt Options, w io.Writer) (*snapshot.Result, error) {
	log := opt.logger()

	res, err := snapshot.Walk(ctx, root, snapshot.Options{Excludes: opt.Excludes}, log)
	if err != nil {
		return nil, err
	}

	if err := transcript.Write(w, res.Events); err != nil {
		return nil, fmt.Errorf("writing transcript: %w", err)
	}

	log.Debug("directory recorded",
		zap.String("path", root),
		zap.Int("events", len(res.Events)),
		zap.Int64("skipped", res.Skipped),
	)

	return res, nil
}
