package shelldu

import (
	"io"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/idelchi/shelldu/internal/fstree"
)

// Stats holds the analysis of a single transcript.
type Stats struct {
	// Source names the transcript ("-" for stdin).
	Source string `json:"source" yaml:"source"`
	// DirCount is the number of directories including the root.
	DirCount int `json:"dir_count" yaml:"dir_count"`
	// FileCount is the number of files.
	FileCount int `json:"file_count" yaml:"file_count"`
	// TotalBytes is the aggregate size of the root directory.
	TotalBytes int64 `json:"total_bytes" yaml:"total_bytes"`
	// Threshold is the exclusive upper bound used for SumBelow.
	Threshold int64 `json:"threshold" yaml:"threshold"`
	// SumBelow is the summed size of all directories smaller than Threshold.
	SumBelow int64 `json:"sum_below" yaml:"sum_below"`
	// Capacity is the disk size used to plan the deletion.
	Capacity int64 `json:"capacity" yaml:"capacity"`
	// Required is the free space the deletion must leave.
	Required int64 `json:"required" yaml:"required"`
	// Deletion is the smallest directory whose removal frees enough space.
	Deletion fstree.Deletion `json:"deletion" yaml:"deletion"`
	// TopDirs contains the N largest directories, smallest first.
	TopDirs []fstree.DirSize `json:"top_dirs" yaml:"top_dirs"`
	// Lines is the number of transcript lines read.
	Lines int64 `json:"lines" yaml:"lines"`
	// Elapsed is the total time taken for analysis.
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
	// TopN is the number of top results tracked.
	TopN int `json:"top_n" yaml:"top_n"`
}

// Options configures analysis and CLI behavior.
type Options struct {
	// Paths are the transcripts to analyze; "-" reads Stdin.
	Paths []string
	// Sample analyzes the embedded example transcript instead of Paths.
	Sample bool
	// Stdin is read for the "-" path. Defaults to os.Stdin.
	Stdin io.Reader
	// Threshold is the exclusive upper bound for the small directory sum.
	Threshold int64
	// Capacity is the total disk size.
	Capacity int64
	// Required is the free space needed after deletion.
	Required int64
	// TopN is the number of largest directories to report.
	TopN int
	// Jobs bounds how many transcripts are analyzed concurrently (0=GOMAXPROCS).
	Jobs int
	// ProgressInterval controls progress callback cadence.
	ProgressInterval time.Duration
	// Excludes contains regex patterns skipped when recording a directory.
	Excludes []string
	// Debug indicates whether debug output is enabled.
	Debug bool
	// Output represents output format (table, json or yaml).
	Output string
	// Logger receives debug output. Defaults to a no-op logger.
	Logger *zap.Logger
}

// collector tracks read progress across concurrently analyzed transcripts.
type collector struct {
	mu        sync.Mutex // Protect concurrent access
	lineCount int64
	byteCount int64
}

func newCollector() *collector {
	return &collector{}
}

// add records n bytes read containing lines newlines.
func (c *collector) add(lines, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lineCount += lines
	c.byteCount += n
}

func (c *collector) snapshot() (int64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lineCount, c.byteCount
}

// finalize produces the Stats of an aggregated tree.
// The top N directories are ordered smallest first for display.
func finalize(source string, tree *fstree.Tree, sizes fstree.Sizes, opt Options) (*Stats, error) {
	plan, err := fstree.PlanDeletion(sizes, opt.Capacity, opt.Required)
	if err != nil {
		return nil, err
	}

	topDirs := fstree.Largest(sizes, opt.TopN)

	// Reverse for display (smallest first, displayed in reverse)
	slices.Reverse(topDirs)

	return &Stats{
		Source:     source,
		DirCount:   tree.DirCount(),
		FileCount:  tree.FileCount(),
		TotalBytes: plan.Used,
		Threshold:  opt.Threshold,
		SumBelow:   fstree.SumBelowThreshold(sizes, opt.Threshold),
		Capacity:   opt.Capacity,
		Required:   opt.Required,
		Deletion:   plan,
		TopDirs:    topDirs,
		TopN:       opt.TopN,
	}, nil
}
