package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/idelchi/shelldu/internal/shelldu"
)

const (
	// TabSpacing is the number of spaces between tabwriter columns.
	TabSpacing = 2
)

// PrintJSON outputs statistics in JSON format, one element per transcript.
func PrintJSON(results []*shelldu.Stats, writer io.Writer) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	if _, err := fmt.Fprintln(writer, string(data)); err != nil {
		return err
	}

	return nil
}

// PrintYAML outputs statistics in YAML format, one element per transcript.
func PrintYAML(results []*shelldu.Stats, writer io.Writer) error {
	enc := yaml.NewEncoder(writer)
	enc.SetIndent(2)

	if err := enc.Encode(results); err != nil {
		return fmt.Errorf("encoding YAML output: %w", err)
	}

	return enc.Close()
}

// PrintTable outputs statistics in human-readable table format.
func PrintTable(results []*shelldu.Stats, writer io.Writer) error {
	w := tabwriter.NewWriter(writer, 0, 4, TabSpacing, ' ', 0)

	for i, stats := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}

		printStats(w, stats)
	}

	return w.Flush()
}

func ibytes(n int64) string {
	return humanize.IBytes(uint64(n)) //nolint:gosec // Sizes are never negative
}

func percent(part, total int64) float64 {
	if total <= 0 {
		return 0
	}

	return 100.0 * float64(part) / float64(total)
}

//nolint:forbidigo // This function prints output to the console.
func printStats(w io.Writer, stats *shelldu.Stats) {
	fmt.Fprintf(w, "Transcript:\t%s\n", stats.Source)

	// Top directories
	fmt.Fprintln(w, "\nTop directories:\t\t")

	for i, dir := range stats.TopDirs {
		fmt.Fprintf(w, "  %d) '%s'\t%s (%.1f%%)\n",
			len(stats.TopDirs)-i, dir.Path, ibytes(dir.Size), percent(dir.Size, stats.TotalBytes))
	}

	// Queries
	fmt.Fprintln(w, "\nQueries:\t\t")
	fmt.Fprintf(w, "Sum of directories below %s:\t%d (%s)\n",
		ibytes(stats.Threshold), stats.SumBelow, ibytes(stats.SumBelow))

	plan := stats.Deletion
	if plan.Needed {
		fmt.Fprintf(w, "Smallest directory freeing %s:\t'%s' %d (%s)\n",
			ibytes(plan.Target), plan.Dir.Path, plan.Dir.Size, ibytes(plan.Dir.Size))
	} else {
		fmt.Fprintf(w, "Smallest directory to delete:\tnone needed, %s free of %s\n",
			ibytes(stats.Capacity-plan.Used), ibytes(stats.Capacity))
	}

	// Stats summary
	fmt.Fprintln(w, "\nStats:\t\t")
	fmt.Fprintf(w, "Total directories:\t%d\n", stats.DirCount)
	fmt.Fprintf(w, "Total files:\t%d\n", stats.FileCount)
	fmt.Fprintf(w, "Total size:\t%s (%d bytes)\n", ibytes(stats.TotalBytes), stats.TotalBytes)
	fmt.Fprintf(w, "Disk usage:\t%s of %s (%.1f%%)\n",
		ibytes(plan.Used), ibytes(stats.Capacity), percent(plan.Used, stats.Capacity))

	fmt.Fprintf(w, "\nElapsed:\t%v\n", stats.Elapsed)
}
