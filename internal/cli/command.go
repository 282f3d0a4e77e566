package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/idelchi/shelldu/internal/config"
	"github.com/idelchi/shelldu/internal/sample"
	"github.com/idelchi/shelldu/internal/shelldu"
)

// CLI represents the command-line interface.
type CLI struct {
	version string
	fsys    afero.Fs
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// New creates a new CLI instance with the given version.
func New(version string) CLI {
	return CLI{
		version: version,
		fsys:    afero.NewOsFs(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}
}

// DefaultExcludes contains the default exclusion patterns for recording.
//
//nolint:gochecknoglobals // Config constant
var DefaultExcludes = []string{`(^|/)\.git$`, `(^|/)node_modules$`}

// allowedOutputs lists the supported output formats.
//
//nolint:gochecknoglobals // Config constant
var allowedOutputs = []string{"table", "json", "yaml"}

// settings collects raw flag values before they are resolved against the
// config file.
type settings struct {
	options    shelldu.Options
	configPath string
	threshold  string
	capacity   string
	required   string
}

func addCommonFlags(flags *pflag.FlagSet, s *settings) {
	flags.StringVarP(&s.configPath, "config", "c", config.Path(), "YAML config file (default $"+config.EnvPath+")")
	flags.BoolVar(&s.options.Debug, "debug", false, "Enable debug output")
}

func addQueryFlags(flags *pflag.FlagSet, s *settings) {
	flags.StringVar(&s.threshold, "threshold", config.DefaultThreshold, "Sum directories smaller than this size (e.g., 100000, 100kB)")
	flags.StringVar(&s.capacity, "capacity", config.DefaultCapacity, "Total disk size")
	flags.StringVar(&s.required, "required", config.DefaultRequired, "Free space needed after deleting one directory")
	flags.IntVarP(&s.options.TopN, "top", "t", config.DefaultTopN, "Number of largest directories to display")
	flags.StringVarP(&s.options.Output, "output", "o", config.DefaultOutput, "Output format: table, json or yaml")
	flags.IntVarP(&s.options.Jobs, "jobs", "j", 0, "Transcripts analyzed concurrently (0=number of CPUs)")
	flags.BoolVar(&s.options.Sample, "sample", false, "Analyze the embedded sample transcript")
}

// resolve fills unset flags from the config file and parses sizes.
func (s *settings) resolve(flags *pflag.FlagSet, fsys afero.Fs) (shelldu.Options, error) {
	cfg, err := config.Load(fsys, s.configPath)
	if err != nil {
		return shelldu.Options{}, err
	}

	opt := s.options

	changed := func(name string) bool {
		f := flags.Lookup(name)

		return f != nil && f.Changed
	}

	if !changed("threshold") {
		s.threshold = cfg.Threshold
	}

	if !changed("capacity") {
		s.capacity = cfg.Capacity
	}

	if !changed("required") {
		s.required = cfg.Required
	}

	if !changed("top") {
		opt.TopN = cfg.TopN
	}

	if !changed("output") {
		opt.Output = cfg.Output
	}

	if !changed("debug") {
		opt.Debug = cfg.Debug
	}

	if !changed("exclude") && len(cfg.Excludes) > 0 {
		opt.Excludes = cfg.Excludes
	}

	for _, size := range []struct {
		name  string
		value string
		dst   *int64
	}{
		{"threshold", s.threshold, &opt.Threshold},
		{"capacity", s.capacity, &opt.Capacity},
		{"required", s.required, &opt.Required},
	} {
		parsed, err := config.ParseSize(size.value)
		if err != nil {
			return shelldu.Options{}, fmt.Errorf("invalid %s: %w", size.name, err)
		}

		*size.dst = parsed
	}

	if !slices.Contains(allowedOutputs, opt.Output) {
		return shelldu.Options{}, fmt.Errorf("invalid output format %q: must be one of %v", opt.Output, allowedOutputs)
	}

	if opt.TopN < 0 {
		return shelldu.Options{}, errors.New("top cannot be negative")
	}

	return opt, nil
}

// Execute runs the CLI with the process arguments.
func (c CLI) Execute() error {
	return c.Command().Execute()
}

// Command builds the root command.
func (c CLI) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "shelldu",
		Short: "Reconstruct directory sizes from recorded shell sessions",
		Long: heredoc.Doc(`
			shelldu rebuilds a directory tree from a transcript of "$ cd" and "$ ls"
			commands and reports recursive directory sizes.

			It answers two questions about the tree:
			  - the summed size of all directories smaller than --threshold
			  - the smallest directory whose deletion leaves --required bytes free
			    on a disk of --capacity bytes

			Sizes accept plain byte counts or humanized values (100kB, 64MiB).
		`),
		Version:       c.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetVersionTemplate("{{.Version}}\n")
	root.SetIn(c.stdin)
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.Flags().SortFlags = false

	root.AddCommand(c.analyzeCommand(), c.recordCommand(), c.sampleCommand())

	return root
}

func (c CLI) analyzeCommand() *cobra.Command {
	var s settings

	cmd := &cobra.Command{
		Use:   "analyze [transcript...]",
		Short: "Analyze one or more transcripts",
		Long: heredoc.Doc(`
			Analyze transcripts and report directory sizes.

			Transcripts are read from the given files, or from standard input when
			no file (or "-") is given. Several transcripts are analyzed concurrently
			and reported in the order given.
		`),
		Example: heredoc.Doc(`
			shelldu analyze session.txt
			shelldu analyze --sample --threshold 100kB -o json
			shelldu record ~/src | shelldu analyze --top 5
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			s.options.Paths = args

			opt, err := s.resolve(cmd.Flags(), c.fsys)
			if err != nil {
				return err
			}

			return c.analyze(cmd.Context(), opt)
		},
	}

	cmd.Flags().SortFlags = false
	addQueryFlags(cmd.Flags(), &s)
	addCommonFlags(cmd.Flags(), &s)

	return cmd
}

func (c CLI) recordCommand() *cobra.Command {
	var (
		s   settings
		out string
	)

	cmd := &cobra.Command{
		Use:   "record [path]",
		Short: "Record a directory as a transcript",
		Long: heredoc.Doc(`
			Walk a directory and write the "$ cd" / "$ ls" transcript that
			describes it. Defaults to the current directory.

			Entries whose names cannot be written on a single transcript line are
			skipped.
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			opt, err := s.resolve(cmd.Flags(), c.fsys)
			if err != nil {
				return err
			}

			return c.record(cmd.Context(), path, out, opt)
		},
	}

	cmd.Flags().SortFlags = false
	cmd.Flags().StringSliceVarP(&s.options.Excludes, "exclude", "e", DefaultExcludes, "Regex patterns to exclude")
	cmd.Flags().StringVar(&out, "out", "", "Write the transcript to this file instead of stdout")
	addCommonFlags(cmd.Flags(), &s)

	return cmd
}

func (c CLI) sampleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sample",
		Short: "Print the embedded sample transcript",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), sample.Transcript)

			return err
		},
	}
}
