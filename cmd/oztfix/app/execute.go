package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/oztfix/pkg/constants"
	"github.com/agentstation/oztfix/pkg/errors"
	"github.com/agentstation/oztfix/pkg/logging"
)

// flags holds the values of the persistent and root command flags before
// they are folded into Config.
type flags struct {
	configFile       string
	verbose          bool
	quiet            bool
	noColor          bool
	logLevel         string
	dataDir          string
	outputDir        string
	ignore           bool
	continueOnError  bool
	dryRun           bool
	strict           bool
	noSuffixFallback bool
	report           string
	provenance       string
	exclude          []string
}

// Execute runs the oztfix CLI application with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	rootCmd := a.createRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// createRootCommand creates the root cobra command with all subcommands.
func (a *App) createRootCommand() *cobra.Command {
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:     "oztfix [flags] [files...]",
		Short:   "Restore identifiers and metadata of embedded titles in FoLiA documents",
		Version: a.version,
		Long: `oztfix rewrites FoLiA documents so that every independent title embedded in
a document (a poem in a bundle, a play in a collection) carries its own
identifier and metadata block.

Metadata is read from the title, curated witness year and dependent title
tables under --datadir. Input arguments may be files or glob patterns
(** is supported); documents may be gzip-compressed. Without files the
tables are loaded and checked, and nothing else happens.`,
		Args: cobra.ArbitraryArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setupCommand(cmd, f)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.configFile, "config", "", "config file (default is $HOME/"+constants.ConfigFileName+".yaml)")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	pf.StringVarP(&f.dataDir, "datadir", "d", "", "directory holding the metadata tables")

	fl := rootCmd.Flags()
	fl.StringVarP(&f.outputDir, "outputdir", "O", "./", "directory rewritten documents are written to")
	fl.BoolVar(&f.ignore, "ignore", false, "pass documents without metadata through unchanged")
	fl.BoolVar(&f.continueOnError, "continue-on-error", false, "keep processing after a document fails")
	fl.BoolVar(&f.dryRun, "dry-run", false, "process documents without writing them")
	fl.BoolVar(&f.strict, "strict", false, "fail documents with chapters or acts that have no metadata")
	fl.BoolVar(&f.noSuffixFallback, "no-suffix-fallback", false, "do not retry document ids with the "+constants.EditionSuffix+" suffix")
	fl.StringVar(&f.report, "report", "", "write a YAML run report to this file")
	fl.StringVar(&f.provenance, "provenance", "", "write field-level metadata provenance to this file")
	fl.StringSliceVar(&f.exclude, "exclude", nil, "fields never merged into documents (replaces the defaults)")

	rootCmd.SetVersionTemplate(constants.AppName + " {{.Version}}\n")

	rootCmd.AddCommand(a.NewVersionCommand())
	rootCmd.AddCommand(a.NewMetadataCommand())

	return rootCmd
}

// setupCommand folds explicitly set flags into the configuration and
// rebuilds the logger. Flags left at their defaults keep the values from
// the environment and config file.
func (a *App) setupCommand(cmd *cobra.Command, f *flags) error {
	changed := cmd.Flags().Changed

	if changed("config") {
		config, err := loadConfig(f.configFile)
		if err != nil {
			return errors.NewConfigError("app", "reading "+f.configFile, err)
		}
		a.config = config
	}

	c := a.config
	if changed("verbose") {
		c.Verbose = f.verbose
	}
	if changed("quiet") {
		c.Quiet = f.quiet
	}
	if changed("no-color") {
		c.NoColor = f.noColor
	}
	if changed("log-level") {
		c.LogLevel = f.logLevel
	}
	if changed("datadir") {
		c.DataDir = f.dataDir
	}
	if changed("outputdir") {
		c.OutputDir = f.outputDir
	}
	if changed("ignore") {
		c.Ignore = f.ignore
	}
	if changed("continue-on-error") {
		c.ContinueOnError = f.continueOnError
	}
	if changed("dry-run") {
		c.DryRun = f.dryRun
	}
	if changed("strict") {
		c.Strict = f.strict
	}
	if changed("no-suffix-fallback") {
		c.SuffixFallback = !f.noSuffixFallback
	}
	if changed("report") {
		c.Report = f.report
	}
	if changed("provenance") {
		c.Provenance = f.provenance
	}
	if changed("exclude") {
		c.ExcludedFields = f.exclude
	}

	logger := NewLogger(c)
	a.logger = &logger
	logging.SetDefault(logger)
	return nil
}

// run expands the inputs and processes them.
func (a *App) run(cmd *cobra.Command, args []string) error {
	if a.config.DataDir == "" {
		return &errors.ValidationError{Field: "datadir", Message: "is required (use --datadir)"}
	}

	files, err := ExpandInputs(a.fs, args)
	if err != nil {
		return err
	}
	a.logger.Debug().Int("files", len(files)).Msg("Expanded input arguments")

	fixer, err := a.Fixer(cmd.Context())
	if err != nil {
		return err
	}

	report, err := fixer.Run(a.Context(cmd.Context()), files)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.String())
	}
	return err
}

// ExitOnError prints an error and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}
