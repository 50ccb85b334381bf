package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/config"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/engine"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/history"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/pipeline"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/raster"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/templates"
)

// logFile is the run log written with --log. It is truncated on every run.
const logFile = "kbb_log.txt"

type options struct {
	configPath string
	logFile    bool
	dry        bool
	svg        bool
	nopng      bool
	edits      bool
	template   string
	search     []string
	output     string
	converter  string
	minify     bool
	workers    int
	cont       bool
	tinted     bool
	verbose    bool
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:   "kbb [flags] <definition>",
		Short: "Build kneeboards from SVG templates",
		Long: `kbb applies the substitutions and replacements in a definition file to
SVG templates and writes one kneeboard per variant, converted to PNG.

A definition is a table (.csv, .tsv, .txt, .md, .html, .docx or .xlsx) whose
row groups start with a "Description,Field,<variant>..." header, or, with
--edits, a declaration file that builds a single variant.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd, args[0], opts)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "kbb:", err)
			}
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "config file (default "+config.DefaultFile+" if present)")
	f.BoolVar(&opts.logFile, "log", false, "write a run log to "+logFile)
	f.BoolVar(&opts.dry, "dry", false, "parse the definition and log each variant without building")
	f.BoolVar(&opts.svg, "svg", false, "keep the SVG next to each PNG")
	f.BoolVar(&opts.nopng, "nopng", false, "skip PNG conversion (implies --svg)")
	f.BoolVar(&opts.edits, "edits", false, "treat the definition as a declaration file (requires --template)")
	f.StringVar(&opts.template, "template", "", "template to build, overriding kbb_template")
	f.StringArrayVar(&opts.search, "search", nil, "additional template directory (repeatable)")
	f.StringVar(&opts.output, "output", "", "output directory (must exist)")
	f.StringVar(&opts.converter, "converter", "", "PNG converter: inkscape, chrome or none")
	f.BoolVar(&opts.minify, "minify", false, "minify SVG output")
	f.IntVar(&opts.workers, "workers", 0, "variants built at once")
	f.BoolVar(&opts.cont, "continue", false, "keep building after a variant fails")
	f.BoolVar(&opts.tinted, "tinted", false, "keep the night tint overlay (with --edits)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")
	return cmd
}

// resolveConfig loads the config file and applies the command line on top.
func resolveConfig(cmd *cobra.Command, opts options) (config.Config, error) {
	if opts.edits && opts.template == "" {
		return config.Config{}, errors.New("--edits requires --template")
	}
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	if f.Changed("output") {
		cfg.OutputDir = opts.output
	}
	cfg.SearchPaths = append(cfg.SearchPaths, opts.search...)
	if f.Changed("converter") {
		cfg.Converter = opts.converter
	}
	if f.Changed("workers") {
		cfg.Workers = opts.workers
	}
	if opts.minify {
		cfg.Minify = true
	}
	if opts.cont {
		cfg.FailFast = false
	}
	if opts.svg {
		cfg.KeepSVG = true
	}
	if opts.nopng {
		cfg.PNG = false
		cfg.KeepSVG = true
	}
	if opts.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	info, err := os.Stat(cfg.OutputDir)
	if err != nil || !info.IsDir() {
		return cfg, fmt.Errorf("output directory %q does not exist", cfg.OutputDir)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.Config, runLog io.Writer) *slog.Logger {
	h := slog.Handler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: cfg.Level()}))
	if runLog != nil {
		h = teeHandler{h, slog.NewJSONHandler(runLog, &slog.HandlerOptions{Level: slog.LevelDebug})}
	}
	return slog.New(h)
}

func run(cmd *cobra.Command, definition string, opts options) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	var runLog io.Writer
	if opts.logFile {
		f, err := os.Create(logFile)
		if err != nil {
			return fmt.Errorf("create run log: %w", err)
		}
		defer f.Close()
		runLog = f
	}
	log := newLogger(cmd.ErrOrStderr(), cfg, runLog)

	data, err := os.ReadFile(definition)
	if err != nil {
		return fmt.Errorf("read definition: %w", err)
	}

	resolver := templates.NewResolver(cfg.SearchPaths, log)
	eng := engine.New(engine.Options{Resolver: resolver, Log: log, OverlayID: cfg.OverlayID})

	var conv raster.Converter
	if cfg.PNG && !opts.dry {
		conv, err = raster.New(cfg.Converter, raster.Options{
			InkscapeBin: cfg.InkscapeBin,
			ChromeBin:   cfg.ChromeBin,
			Timeout:     cfg.ConvertTimeout,
		})
		switch {
		case errors.Is(err, raster.ErrDisabled):
			cfg.PNG = false
			cfg.KeepSVG = true
		case err != nil:
			return err
		}
	}

	var hist *history.Store
	if cfg.HistoryDB != "" && !opts.dry {
		hist, err = history.Open(cmd.Context(), cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer hist.Close()
	}

	mode := pipeline.ModeTable
	if opts.edits {
		mode = pipeline.ModeEdits
	}
	job := pipeline.NewJob(filepath.Base(definition), data, mode, pipeline.BuildOptions{
		OutputDir: cfg.OutputDir,
		KeepSVG:   cfg.KeepSVG,
		PNG:       cfg.PNG,
		Minify:    cfg.Minify,
		DryRun:    opts.dry,
		Workers:   cfg.Workers,
		FailFast:  cfg.FailFast,
	})
	job.Template = opts.template
	job.Tinted = opts.tinted

	log.Debug("template search path", "dirs", resolver.Dirs())
	worker := pipeline.NewWorker(eng, resolver, conv, hist, nil, log)
	worker.Process(cmd.Context(), job)

	snap := job.Snapshot()
	renderReport(cmd.OutOrStdout(), snap, worker.Stats())
	if snap.Status != pipeline.StatusCompleted {
		return fmt.Errorf("build %s: %d built, %d failed, %d skipped",
			snap.Status, snap.Progress.Built, snap.Progress.Failed, snap.Progress.Skipped)
	}
	return nil
}
