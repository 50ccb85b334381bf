package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/51st-Vfw/MissionEditing-Templates/internal/doctree"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/edits"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/engine"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/history"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/parser"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/raster"
	"github.com/51st-Vfw/MissionEditing-Templates/internal/templates"
)

const (
	resultBuilt   = history.StatusBuilt
	resultFailed  = history.StatusFailed
	resultSkipped = history.StatusSkipped
)

// BuildOptions controls how a job's variants are built and written.
type BuildOptions struct {
	OutputDir string
	KeepSVG   bool // Keep the SVG after converting it to PNG
	PNG       bool // Convert each SVG to PNG
	Minify    bool
	DryRun    bool // Parse and log specs only
	Workers   int  // Variants built at once
	FailFast  bool // Stop starting variants after the first failure

	// ConfineOutputs fails variants whose output path leaves OutputDir.
	// Set for uploaded definitions.
	ConfineOutputs bool
}

// Worker builds the variants of a job.
type Worker struct {
	engine    *engine.Engine
	resolver  *templates.Resolver
	converter raster.Converter
	history   *history.Store
	stats     *raster.Stats
	log       *slog.Logger

	backoff func(attempt int) time.Duration
}

// NewWorker creates a worker. converter and hist may be nil to skip raster
// conversion and build history.
func NewWorker(eng *engine.Engine, resolver *templates.Resolver, converter raster.Converter, hist *history.Store, stats *raster.Stats, log *slog.Logger) *Worker {
	if stats == nil {
		stats = raster.NewStats(time.Hour)
	}
	return &Worker{
		engine:    eng,
		resolver:  resolver,
		converter: converter,
		history:   hist,
		stats:     stats,
		log:       log,
		backoff:   Backoff,
	}
}

// Process parses the job's definition and builds every variant in it.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "file", job.Filename)

	// Phase 1: Parse
	job.SetStatus(StatusParsing, "parsing")
	data := job.FileData()
	job.setContentHash(ContentHashHex(data))

	variants, groups, err := w.expand(job, data)
	if err != nil {
		log.Error("definition parse failed", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "parsing")
		return
	}
	markDuplicateOutputs(job, variants)
	job.SetTotals(groups, len(variants))
	log.Info("definition parsed", "groups", groups, "variants", len(variants))

	if len(variants) == 0 {
		log.Warn("definition has no variants, nothing to do")
		job.SetStatus(StatusCompleted, "done")
		return
	}

	opts := job.Options
	if opts.DryRun {
		w.dryRun(job, variants, log)
		return
	}

	// Phase 2: Build variants with bounded concurrency.
	job.SetStatus(StatusBuilding, "building")
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, max(opts.Workers, 1))
	var wg sync.WaitGroup
	for _, v := range variants {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			w.finish(job, VariantResult{Group: v.Group, Variant: v.Name, Status: resultSkipped}, log)
			continue
		}
		wg.Add(1)
		go func(v Variant) {
			defer wg.Done()
			defer func() { <-sem }()
			res := w.buildVariant(ctx, job, v, log)
			w.finish(job, res, log)
			if res.Status == resultFailed && opts.FailFast {
				log.Warn("stopping after failed variant", "variant", v.Name)
				cancel()
			}
		}(v)
	}
	wg.Wait()

	snap := job.Snapshot()
	switch {
	case snap.Progress.Failed == 0 && snap.Progress.Skipped == 0:
		job.SetStatus(StatusCompleted, "done")
	case snap.Progress.Built > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "building")
	}
	log.Info("build finished", "built", snap.Progress.Built, "failed", snap.Progress.Failed, "skipped", snap.Progress.Skipped)
}

// expand turns the definition into variants and reports the group count.
func (w *Worker) expand(job *Job, data []byte) ([]Variant, int, error) {
	if job.Mode == ModeEdits {
		if job.Template == "" {
			return nil, 0, errors.New("edits mode requires a template")
		}
		spec, err := edits.ParseDeclarations(bytes.NewReader(data), job.Filename)
		if err != nil {
			return nil, 0, err
		}
		if job.Tinted && !spec.Tinted {
			tinted := *spec
			tinted.Tinted = true
			spec = &tinted
		}
		return []Variant{{Group: 1, Name: spec.Variant, Spec: spec}}, 1, nil
	}

	p, err := parser.ForFile(job.Filename)
	if err != nil {
		return nil, 0, err
	}
	table, err := p.Parse(bytes.NewReader(data), job.Filename)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", job.Filename, err)
	}
	groups := parser.Groups(table)
	var variants []Variant
	for i, g := range groups {
		variants = append(variants, ExpandGroup(g, i+1, job.Filename)...)
	}
	return variants, len(groups), nil
}

func (w *Worker) dryRun(job *Job, variants []Variant, log *slog.Logger) {
	failed := false
	for _, v := range variants {
		res := VariantResult{Group: v.Group, Variant: v.Name, Status: resultSkipped}
		if v.Err != nil {
			log.Error("variant parse failed", "group", v.Group, "variant", v.Name, "error", v.Err)
			res.Status = resultFailed
			res.Error = v.Err.Error()
			job.AddError(res.Error)
			failed = true
		} else {
			res.Template = v.Spec.Template
			if job.Template != "" {
				res.Template = job.Template
			}
			log.Info("dry run", "group", v.Group, "spec", v.Spec,
				"output", OutputBase(v.Spec, res.Template, job.Options.OutputDir))
		}
		job.AddResult(res)
	}
	if failed {
		job.SetStatus(StatusFailed, "dry run")
		return
	}
	job.SetStatus(StatusCompleted, "dry run")
}

// finish records a variant result on the job and in the build history.
func (w *Worker) finish(job *Job, res VariantResult, log *slog.Logger) {
	job.AddResult(res)
	if res.Status == resultFailed {
		job.AddError(fmt.Sprintf("%s: %s", res.Variant, res.Error))
	}
	if w.history == nil {
		return
	}
	err := w.history.Record(context.Background(), history.Entry{
		JobID:          job.ID,
		Source:         job.Filename,
		Group:          res.Group,
		Variant:        res.Variant,
		Template:       res.Template,
		Outputs:        res.Outputs,
		Status:         res.Status,
		Error:          res.Error,
		DurationMs:     res.DurationMs,
		DefinitionHash: job.contentHash(),
	})
	if err != nil {
		log.Warn("history record failed", "variant", res.Variant, "error", err)
	}
}

func (w *Worker) buildVariant(ctx context.Context, job *Job, v Variant, log *slog.Logger) VariantResult {
	log = log.With("group", v.Group, "variant", v.Name)
	start := time.Now()

	outputs, template, err := w.build(ctx, job, v, log)
	res := VariantResult{
		Group:      v.Group,
		Variant:    v.Name,
		Template:   template,
		Outputs:    outputs,
		DurationMs: time.Since(start).Milliseconds(),
	}
	switch {
	case err == nil:
		res.Status = resultBuilt
		log.Info("variant built", "outputs", outputs, "duration_ms", res.DurationMs)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		res.Status = resultSkipped
		log.Info("variant cancelled")
	default:
		res.Status = resultFailed
		res.Error = err.Error()
		log.Error("variant failed", "error", err)
	}
	return res
}

// build loads the template, applies the spec and writes the outputs. It
// returns the files written and the resolved template path.
func (w *Worker) build(ctx context.Context, job *Job, v Variant, log *slog.Logger) ([]string, string, error) {
	if v.Err != nil {
		return nil, "", v.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	spec := v.Spec
	opts := job.Options

	name := job.Template
	if name == "" {
		name = spec.Template
	}
	if name == "" {
		return nil, "", fmt.Errorf("no template: set %s or pass a template", edits.FieldTemplate)
	}
	path, ok := w.resolver.Find(name)
	if !ok {
		return nil, name, fmt.Errorf("template %q (line %d): %w", name, spec.TemplateLine, engine.ErrTemplateNotFound)
	}

	base := OutputBase(spec, name, opts.OutputDir)
	if opts.ConfineOutputs && !within(opts.OutputDir, base) {
		return nil, path, fmt.Errorf("output %q: %w", spec.Output, ErrOutputEscapes)
	}

	log.Info("applying edits", "template", path)
	doc, err := doctree.Load(path)
	if err != nil {
		return nil, path, err
	}
	if err := w.engine.Apply(doc, spec); err != nil {
		return nil, path, err
	}

	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return nil, path, fmt.Errorf("create output dir: %w", err)
	}
	svgPath := base + ".svg"
	if err := doc.Write(svgPath, doctree.WriteOptions{Minify: opts.Minify}); err != nil {
		return nil, path, err
	}
	log.Debug("wrote svg", "path", svgPath)

	if !opts.PNG || w.converter == nil {
		return []string{svgPath}, path, nil
	}

	pngPath := base + ".png"
	if err := w.convert(ctx, svgPath, pngPath, log); err != nil {
		return []string{svgPath}, path, err
	}
	if opts.KeepSVG {
		return []string{svgPath, pngPath}, path, nil
	}
	if err := os.Remove(svgPath); err != nil {
		log.Warn("remove intermediate svg failed", "path", svgPath, "error", err)
	}
	return []string{pngPath}, path, nil
}

// convert runs the raster converter, retrying transient failures.
func (w *Worker) convert(ctx context.Context, svgPath, pngPath string, log *slog.Logger) error {
	var lastErr error
	for attempt := range MaxRetries {
		res, err := w.converter.Convert(ctx, svgPath, pngPath)
		if err == nil {
			w.stats.Record(res.Duration)
			log.Debug("converted to png", "converter", w.converter.Name(), "path", pngPath, "output", res.Output)
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			break
		}
		log.Warn("retryable conversion error", "attempt", attempt, "error", err)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			w.stats.RecordFailure()
			return ctx.Err()
		}
	}
	w.stats.RecordFailure()
	return fmt.Errorf("convert %s: %w", svgPath, lastErr)
}

// Stats returns recent conversion latencies.
func (w *Worker) Stats() raster.StatsSnapshot {
	return w.stats.Snapshot()
}
