// Package fix runs the alias-to-relative import rewrite over a source tree.
package fix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/src-d/enry/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
	"github.com/Sumatoshi-tech/relimport/pkg/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/resolve"
	"github.com/Sumatoshi-tech/relimport/pkg/rewrite"
	"github.com/Sumatoshi-tech/relimport/pkg/walk"
)

const (
	opFix        = "fix"
	spanRun      = "relimport.fix"
	spanFile     = "relimport.fix.file"
	attrFilePath = "file.path"
)

// Reporter receives every processed file as soon as it is done.
type Reporter interface {
	File(file importmodel.File)
}

// Options controls one run.
type Options struct {
	// DryRun computes rewrites without writing files.
	DryRun bool
	// WorkDir anchors a relative root. Empty means the process working directory.
	WorkDir string
}

// Deps are the collaborators of a [Service]. Nil fields get no-op defaults.
type Deps struct {
	Logger   *slog.Logger
	Tracer   trace.Tracer
	Metrics  *observability.RunMetrics
	Reporter Reporter
}

// Service rewrites every eligible file under the configured root.
type Service struct {
	root     string
	dryRun   bool
	walker   *walk.Walker
	rewriter *rewrite.Rewriter
	resolver *resolve.Resolver

	logger   *slog.Logger
	tracer   trace.Tracer
	metrics  *observability.RunMetrics
	reporter Reporter
}

type discardReporter struct{}

func (discardReporter) File(importmodel.File) {}

// NewService builds the resolver, rewriter and walker for cfg.
func NewService(cfg *config.Config, opts Options, deps Deps) (*Service, error) {
	resolveOpts := resolve.OptionsFromConfig(cfg)
	resolveOpts.WorkDir = opts.WorkDir

	resolver, err := resolve.New(resolveOpts)
	if err != nil {
		return nil, err
	}

	walkOpts, err := walk.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}

	if deps.Tracer == nil {
		deps.Tracer = nooptrace.NewTracerProvider().Tracer("relimport")
	}

	if deps.Reporter == nil {
		deps.Reporter = discardReporter{}
	}

	root := cfg.Root
	if opts.WorkDir != "" && !filepath.IsAbs(root) {
		root = filepath.Join(opts.WorkDir, root)
	}

	return &Service{
		root:   root,
		dryRun: opts.DryRun,
		walker: walk.New(walkOpts, deps.Logger),
		rewriter: rewrite.New(resolver, rewrite.Options{
			Alias:            cfg.Alias,
			MatchBareImports: cfg.MatchBareImports,
			DryRun:           opts.DryRun,
		}),
		resolver: resolver,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
		metrics:  deps.Metrics,
		reporter: deps.Reporter,
	}, nil
}

// Root is the directory the service walks.
func (s *Service) Root() string {
	return s.root
}

// Resolver is the alias resolver shared by every file of the run.
func (s *Service) Resolver() *resolve.Resolver {
	return s.resolver
}

// Run walks the root and rewrites each file in turn. Unresolvable aliases and
// per-file I/O failures end up as warnings in the summary; only a canceled
// context or a failing walk returns an error, together with the partial
// summary.
func (s *Service) Run(ctx context.Context) (*importmodel.Summary, error) {
	start := time.Now()

	ctx, span := s.tracer.Start(ctx, spanRun, trace.WithAttributes(
		attribute.String("root", s.root),
		attribute.Bool("dry_run", s.dryRun),
	))
	defer span.End()

	s.logger.InfoContext(ctx, "starting fix", "root", s.root, "dry_run", s.dryRun)

	summary := importmodel.NewSummary(s.root, s.dryRun)

	stats, err := s.walker.Walk(ctx, s.root, func(fileCtx context.Context, path string) error {
		summary.Add(s.fixFile(fileCtx, path))

		return nil
	})

	summary.Skipped = stats.Skipped
	summary.Duration = time.Since(start)

	s.metrics.RecordSkipped(ctx, stats.Skipped)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.RecordOperation(ctx, opFix, observability.StatusError, summary.Duration)

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.WarnContext(ctx, "fix interrupted", "scanned", summary.Scanned, "changed", summary.Changed)
		}

		return summary, fmt.Errorf("fix %s: %w", s.root, err)
	}

	s.metrics.RecordOperation(ctx, opFix, observability.StatusOK, summary.Duration)

	span.SetAttributes(
		attribute.Int("files.scanned", summary.Scanned),
		attribute.Int("files.changed", summary.Changed),
		attribute.Int("warnings", summary.Warnings),
	)

	s.logger.InfoContext(ctx, "fix completed",
		"scanned", summary.Scanned,
		"changed", summary.Changed,
		"rewrites", summary.Rewrites,
		"warnings", summary.Warnings,
		"skipped", summary.Skipped,
		"duration", summary.Duration,
	)

	return summary, nil
}

func (s *Service) fixFile(ctx context.Context, path string) importmodel.File {
	ctx, span := s.tracer.Start(ctx, spanFile, trace.WithAttributes(attribute.String(attrFilePath, path)))
	defer span.End()

	ctx = observability.WithPath(ctx, path)

	file := s.rewriter.RewriteFile(path)
	file.Lang = DetectLanguage(path, file.Before)

	if file.Error != nil {
		span.RecordError(file.Error)
		span.SetStatus(codes.Error, file.Reason)
		s.logger.WarnContext(ctx, "file not processed", "error", file.Error)
	}

	for _, warning := range file.Warnings {
		s.logger.DebugContext(ctx, "alias not resolved",
			"line", warning.Line, "alias", warning.Alias, "error", warning.Err)
	}

	if file.Written {
		s.logger.DebugContext(ctx, "imports rewritten", "rewrites", len(file.Rewrites))
	}

	span.SetAttributes(
		attribute.Int("rewrites", len(file.Rewrites)),
		attribute.Int("warnings", len(file.Warnings)),
	)

	s.reporter.File(file)

	warnings := len(file.Warnings)
	if file.Error != nil {
		warnings++
	}

	s.metrics.RecordFile(ctx, observability.FileStats{
		Lang:     file.Lang,
		Changed:  file.Changed,
		Rewrites: len(file.Rewrites),
		Warnings: warnings,
	})

	return file
}

// DetectLanguage names the language of a source file with enry, falling back
// to the extension alone when the content is not available.
func DetectLanguage(path string, content []byte) string {
	if len(content) == 0 {
		lang, _ := enry.GetLanguageByExtension(path)

		return lang
	}

	return enry.GetLanguage(filepath.Base(path), content)
}
