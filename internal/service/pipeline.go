package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/raphaelgruber/rikkaview/internal/archive"
	"github.com/raphaelgruber/rikkaview/internal/config"
	"github.com/raphaelgruber/rikkaview/internal/db"
	"github.com/raphaelgruber/rikkaview/internal/export"
	"github.com/raphaelgruber/rikkaview/internal/metrics"
	"github.com/raphaelgruber/rikkaview/internal/models"
)

// Pipeline loads backups and exports them with shared settings.
type Pipeline struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.Collector

	// Version is recorded as the generator in exports.
	Version string
}

// NewPipeline creates a pipeline with a fresh metrics collector.
func NewPipeline(cfg config.Config, logger *slog.Logger, version string) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewCollector(),
		Version: version,
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) time(op string) func() {
	if p.Metrics == nil {
		return func() {}
	}
	return p.Metrics.Time(op)
}

func (p *Pipeline) count(counter string, n int) {
	if p.Metrics != nil {
		p.Metrics.Add(counter, int64(n))
	}
}

// Load extracts the backup zip at path and materializes its content.
// Temporary files are removed before Load returns.
func (p *Pipeline) Load(ctx context.Context, path string) (*models.Backup, error) {
	defer p.time(metrics.OpExtract)()
	log := p.logger()

	a, err := archive.Open(path, log)
	if err != nil {
		return nil, &StageError{Stage: StageExtraction, Path: path, Err: err}
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to clean up extracted backup", "error", err)
		}
	}()

	loc, err := p.Config.Location()
	if err != nil {
		return nil, err
	}
	client, err := db.Open(ctx, a.DatabasePath(), log, db.WithLocation(loc))
	if err != nil {
		return nil, &StageError{Stage: StageRead, Path: path, Err: err}
	}
	defer client.Close()

	b, err := client.ReadBackup(ctx)
	if err != nil {
		stage := StageRead
		if errors.Is(err, db.ErrSchema) {
			stage = StageSchema
		}
		return nil, &StageError{Stage: stage, Path: path, Err: err}
	}

	b.Assistants = a.Assistants()
	if p.Config.EmbedImages {
		if refs := imageRefs(b); len(refs) > 0 {
			b.Assets = a.Assets(refs)
		}
	}

	p.count(metrics.CounterConversations, len(b.Conversations))
	p.count(metrics.CounterMessages, b.MessageCount())
	p.count(metrics.CounterRowDecodeErrors, b.Stats.RowDecodeErrors)
	p.count(metrics.CounterOrphanNodes, b.Stats.OrphanNodes)

	log.Info("backup loaded",
		"path", path,
		"conversations", len(b.Conversations),
		"messages", b.MessageCount(),
		"assistants", len(b.Assistants),
		"memories", len(b.Memories))
	return b, nil
}

// imageRefs collects the image URLs referenced anywhere in b.
func imageRefs(b *models.Backup) []string {
	var refs []string
	var walk func(parts []models.Part)
	walk = func(parts []models.Part) {
		for _, part := range parts {
			switch v := part.(type) {
			case *models.ImagePart:
				refs = append(refs, v.URL)
			case *models.ToolPart:
				walk(v.Output)
			}
		}
	}
	for _, c := range b.Conversations {
		for _, m := range c.Messages {
			walk(m.Parts)
		}
	}
	return refs
}

// Filter applies opts to b.
func (p *Pipeline) Filter(b *models.Backup, opts FilterOptions) *models.Backup {
	defer p.time(metrics.OpQuery)()
	out := Filter(b, opts)
	p.logger().Debug("filtered conversations",
		"assistant", opts.Assistant,
		"from", opts.Range.From.String(),
		"to", opts.Range.To.String(),
		"kept", len(out.Conversations),
		"total", len(b.Conversations))
	return out
}

// Search runs a text search over b.
func (p *Pipeline) Search(b *models.Backup, query string) []SearchResult {
	defer p.time(metrics.OpQuery)()
	results := Search(b, query)
	p.logger().Debug("search finished", "query", query, "conversations", len(results), "matches", MatchCount(results))
	return results
}

// ExportOptions selects the output of Export.
type ExportOptions struct {
	Format export.Format

	// Output is the destination file; "" means the format's default name
	// in the working directory.
	Output string
}

// Export renders b and writes it to the chosen output, returning the path
// written.
func (p *Pipeline) Export(ctx context.Context, b *models.Backup, opts ExportOptions) (string, error) {
	format := opts.Format
	if format == "" {
		format = export.FormatHTML
	}
	out := opts.Output
	if out == "" {
		out = format.DefaultFilename()
	}

	loc, err := p.Config.Location()
	if err != nil {
		return "", err
	}
	gen, err := export.New(format, export.Options{
		Title:     p.Config.Title,
		Generator: p.generator(),
		CodeStyle: p.Config.CodeStyle,
		Location:  loc,
	})
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := p.write(out, gen, b); err != nil {
		return "", &StageError{Stage: StageExportWrite, Path: out, Err: err}
	}

	abs, err := filepath.Abs(out)
	if err != nil {
		abs = out
	}
	p.logger().Info("export written", "format", format, "path", abs, "conversations", len(b.Conversations))
	return abs, nil
}

func (p *Pipeline) generator() string {
	if p.Version == "" {
		return "rikkaview"
	}
	return fmt.Sprintf("rikkaview %s", p.Version)
}

// write renders b into out. Rendering and file I/O are recorded as
// separate stages; the write stage excludes the render time.
func (p *Pipeline) write(out string, gen export.Generator, b *models.Backup) error {
	tg := &timedGenerator{gen: gen}
	start := time.Now()
	err := export.WriteFile(out, tg, b)
	total := time.Since(start)

	if p.Metrics != nil {
		if tg.ran {
			p.Metrics.RecordTiming(metrics.OpRender, tg.elapsed)
		}
		p.Metrics.RecordTiming(metrics.OpWrite, total-tg.elapsed)
	}
	return err
}

// timedGenerator measures how long the wrapped generator runs.
type timedGenerator struct {
	gen     export.Generator
	ran     bool
	elapsed time.Duration
}

func (g *timedGenerator) Generate(w io.Writer, b *models.Backup) error {
	start := time.Now()
	defer func() {
		g.ran = true
		g.elapsed += time.Since(start)
	}()
	return g.gen.Generate(w, b)
}
