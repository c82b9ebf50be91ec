package services

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terratensor/geohierarchy/internal/app/pipeline"
	"github.com/terratensor/geohierarchy/internal/config"
	"github.com/terratensor/geohierarchy/internal/core/domain"
	"github.com/terratensor/geohierarchy/internal/core/ports"
)

const (
	GazetteerArchive      = "allCountries.zip"
	AlternateNamesArchive = "alternateNamesV2.zip"

	GazetteerFile      = "allCountries.txt"
	AlternateNamesFile = "alternateNamesV2.txt"

	HierarchyDocument  = "hierarchy.json"
	UnparentedDocument = "unparented_cities.json"

	ctxCheckEvery = 100000
)

// Importer runs the whole pipeline once: download, extract, parse, build, write.
type Importer struct {
	cfg       *config.Config
	fetcher   ports.Fetcher
	extractor ports.Extractor
	writers   ports.WriterFactory
	relations ports.RelationRepository
	overrides Overrides
}

// NewImporter wires the pipeline. relations may be nil to skip index publishing.
func NewImporter(cfg *config.Config, fetcher ports.Fetcher, extractor ports.Extractor,
	writers ports.WriterFactory, relations ports.RelationRepository) *Importer {
	return &Importer{
		cfg:       cfg,
		fetcher:   fetcher,
		extractor: extractor,
		writers:   writers,
		relations: relations,
		overrides: DefaultOverrides(),
	}
}

// WithOverrides replaces the built-in name override table.
func (i *Importer) WithOverrides(o Overrides) *Importer {
	i.overrides = o
	return i
}

func (i *Importer) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	if err := i.ensureStorage(); err != nil {
		return nil, err
	}

	archives := []string{GazetteerArchive, AlternateNamesArchive}

	localArchives := make([]string, 0, len(archives))
	for _, name := range archives {
		path, err := i.fetcher.Fetch(ctx, name)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to download %s", name)
		}
		localArchives = append(localArchives, path)
	}

	for _, path := range localArchives {
		files, err := i.extractor.Extract(path)
		if err != nil {
			return nil, eris.Wrapf(err, "failed to extract %s", filepath.Base(path))
		}
		zap.L().Info("archive ready", zap.String("archive", filepath.Base(path)), zap.Int("files", len(files)))
	}

	res, err := i.BuildFromFiles(ctx,
		filepath.Join(i.cfg.DataDir, GazetteerFile),
		filepath.Join(i.cfg.DataDir, AlternateNamesFile),
	)
	if err != nil {
		return nil, err
	}

	if err := i.writeDocuments(res); err != nil {
		return nil, err
	}

	if i.relations != nil {
		if err := i.publish(ctx, res); err != nil {
			return nil, err
		}
	}

	zap.L().Info("all done", zap.Duration("elapsed", time.Since(start)))
	return res, nil
}

func (i *Importer) ensureStorage() error {
	if _, err := os.Stat(i.cfg.DataDir); err == nil {
		zap.L().Debug("storage directory already exists", zap.String("dir", i.cfg.DataDir))
		return nil
	}
	zap.L().Info("creating storage directory", zap.String("dir", i.cfg.DataDir))
	if err := os.MkdirAll(i.cfg.DataDir, 0o755); err != nil {
		return eris.Wrapf(err, "failed to create storage directory %s", i.cfg.DataDir)
	}
	return nil
}

// BuildFromFiles parses both text files and builds the hierarchy. Alternate
// names are always fully loaded before any name is resolved.
func (i *Importer) BuildFromFiles(ctx context.Context, gazetteerPath, alternatesPath string) (*Result, error) {
	names := NewNameResolver(i.overrides).WithNormalization(i.cfg.NormalizeNames)
	builder := NewHierarchyBuilder(names)
	parserCfg := i.parserConfig()

	loadNames := func(ctx context.Context) error {
		return i.loadAlternateNames(ctx, parserCfg, names, alternatesPath)
	}
	loadGazetteer := func(ctx context.Context) error {
		return i.loadGazetteer(ctx, parserCfg, builder, gazetteerPath)
	}

	if i.cfg.ParallelParse {
		// Файлы независимы: резолвер и билдер заполняются разными горутинами
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return loadNames(gctx) })
		g.Go(func() error { return loadGazetteer(gctx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if err := loadNames(ctx); err != nil {
			return nil, err
		}
		if err := loadGazetteer(ctx); err != nil {
			return nil, err
		}
	}

	return builder.Build(), nil
}

// parserConfig returns the configuration handed to the parsers; progress bars
// are off while both files are parsed concurrently.
func (i *Importer) parserConfig() *config.Config {
	if !i.cfg.ParallelParse || !i.cfg.ShowProgress {
		return i.cfg
	}
	zap.L().Info("progress bars disabled for parallel parse")
	c := *i.cfg
	c.ShowProgress = false
	return &c
}

func (i *Importer) loadAlternateNames(ctx context.Context, cfg *config.Config, names *NameResolver, path string) error {
	zap.L().Info("processing alternate names", zap.String("file", filepath.Base(path)))
	start := time.Now()

	parser := pipeline.NewAlternateNameParser(cfg)
	read, kept, err := names.LoadAlternateNames(withContext(ctx, parser.Records(path)))
	if err != nil {
		return eris.Wrapf(err, "failed to process %s", filepath.Base(path))
	}

	zap.L().Info("alternate names loaded",
		zap.Int64("read", read),
		zap.Int64("kept", kept),
		zap.Int("distinct", names.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (i *Importer) loadGazetteer(ctx context.Context, cfg *config.Config, builder *HierarchyBuilder, path string) error {
	zap.L().Info("processing gazetteer", zap.String("file", filepath.Base(path)))
	start := time.Now()

	parser := pipeline.NewGeonameParser(cfg)
	var read int64
	for g, err := range withContext(ctx, parser.Records(path)) {
		if err != nil {
			return eris.Wrapf(err, "failed to process %s", filepath.Base(path))
		}
		read++
		builder.Add(g)
	}

	zap.L().Info("gazetteer loaded",
		zap.Int64("read", read),
		zap.Int("classified", builder.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (i *Importer) writeDocuments(res *Result) error {
	docs := []struct {
		name         string
		tree         *domain.Tree
		relationType string
	}{
		{HierarchyDocument, res.Hierarchy, domain.RelationContains},
		{UnparentedDocument, res.Unparented, domain.RelationUnparented},
	}

	for _, doc := range docs {
		path := filepath.Join(i.cfg.DataDir, doc.name)
		if err := i.writeTree(path, doc.tree, ports.ExportOptions{Format: ports.FormatJSON, Indent: "  "}); err != nil {
			return err
		}
		zap.L().Info("document written", zap.String("path", path), zap.Int("nodes", doc.tree.Len()))

		if i.cfg.ExportCSV {
			csvPath := path[:len(path)-len(filepath.Ext(path))] + ".csv"
			opts := ports.ExportOptions{Format: ports.FormatCSV, IncludeHeader: true, RelationType: doc.relationType}
			if err := i.writeTree(csvPath, doc.tree, opts); err != nil {
				return err
			}
			zap.L().Info("edge list written", zap.String("path", csvPath))
		}
	}

	return nil
}

func (i *Importer) writeTree(path string, tree *domain.Tree, opts ports.ExportOptions) error {
	w, err := i.writers.CreateFileWriter(path, opts)
	if err != nil {
		return eris.Wrapf(err, "failed to create writer for %s", path)
	}
	if err := w.WriteTree(tree); err != nil {
		w.Close()
		return eris.Wrapf(err, "failed to write %s", path)
	}
	if err := w.Close(); err != nil {
		return eris.Wrapf(err, "failed to close %s", path)
	}
	return nil
}

// publish replaces the relation index contents with the edges of both trees.
func (i *Importer) publish(ctx context.Context, res *Result) error {
	zap.L().Info("publishing relations to index")

	if err := i.relations.ResetRelations(ctx); err != nil {
		return eris.Wrap(err, "failed to reset relation index")
	}

	edges := append(res.Hierarchy.Edges(domain.RelationContains), res.Unparented.Edges(domain.RelationUnparented)...)
	batchSize := i.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = len(edges)
	}

	inserted := 0
	for start := 0; start < len(edges); start += batchSize {
		end := min(start+batchSize, len(edges))
		if err := i.relations.InsertBatchRelations(ctx, edges[start:end]); err != nil {
			return eris.Wrapf(err, "failed to insert relations %d-%d", start, end)
		}
		inserted = end
		if (end/batchSize)%100 == 0 {
			zap.L().Info("relations inserted", zap.Int("count", inserted))
		}
	}

	zap.L().Info("relations published", zap.Int("count", inserted))
	return nil
}

// withContext stops seq with ctx.Err() once ctx is cancelled.
func withContext[T any](ctx context.Context, seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var n int
		for v, err := range seq {
			n++
			if n%ctxCheckEvery == 0 {
				if cerr := ctx.Err(); cerr != nil {
					var zero T
					yield(zero, cerr)
					return
				}
			}
			if !yield(v, err) {
				return
			}
		}
	}
}
