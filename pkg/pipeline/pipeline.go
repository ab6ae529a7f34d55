// Package pipeline runs crawl, chunk and index as one ingest operation.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mikeboe/sitechat/pkg/chunker"
	"github.com/mikeboe/sitechat/pkg/crawler"
	"github.com/mikeboe/sitechat/pkg/embeddings"
	"github.com/mikeboe/sitechat/pkg/indexer"
	"github.com/mikeboe/sitechat/pkg/vectorstore"
)

// Components are the long-lived pieces an ingest run is assembled from.
type Components struct {
	Renderers  crawler.RendererFactory
	Chunker    chunker.Chunker
	Embedder   embeddings.Embedder
	Store      vectorstore.Store
	BatchSize  int
	SkipFailed bool
}

// Options describe one run.
type Options struct {
	BaseURL  string
	MaxPages int
	// CrawlOutput and ChunksFile are written when set.
	CrawlOutput string
	ChunksFile  string
	Logger      *slog.Logger
	// OnUpdate receives the report after every page and every indexing step.
	OnUpdate func(Report)
}

// Report is the running tally of an ingest.
type Report struct {
	Stage  string         `json:"stage"`
	Pages  int            `json:"pages"`
	Failed int            `json:"failed"`
	Chunks int            `json:"chunks"`
	Index  indexer.Result `json:"index"`
}

const (
	StageCrawl = "crawl"
	StageChunk = "chunk"
	StageIndex = "index"
	StageDone  = "done"
)

// Run crawls opts.BaseURL, chunks the pages and indexes the chunks. The
// report is returned even when a stage fails.
func Run(ctx context.Context, c Components, opts Options) (*Report, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	report := &Report{Stage: StageCrawl}
	update := func() {
		if opts.OnUpdate != nil {
			opts.OnUpdate(*report)
		}
	}

	cr := crawler.New(c.Renderers,
		crawler.WithLogger(logger),
		crawler.WithOnPage(func(ev crawler.PageEvent) {
			report.Pages = ev.Visited
			if ev.Err != nil {
				report.Failed++
			}
			update()
		}),
	)
	results, err := cr.Crawl(ctx, opts.BaseURL, opts.MaxPages)
	if err != nil {
		return report, fmt.Errorf("crawl failed: %w", err)
	}
	report.Pages = len(results)
	report.Failed = len(results.Failed())
	if opts.CrawlOutput != "" {
		if err := crawler.WriteResults(opts.CrawlOutput, results); err != nil {
			return report, err
		}
		logger.Info("Saved crawl results", "path", opts.CrawlOutput, "pages", len(results))
	}

	report.Stage = StageChunk
	update()
	chunks, err := chunker.ChunkResults(c.Chunker, results)
	if err != nil {
		return report, err
	}
	report.Chunks = len(chunks)
	if opts.ChunksFile != "" {
		if err := chunker.WriteChunks(opts.ChunksFile, chunks); err != nil {
			return report, err
		}
	}
	logger.Info("Chunked pages", "pages", len(results), "chunks", len(chunks))

	report.Stage = StageIndex
	update()
	ixOpts := []indexer.Option{
		indexer.WithBatchSize(c.BatchSize),
		indexer.WithLogger(logger),
		indexer.WithProgress(func(p indexer.Progress) {
			report.Index.Embedded = p.Embedded
			report.Index.Batches = p.Batches
			report.Index.Upserted = p.Upserted
			update()
		}),
	}
	if c.SkipFailed {
		ixOpts = append(ixOpts, indexer.SkipFailed())
	}
	res, err := indexer.New(c.Embedder, c.Store, ixOpts...).Index(ctx, chunks)
	report.Index = res
	if err != nil {
		return report, fmt.Errorf("indexing failed: %w", err)
	}

	report.Stage = StageDone
	update()
	return report, nil
}
