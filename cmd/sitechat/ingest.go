package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mikeboe/sitechat/pkg/chunker"
	"github.com/mikeboe/sitechat/pkg/config"
	"github.com/mikeboe/sitechat/pkg/crawler"
	"github.com/mikeboe/sitechat/pkg/indexer"
	"github.com/mikeboe/sitechat/pkg/pipeline"
)

func printPage(ev crawler.PageEvent) {
	status := "ok"
	if ev.Err != nil {
		status = "failed"
	}
	fmt.Printf("[%d/%d] %s (%s, %d links)\n", ev.Visited, ev.MaxPages, ev.URL, status, ev.Links)
}

func newCrawlCmd(cfg *config.Config) *cobra.Command {
	var (
		baseURL  string
		maxPages int
		out      string
		renderer string
	)
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a website and save the text of every page",
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := crawler.FactoryFor(renderer, cfg.SettleDelay, slog.Default())
			if err != nil {
				return err
			}

			cr := crawler.New(factory, crawler.WithOnPage(printPage))
			results, crawlErr := cr.Crawl(cmd.Context(), baseURL, maxPages)
			// Interrupted crawls still save what they have.
			if len(results) > 0 {
				if err := crawler.WriteResults(out, results); err != nil {
					return err
				}
				slog.Info("Saved crawl results", "path", out, "pages", len(results), "failed", len(results.Failed()))
			}
			return crawlErr
		},
	}
	cmd.Flags().StringVarP(&baseURL, "url", "u", "", "The website to crawl")
	cmd.Flags().IntVarP(&maxPages, "max-pages", "m", cfg.MaxPages, "Maximum number of pages to visit")
	cmd.Flags().StringVarP(&out, "out", "o", cfg.CrawlOutput, "Where to write the crawl results")
	cmd.Flags().StringVar(&renderer, "renderer", cfg.Renderer, "Page renderer: chrome or static")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func newChunkCmd(cfg *config.Config) *cobra.Command {
	var (
		in       string
		out      string
		strategy string
	)
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split crawl results into overlapping chunks",
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := crawler.ReadResults(in)
			if err != nil {
				return err
			}
			c, err := chunker.New(strategy, cfg.ChunkSize, cfg.ChunkOverlap)
			if err != nil {
				return err
			}
			chunks, err := chunker.ChunkResults(c, results)
			if err != nil {
				return err
			}
			if err := chunker.WriteChunks(out, chunks); err != nil {
				return err
			}
			fmt.Printf("%d pages -> %d chunks written to %s\n", len(results), len(chunks), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", cfg.CrawlOutput, "Crawl results to read")
	cmd.Flags().StringVarP(&out, "out", "o", cfg.ChunksFile, "Where to write the chunks")
	cmd.Flags().StringVar(&strategy, "strategy", cfg.ChunkStrategy, "Chunking strategy: window or recursive")
	return cmd
}

func newIndexCmd(cfg *config.Config) *cobra.Command {
	var (
		in         string
		skipFailed bool
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed chunks and upsert them into the vector store",
		RunE: func(cmd *cobra.Command, args []string) error {
			chunks, err := chunker.ReadChunks(in)
			if err != nil {
				return err
			}

			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			opts := []indexer.Option{
				indexer.WithBatchSize(cfg.BatchSize),
				indexer.WithProgress(func(p indexer.Progress) {
					fmt.Printf("\rEmbedded %d/%d chunks, upserted %d", p.Embedded, p.Total, p.Upserted)
				}),
			}
			if skipFailed {
				opts = append(opts, indexer.SkipFailed())
			}
			res, err := indexer.New(b.embedder, b.store, opts...).Index(cmd.Context(), chunks)
			fmt.Println()
			if err != nil {
				return err
			}
			fmt.Printf("Indexed %d chunks into %s (%s), %d skipped, %d failed\n",
				res.Upserted, cfg.IndexName, cfg.VectorStore, res.Skipped, len(res.Failed))
			return nil
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", cfg.ChunksFile, "Chunks file to index")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "Skip chunks whose embedding fails instead of aborting")
	return cmd
}

func newIngestCmd(cfg *config.Config) *cobra.Command {
	var (
		baseURL    string
		maxPages   int
		renderer   string
		skipFailed bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Crawl, chunk and index a website in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			factory, err := crawler.FactoryFor(renderer, cfg.SettleDelay, slog.Default())
			if err != nil {
				return err
			}
			c, err := chunker.New(cfg.ChunkStrategy, cfg.ChunkSize, cfg.ChunkOverlap)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer b.Close()

			report, err := pipeline.Run(cmd.Context(), pipeline.Components{
				Renderers:  factory,
				Chunker:    c,
				Embedder:   b.embedder,
				Store:      b.store,
				BatchSize:  cfg.BatchSize,
				SkipFailed: skipFailed,
			}, pipeline.Options{
				BaseURL:     baseURL,
				MaxPages:    maxPages,
				CrawlOutput: cfg.CrawlOutput,
				ChunksFile:  cfg.ChunksFile,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %s: %d pages (%d failed), %d chunks, %d upserted\n",
				baseURL, report.Pages, report.Failed, report.Chunks, report.Index.Upserted)
			return nil
		},
	}
	cmd.Flags().StringVarP(&baseURL, "url", "u", "", "The website to ingest")
	cmd.Flags().IntVarP(&maxPages, "max-pages", "m", cfg.MaxPages, "Maximum number of pages to visit")
	cmd.Flags().StringVar(&renderer, "renderer", cfg.Renderer, "Page renderer: chrome or static")
	cmd.Flags().BoolVar(&skipFailed, "skip-failed", false, "Skip chunks whose embedding fails instead of aborting")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}
