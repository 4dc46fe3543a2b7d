package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/trueinf/geosight-new-sub000/internal/model"
	"github.com/trueinf/geosight-new-sub000/internal/pipeline"
	"github.com/trueinf/geosight-new-sub000/internal/store"
)

var (
	batchFile        string
	batchLimit       int
	batchConcurrency int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run every query in a YAML file and save the snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrentQueries = batchConcurrency
		}

		queries, err := loadQueries(batchFile)
		if err != nil {
			return err
		}

		env, err := initSearch(ctx, "batch", true)
		if err != nil {
			return err
		}
		defer env.Close()

		_, err = processBatch(ctx, queries, batchLimit, cfg.Batch.MaxConcurrentQueries, env.Store, env.Fetcher.Search)
		return err
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchFile, "file", "queries.yaml", "YAML file listing {query, target, mode, location} entries")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 100, "max number of queries to process")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "parallel searches (default from config)")
	rootCmd.AddCommand(batchCmd)
}

// queryFile is the batch file layout. A bare top-level list is accepted too.
type queryFile struct {
	Queries []pipeline.Query `yaml:"queries"`
}

// loadQueries reads the batch file at path.
func loadQueries(path string) ([]pipeline.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "batch: read %s", path)
	}

	var list []pipeline.Query
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var f queryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "batch: parse %s", path)
	}
	return f.Queries, nil
}

// searchFunc is the callback signature for running one search.
type searchFunc func(ctx context.Context, q pipeline.Query) (*model.Snapshot, error)

type batchSummary struct {
	Succeeded int64
	Failed    int64
}

// processBatch applies limit, then runs queries concurrently. Successful
// results are saved to st when it is non-nil. A failed query is logged and
// counted but never aborts the batch.
func processBatch(ctx context.Context, queries []pipeline.Query, limit, concurrency int, st store.Store, search searchFunc) (batchSummary, error) {
	if len(queries) == 0 {
		zap.L().Info("no queries found")
		return batchSummary{}, nil
	}

	if limit > 0 && len(queries) > limit {
		queries = queries[:limit]
	}
	concurrency = max(concurrency, 1)

	zap.L().Info("processing batch",
		zap.Int("queries", len(queries)),
		zap.Int("concurrency", concurrency),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var succeeded, failed atomic.Int64

	for _, q := range queries {
		g.Go(func() error {
			log := zap.L().With(zap.String("query", q.Text), zap.String("target", q.Target))

			snap, err := search(gctx, q)
			if err != nil {
				failed.Add(1)
				log.Error("search failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			if st != nil {
				if err := st.SaveSnapshot(gctx, snap); err != nil {
					failed.Add(1)
					log.Error("save snapshot failed", zap.Error(err))
					return nil
				}
			}

			succeeded.Add(1)
			fields := []zap.Field{
				zap.String("snapshot", snap.ID),
				zap.Int("provider_errors", len(snap.Result.Errors)),
			}
			if snap.Analysis != nil {
				fields = append(fields, zap.Float64("visibility", snap.Analysis.VisibilityScore))
			}
			log.Info("search complete", fields...)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return batchSummary{}, eris.Wrap(err, "batch processing")
	}

	sum := batchSummary{Succeeded: succeeded.Load(), Failed: failed.Load()}
	zap.L().Info("batch complete",
		zap.Int64("succeeded", sum.Succeeded),
		zap.Int64("failed", sum.Failed),
	)
	return sum, nil
}
