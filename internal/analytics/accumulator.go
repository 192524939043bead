package analytics

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/adetunji-o/relaypay/internal/telemetry"
)

// BucketRow is one per-bucket partial aggregate produced by a metric query.
type BucketRow[R any] struct {
	ID  MetricsBucketIdentifier
	Row R
}

// Merger is implemented by metric row types; Merge fills only the receiver's
// nil fields from the incoming row.
type Merger[R any] interface {
	Merge(in R) R
}

type taskResult[R any] struct {
	metric MetricType
	rows   []BucketRow[R]
}

// Accumulate fans one query task out per requested metric type and folds the
// results, as they complete, into a bucket-keyed map. Worker tasks only
// produce values; the accumulating map is owned and mutated solely by this
// (the awaiting) goroutine, so no lock is needed. Any task failure aborts
// the whole computation and already-merged partial results are discarded.
func Accumulate[R Merger[R]](
	ctx context.Context,
	logger *slog.Logger,
	metrics *telemetry.Metrics,
	sourceName string,
	req MetricsRequest,
	run func(ctx context.Context, metric MetricType) ([]BucketRow[R], error),
) ([]BucketRow[R], error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	g, ctx := errgroup.WithContext(ctx)
	results := make(chan taskResult[R], len(req.Metrics))

	for _, metric := range req.Metrics {
		g.Go(func() error {
			rows, err := run(ctx, metric)
			if err != nil {
				return err
			}
			select {
			case results <- taskResult[R]{metric: metric, rows: rows}:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}

	go func() {
		// Close once every worker is done so the merge loop below drains
		// exactly the completed tasks.
		_ = g.Wait()
		close(results)
	}()

	type entry struct {
		id  MetricsBucketIdentifier
		row R
	}
	merged := make(map[uint64]*entry)

	for res := range results {
		metrics.BucketsFetched.
			WithLabelValues(string(res.metric), sourceName).
			Add(float64(len(res.rows)))
		logger.Debug("metric buckets fetched",
			"metric_type", res.metric,
			"source", sourceName,
			"buckets", len(res.rows))

		for _, br := range res.rows {
			br.ID.TimeBucket = normalizeTimeBucket(br.ID.TimeBucket, req.Granularity, req.TimeRange)
			key := br.ID.Hash()
			if existing, ok := merged[key]; ok {
				existing.row = existing.row.Merge(br.Row)
			} else {
				merged[key] = &entry{id: br.ID, row: br.Row}
			}
		}
	}

	if err := g.Wait(); err != nil {
		return nil, NewQueryExecutionFailure(err)
	}

	out := make([]BucketRow[R], 0, len(merged))
	for _, e := range merged {
		out = append(out, BucketRow[R]{ID: e.id, Row: e.row})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ID, out[j].ID
		if !a.TimeBucket.Start.Equal(b.TimeBucket.Start) {
			return a.TimeBucket.Start.Before(b.TimeBucket.Start)
		}
		return a.canonical() < b.canonical()
	})

	return out, nil
}
