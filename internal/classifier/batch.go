// Package classifier implements the LLM classification stages: public safety
// triage, fixed categories, entity extraction and context relevance.
package classifier

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMaxWorkers bounds the batch fan-out.
	DefaultMaxWorkers = 10

	// defaultProgressInterval controls how often batch progress is logged.
	defaultProgressInterval = 50

	// threadingThreshold is the batch size below which parallelism is not
	// worth the overhead and records are processed sequentially.
	threadingThreshold = 10
)

// BatchOptions controls how a batch of records is processed.
type BatchOptions struct {
	UseThreading     bool
	MaxWorkers       int
	ProgressInterval int
}

func (o BatchOptions) withDefaults() BatchOptions {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = defaultProgressInterval
	}
	return o
}

// mapBatch applies fn to every item, in order. With threading enabled and
// more than threadingThreshold items, items are processed by a bounded worker
// group; results land at the item's index either way, so output order always
// matches input order. fn must not panic; per-item errors are expected to be
// encoded in the result value.
func mapBatch[In, Out any](ctx context.Context, stage string, items []In, opts BatchOptions, fn func(context.Context, In) Out) []Out {
	if len(items) == 0 {
		log.Printf("%s: empty batch, nothing to classify", stage)
		return nil
	}

	opts = opts.withDefaults()
	log.Printf("%s: classifying %d records (threading=%t, workers=%d)",
		stage, len(items), opts.UseThreading, opts.MaxWorkers)

	results := make([]Out, len(items))

	if !opts.UseThreading || len(items) <= threadingThreshold {
		for i, item := range items {
			if i > 0 && i%opts.ProgressInterval == 0 {
				log.Printf("%s: processing item %d/%d (%.1f%%)",
					stage, i, len(items), float64(i)/float64(len(items))*100)
			}
			results[i] = fn(ctx, item)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.MaxWorkers)
		for i, item := range items {
			g.Go(func() error {
				results[i] = fn(gctx, item)
				return nil
			})
		}
		// Workers never return errors; failures are encoded per result.
		g.Wait()
	}

	log.Printf("%s: classification completed, %d records processed", stage, len(items))
	return results
}
