package parser

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/huangsam/indexhist/internal/contract"
	"github.com/huangsam/indexhist/schema"
)

// SaveAll runs SaveToDB for every parser with at most workers in flight.
// Results keep the order of parsers. The first failure cancels the remaining saves and is returned.
func SaveAll(ctx context.Context, parsers []contract.IndexParser, last, workers int) ([]schema.SaveResult, error) {
	if workers <= 0 {
		workers = contract.DefaultWorkers
	}

	results := make([]schema.SaveResult, len(parsers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, p := range parsers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := p.SaveToDB(gctx, last)
			if err != nil {
				return fmt.Errorf("save %s: %w", describe(p, i), err)
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

func describe(p contract.IndexParser, i int) string {
	if k, ok := p.(interface{ Key() schema.SeriesKey }); ok {
		return k.Key().Unit()
	}
	return fmt.Sprintf("parser %d", i)
}
