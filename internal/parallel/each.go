package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Each calls fn for every item, running at most limit calls at once, and
// returns the error of every call at the index of its item. A failing call
// does not stop the others. Items not started before ctx is done get ctx.Err().
//
//	errs := parallel.Each(ctx, 4, uploaders, upload)
func Each[E any](ctx context.Context, limit int, items []E, fn func(context.Context, E) error) []error {
	errs := make([]error, len(items))
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		g.Go(func() error {
			errs[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return errs
}
