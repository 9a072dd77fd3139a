package annealing

import (
	"context"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sarchlab/meshplace/placement"
)

// RunParallel performs independent searches from copies of the initial state.
// Run i draws its random numbers from a PCG source seeded with (seed, i), so
// the results only depend on the seed. Hooks attached to the builder are
// shared by every run and must be safe for concurrent use.
//
// The results are ordered by run. The index of the lowest cost result is
// returned alongside; ties go to the lower run.
func RunParallel(
	ctx context.Context,
	b Builder,
	initial *placement.State,
	runs int,
	seed uint64,
) ([]Result, int, error) {
	if runs <= 0 {
		panic("at least one run is required")
	}

	results := make([]Result, runs)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < runs; i++ {
		r := rand.New(rand.NewPCG(seed, uint64(i)))
		state := initial.Clone()
		state.UseRandomSource(r)
		a := b.WithRun(i).WithRandomSource(r).Build(state)

		g.Go(func() error {
			res, err := a.Run(ctx)
			results[i] = res

			return err
		})
	}

	err := g.Wait()

	return results, bestOf(results), err
}

func bestOf(results []Result) int {
	best := 0

	for i, r := range results {
		if r.State == nil {
			continue
		}

		if results[best].State == nil || r.Best.Total < results[best].Best.Total {
			best = i
		}
	}

	return best
}
