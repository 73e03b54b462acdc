package feeds

import (
	"context"
	"sync"

	"priceconverter/oracle/common"
)

// Fetcher reads one feed.
type Fetcher interface {
	Fetch(ctx context.Context, spec common.QuerySpec) (RoundData, error)
}

// Reading is the outcome of one feed read inside a snapshot.
type Reading struct {
	Spec  common.QuerySpec
	Round RoundData
	Err   error
}

// Snapshot reads every spec concurrently and returns the readings in the
// order of specs. A failed read never cancels the others.
func Snapshot(ctx context.Context, fetcher Fetcher, specs []common.QuerySpec) []Reading {
	type indexed struct {
		i int
		r Reading
	}

	var wg sync.WaitGroup
	resultsChan := make(chan indexed, len(specs))

	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec common.QuerySpec) {
			defer wg.Done()
			round, err := fetcher.Fetch(ctx, spec)
			resultsChan <- indexed{i: i, r: Reading{Spec: spec, Round: round, Err: err}}
		}(i, spec)
	}

	// Close the channel once all fetchers are done
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	readings := make([]Reading, len(specs))
	for res := range resultsChan {
		readings[res.i] = res.r
	}
	return readings
}
