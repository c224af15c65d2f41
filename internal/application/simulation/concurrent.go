package simulation

// concurrent.go: fan-out por escenario.
//
// Cada escenario se simula en su propia goroutine y escribe en su índice del
// slice de salida, así el orden del resultado es el de generación sin importar
// qué worker termine primero.

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// forEachScenario runs fn(ctx, i) for i in [0,n) on at most workers
// goroutines. The first error cancels the rest and is returned.
//
// Si workers <= 0 usa runtime.NumCPU().
func forEachScenario(ctx context.Context, name string, n, workers int, fn func(ctx context.Context, i int) error) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	start := time.Now()

	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			return fn(ectx, i)
		})
	}
	err := eg.Wait()

	slog.Debug("scenario fan-out complete",
		"stage", name,
		"scenarios", n,
		"workers", workers,
		"elapsed", time.Since(start),
		"err", err,
	)
	return err
}
