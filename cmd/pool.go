package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/zjrosen/difflens/internal/engine"
	"github.com/zjrosen/difflens/internal/flags"
	"github.com/zjrosen/difflens/internal/log"
	"github.com/zjrosen/difflens/internal/pubsub"
	"github.com/zjrosen/difflens/internal/scrollmap"
	"github.com/zjrosen/difflens/internal/workerpool"
)

// workerFactory hosts the engine in goroutines, or in `difflens worker`
// subprocesses when the process-workers flag is on.
func workerFactory() (workerpool.Factory, error) {
	if !flagRegistry.Enabled(flags.FlagProcessWorkers) {
		return workerpool.LocalFactory(engine.NewRegistry()), nil
	}
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("locating difflens executable: %w", err)
	}
	return workerpool.ProcessFactory(exe, "worker"), nil
}

// newPool creates the engine pool from config. Pool events are logged until
// ctx is done; the caller must Terminate the pool.
func newPool(ctx context.Context) (*workerpool.Pool, error) {
	factory, err := workerFactory()
	if err != nil {
		return nil, err
	}
	p, err := workerpool.New(workerpool.Config{
		Factory:       factory,
		MaxWorkers:    cfg.Pool.MaxWorkers,
		AutoTerminate: cfg.Pool.AutoTerminate,
		SweepInterval: cfg.Pool.SweepInterval,
		Timeout:       cfg.Pool.Timeout,
		MaxQueue:      cfg.Pool.MaxQueue,
	})
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	go pubsub.Listen(ctx, p.Events(ctx), func(ev pubsub.Event[workerpool.Event]) {
		e := ev.Payload
		if e.Err != "" {
			log.Debug(log.CatCLI, "Pool event", "kind", e.Kind, "worker", e.WorkerID, "invocation", e.InvocationID, "error", e.Err)
			return
		}
		log.Debug(log.CatCLI, "Pool event", "kind", e.Kind, "worker", e.WorkerID, "invocation", e.InvocationID)
	})
	return p, nil
}

func newCache() *scrollmap.Cache {
	return scrollmap.NewCache(cfg.ScrollMap.Cache.TTL, !cfg.ScrollMap.Cache.Enabled)
}

// pageSpacing resolves the spacing for in: an explicit flag wins, then a
// non-zero value in the input file, then config.
func pageSpacing(in scrollmap.Input, flagValue float64, flagSet bool) float64 {
	switch {
	case flagSet:
		return flagValue
	case in.PageSpacing != 0:
		return in.PageSpacing
	default:
		return cfg.ScrollMap.PageSpacing
	}
}
