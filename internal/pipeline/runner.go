package pipeline

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/amishk599/leadradar/internal/model"
)

// RunAll runs every engine, at most concurrency at a time, and returns the
// saved leads in engine order. A failing role is logged and contributes no
// leads; it never stops the others.
func RunAll(ctx context.Context, engines []*Engine, concurrency int, logger *slog.Logger) ([]model.Lead, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	results := make([][]model.Lead, len(engines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, e := range engines {
		g.Go(func() error {
			leads, err := e.Run(gctx)
			if err != nil {
				logger.Warn("role run failed", "role", e.Role().Role, "error", err)
				return nil
			}
			results[i] = leads
			return nil
		})
	}
	_ = g.Wait()

	return slices.Concat(results...), ctx.Err()
}

// Pipeline is the full set of role engines run as one cycle.
type Pipeline struct {
	engines     []*Engine
	concurrency int
	logger      *slog.Logger
}

func New(engines []*Engine, concurrency int, logger *slog.Logger) *Pipeline {
	return &Pipeline{engines: engines, concurrency: concurrency, logger: logger}
}

// Engines returns the engines in run order.
func (p *Pipeline) Engines() []*Engine {
	return p.engines
}

// RunOnce runs every role once and returns all saved leads.
func (p *Pipeline) RunOnce(ctx context.Context) ([]model.Lead, error) {
	return RunAll(ctx, p.engines, p.concurrency, p.logger)
}
