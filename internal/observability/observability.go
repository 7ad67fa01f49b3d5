package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/riskibarqy/matchboard/internal/config"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
)

// Runtime holds every started observability hook so they can be stopped together.
type Runtime struct {
	logger       *logging.Logger
	pprofServer  *http.Server
	stopUptrace  func(context.Context) error
	stopProfiler func() error
}

// Start brings up tracing, profiling and the pprof server. Hooks that were
// already started are stopped again when a later one fails.
func Start(cfg config.Config, logger *logging.Logger) (*Runtime, error) {
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{logger: logger}

	stopUptrace, err := InitUptrace(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("init uptrace: %w", err)
	}
	rt.stopUptrace = stopUptrace

	stopProfiler, err := InitPyroscope(cfg, logger)
	if err != nil {
		_ = rt.Shutdown(context.Background())
		return nil, fmt.Errorf("init pyroscope: %w", err)
	}
	rt.stopProfiler = stopProfiler

	pprofServer, err := StartPprofServer(cfg, logger)
	if err != nil {
		_ = rt.Shutdown(context.Background())
		return nil, fmt.Errorf("start pprof server: %w", err)
	}
	rt.pprofServer = pprofServer

	return rt, nil
}

// Shutdown stops all hooks concurrently and joins their errors.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r == nil {
		return nil
	}

	p := pool.New().WithErrors()
	if r.stopUptrace != nil {
		p.Go(func() error {
			if err := r.stopUptrace(ctx); err != nil {
				return fmt.Errorf("shutdown uptrace: %w", err)
			}
			return nil
		})
	}
	if r.stopProfiler != nil {
		p.Go(func() error {
			if err := r.stopProfiler(); err != nil {
				return fmt.Errorf("stop pyroscope: %w", err)
			}
			return nil
		})
	}
	if r.pprofServer != nil {
		p.Go(func() error {
			if err := StopPprofServer(ctx, r.pprofServer, r.logger); err != nil {
				return fmt.Errorf("stop pprof server: %w", err)
			}
			return nil
		})
	}
	return p.Wait()
}
