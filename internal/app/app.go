package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/matchboard/external/feedrelay"
	"github.com/riskibarqy/matchboard/external/gemini"
	"github.com/riskibarqy/matchboard/internal/config"
	"github.com/riskibarqy/matchboard/internal/domain/analysis"
	"github.com/riskibarqy/matchboard/internal/interfaces/httpapi"
	"github.com/riskibarqy/matchboard/internal/platform/id"
	"github.com/riskibarqy/matchboard/internal/platform/logging"
	"github.com/riskibarqy/matchboard/internal/usecase"
)

// Services are the use cases shared by the HTTP server and the CLI tools.
type Services struct {
	Feed      *usecase.FeedService
	Summaries *usecase.SummaryService
}

func NewServices(cfg config.Config, logger *logging.Logger) (Services, error) {
	if logger == nil {
		logger = logging.Default()
	}

	relay, err := feedrelay.NewClient(feedrelay.ClientConfig{
		RelayURL:       cfg.FeedRelayURL,
		SourceURL:      cfg.FeedSourceURL,
		Timeout:        cfg.FeedTimeout,
		Logger:         logger,
		CircuitBreaker: cfg.FeedCircuit,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build feed relay client: %w", err)
	}

	// A nil generator makes every summary request fail with the fixed message.
	var generator analysis.Generator
	if cfg.SummariesEnabled() {
		generator = gemini.NewClient(gemini.ClientConfig{
			BaseURL:        cfg.GeminiBaseURL,
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.GeminiModel,
			Timeout:        cfg.GeminiTimeout,
			Logger:         logger,
			CircuitBreaker: cfg.GeminiCircuit,
		})
	} else {
		logger.Warn("gemini api key missing; match summaries are disabled")
	}

	feed := usecase.NewFeedService(relay, cfg.FeedCacheTTL, logger)
	return Services{
		Feed:      feed,
		Summaries: usecase.NewSummaryService(feed, generator, logger),
	}, nil
}

type App struct {
	cfg      config.Config
	logger   *logging.Logger
	services Services
	server   *http.Server
}

func New(cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	services, err := NewServices(cfg, logger)
	if err != nil {
		return nil, err
	}

	handler := httpapi.NewHandler(services.Feed, services.Summaries, logger)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		ServiceName:        cfg.ServiceName,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		IDGenerator:        id.NewUUIDGenerator(),
	})

	return &App{
		cfg:      cfg,
		logger:   logger,
		services: services,
		server: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           router,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
	}, nil
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Services() Services {
	return a.services
}

// Run serves HTTP until ctx is cancelled and then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	if a.cfg.FeedLoadOnStart {
		go a.warmFeed(ctx)
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.cfg.HTTPAddr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	a.logger.Info("http server stopped")
	return nil
}

func (a *App) warmFeed(ctx context.Context) {
	status, err := a.services.Feed.Load(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "initial feed load failed", "error", err)
		return
	}
	a.logger.InfoContext(ctx, "initial feed load finished", "matches", status.MatchCount)
}
