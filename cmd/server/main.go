// Package main provides the entry point for the research assistant server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pharmalens/research-assistant/internal/config"
	"github.com/pharmalens/research-assistant/internal/llm"
	"github.com/pharmalens/research-assistant/internal/memory"
	"github.com/pharmalens/research-assistant/internal/notify"
	"github.com/pharmalens/research-assistant/internal/observability"
	"github.com/pharmalens/research-assistant/internal/research"
	httpserver "github.com/pharmalens/research-assistant/internal/server/http"
	"github.com/pharmalens/research-assistant/internal/sources/clinicaltrials"
	"github.com/pharmalens/research-assistant/internal/sources/europepmc"
	"github.com/pharmalens/research-assistant/internal/sources/pubmed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("research-assistant server starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	// Source adapters.
	pubmedClient := pubmed.New(pubmed.Config{
		BaseURL:    cfg.Sources.PubMed.BaseURL,
		APIKey:     cfg.Sources.PubMed.APIKey,
		Timeout:    cfg.Sources.PubMed.Timeout,
		RateLimit:  cfg.Sources.PubMed.RateLimit,
		MaxResults: cfg.Sources.PubMed.MaxResults,
	})
	europePMCClient := europepmc.New(europepmc.Config{
		BaseURL:    cfg.Sources.EuropePMC.BaseURL,
		Timeout:    cfg.Sources.EuropePMC.Timeout,
		RateLimit:  cfg.Sources.EuropePMC.RateLimit,
		MaxResults: cfg.Sources.EuropePMC.MaxResults,
	})
	trialsClient := clinicaltrials.New(clinicaltrials.Config{
		BaseURL:    cfg.Sources.ClinicalTrials.BaseURL,
		Timeout:    cfg.Sources.ClinicalTrials.Timeout,
		RateLimit:  cfg.Sources.ClinicalTrials.RateLimit,
		MaxResults: cfg.Sources.ClinicalTrials.MaxResults,
		Window:     time.Duration(cfg.Pipeline.TrialWindowDays) * 24 * time.Hour,
	})

	// Summarizer.
	summarizer, err := llm.NewSummarizer(llm.FactoryConfig{
		Provider:    cfg.LLM.Provider,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
		MaxRetries:  cfg.LLM.MaxRetries,
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.LLM.OpenAI.APIKey,
			Model:   cfg.LLM.OpenAI.Model,
			BaseURL: cfg.LLM.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.LLM.Anthropic.APIKey,
			Model:   cfg.LLM.Anthropic.Model,
			BaseURL: cfg.LLM.Anthropic.BaseURL,
		},
	})
	if err != nil {
		return fmt.Errorf("create summarizer: %w", err)
	}
	if cfg.LLM.BreakerEnabled {
		summarizer = llm.NewBreakerSummarizer(summarizer, llm.DefaultBreakerConfig(), logger)
	}

	// Conversation memory.
	var store memory.Store
	if cfg.Qdrant.Enabled {
		embedder := llm.NewOpenAIEmbedder(cfg.LLM.OpenAI.APIKey, cfg.LLM.EmbeddingModel, cfg.LLM.OpenAI.BaseURL, cfg.LLM.Timeout)
		qdrantStore, err := memory.NewQdrantStore(memory.Config{
			Address:        cfg.Qdrant.Address,
			CollectionName: cfg.Qdrant.CollectionName,
			VectorSize:     cfg.Qdrant.VectorSize,
		}, embedder)
		if err != nil {
			return fmt.Errorf("create memory store: %w", err)
		}
		defer func() {
			if closeErr := qdrantStore.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close memory store")
			}
		}()
		store = qdrantStore
		logger.Info().Str("address", cfg.Qdrant.Address).Msg("conversation memory enabled")
	}

	// Notification channel.
	notifier, err := notify.NewNotifier(notify.FactoryConfig{
		Channel: cfg.Notification.Channel,
		Timeout: cfg.Notification.Timeout,
		Slack: notify.SlackConfig{
			BotToken: cfg.Notification.Slack.BotToken,
			UserID:   cfg.Notification.Slack.UserID,
		},
		Gmail: notify.GmailConfig{
			AccessToken: cfg.Notification.Gmail.AccessToken,
			Recipient:   cfg.Notification.Gmail.Recipient,
			Subject:     cfg.Notification.Gmail.Subject,
		},
	})
	if err != nil {
		return fmt.Errorf("create notifier: %w", err)
	}
	logger.Info().Str("channel", notifier.Channel()).Msg("notification channel configured")

	// Research pipeline.
	service := research.NewService(
		research.ServiceConfig{
			PubMedMaxResults:    cfg.Sources.PubMed.MaxResults,
			EuropePMCMaxResults: cfg.Sources.EuropePMC.MaxResults,
			TrialsMaxResults:    cfg.Sources.ClinicalTrials.MaxResults,
			LookbackDays:        cfg.Pipeline.LookbackDays,
			FetchTimeout:        cfg.Pipeline.FetchTimeout,
			BackgroundTimeout:   cfg.Pipeline.BackgroundTimeout,
			ArtifactPath:        cfg.Pipeline.ArtifactPath,
		},
		pubmedClient,
		europePMCClient,
		trialsClient,
		summarizer,
		store,
		notifier,
		metrics,
		logger,
	)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, service, logger)

	// Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("research-assistant is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down research-assistant")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	// Let fire-and-forget memory and notification work drain.
	done := make(chan struct{})
	go func() {
		service.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn().Msg("background work did not drain before shutdown deadline")
	}

	logger.Info().Msg("research-assistant shutdown complete")
	return nil
}
