package research

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pharmalens/research-assistant/internal/domain"
	"github.com/pharmalens/research-assistant/internal/llm"
	"github.com/pharmalens/research-assistant/internal/memory"
	"github.com/pharmalens/research-assistant/internal/notify"
	"github.com/pharmalens/research-assistant/internal/observability"
	"github.com/pharmalens/research-assistant/internal/sources"
)

// ServiceConfig holds the tunable parameters of the pipeline.
type ServiceConfig struct {
	// PubMedMaxResults caps how many PubMed records are fetched per request.
	PubMedMaxResults int
	// EuropePMCMaxResults caps how many Europe PMC records are fetched per request.
	EuropePMCMaxResults int
	// TrialsMaxResults caps how many trial records are fetched per request.
	TrialsMaxResults int
	// LookbackDays restricts literature to the trailing N days.
	LookbackDays int
	// FetchTimeout bounds each individual source fetch.
	FetchTimeout time.Duration
	// BackgroundTimeout bounds the fire-and-forget memory and
	// notification work after the response is ready.
	BackgroundTimeout time.Duration
	// ArtifactPath is the local file the summary is written to.
	// Empty disables the artifact.
	ArtifactPath string
}

// applyDefaults fills in zero values with production defaults.
func (c *ServiceConfig) applyDefaults() {
	if c.PubMedMaxResults == 0 {
		c.PubMedMaxResults = 200
	}
	if c.EuropePMCMaxResults == 0 {
		c.EuropePMCMaxResults = 200
	}
	if c.TrialsMaxResults == 0 {
		c.TrialsMaxResults = 100
	}
	if c.LookbackDays == 0 {
		c.LookbackDays = 30
	}
	if c.FetchTimeout == 0 {
		c.FetchTimeout = 30 * time.Second
	}
	if c.BackgroundTimeout == 0 {
		c.BackgroundTimeout = 30 * time.Second
	}
}

// Service runs the research pipeline for one chat request.
type Service struct {
	cfg        ServiceConfig
	pubmed     sources.ArticleSource
	europePMC  sources.ArticleSource
	trials     sources.TrialSource
	summarizer llm.Summarizer
	store      memory.Store
	notifier   notify.Notifier
	metrics    *observability.Metrics
	logger     zerolog.Logger

	// background tracks fire-and-forget goroutines so tests and
	// shutdown can wait for them.
	background sync.WaitGroup
}

// NewService wires the pipeline together. The memory store and
// notifier may be nil when those stages are disabled.
func NewService(
	cfg ServiceConfig,
	pubmed sources.ArticleSource,
	europePMC sources.ArticleSource,
	trials sources.TrialSource,
	summarizer llm.Summarizer,
	store memory.Store,
	notifier notify.Notifier,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Service {
	cfg.applyDefaults()
	return &Service{
		cfg:        cfg,
		pubmed:     pubmed,
		europePMC:  europePMC,
		trials:     trials,
		summarizer: summarizer,
		store:      store,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
	}
}

// Respond executes the full pipeline for one query: fetch, filter,
// summarize, persist, notify. Source failures degrade to empty inputs;
// a summarizer failure fails the request.
func (s *Service) Respond(ctx context.Context, query domain.Query) (*domain.SummaryResult, error) {
	start := time.Now()
	s.metrics.ChatRequestsStarted.Inc()

	if err := query.Validate(); err != nil {
		s.metrics.ChatRequestsFailed.Inc()
		return nil, err
	}

	conversationID := query.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	term := query.Term

	logger := observability.WithChatContext(s.logger, observability.RequestIDFromContext(ctx), conversationID)
	logger.Info().Str("term", term).Msg("chat request started")

	pubmedArticles, europePMCArticles, trials := s.fetchAll(ctx, term, logger)

	relevant := Filter(term, pubmedArticles)
	s.metrics.ArticlesFiltered.Add(float64(len(relevant)))
	s.metrics.ArticlesDiscarded.Add(float64(len(pubmedArticles) - len(relevant)))
	logger.Info().
		Int("pubmed_fetched", len(pubmedArticles)).
		Int("europepmc_fetched", len(europePMCArticles)).
		Int("trials_fetched", len(trials)).
		Int("relevant", len(relevant)).
		Msg("sources fetched and filtered")

	prompt := BuildPrompt(relevant, trials)

	summary, err := s.summarize(ctx, prompt)
	if err != nil {
		s.metrics.ChatRequestsFailed.Inc()
		logger.Error().Err(err).Msg("summary generation failed")
		return nil, domain.NewGenerationError(s.summarizer.Provider(), err)
	}

	s.writeArtifact(summary, logger)
	s.storeAndNotify(conversationID, term, summary, logger)

	s.metrics.ChatRequestsCompleted.Inc()
	s.metrics.ChatDuration.Observe(time.Since(start).Seconds())
	logger.Info().Dur("duration", time.Since(start)).Msg("chat request completed")

	return &domain.SummaryResult{
		Text:           summary,
		ConversationID: conversationID,
	}, nil
}

// Wait blocks until all fire-and-forget work has finished. Used during
// graceful shutdown and in tests.
func (s *Service) Wait() {
	s.background.Wait()
}

// fetchAll queries the three sources concurrently. Each source is an
// independent failure domain: an error is logged and counted, and the
// slot stays empty.
func (s *Service) fetchAll(ctx context.Context, term string, logger zerolog.Logger) ([]domain.Article, []domain.Article, []domain.Trial) {
	var (
		wg                sync.WaitGroup
		pubmedArticles    []domain.Article
		europePMCArticles []domain.Article
		trialRecords      []domain.Trial
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		pubmedArticles = fetchArticles(ctx, s.pubmed, sources.SearchParams{
			Term:         term,
			MaxResults:   s.cfg.PubMedMaxResults,
			LookbackDays: s.cfg.LookbackDays,
		}, s.cfg.FetchTimeout, s.metrics, logger)
	}()
	go func() {
		defer wg.Done()
		europePMCArticles = fetchArticles(ctx, s.europePMC, sources.SearchParams{
			Term:         term,
			MaxResults:   s.cfg.EuropePMCMaxResults,
			LookbackDays: s.cfg.LookbackDays,
		}, s.cfg.FetchTimeout, s.metrics, logger)
	}()
	go func() {
		defer wg.Done()
		trialRecords = fetchTrials(ctx, s.trials, sources.SearchParams{
			Term:       term,
			MaxResults: s.cfg.TrialsMaxResults,
		}, s.cfg.FetchTimeout, s.metrics, logger)
	}()
	wg.Wait()

	return pubmedArticles, europePMCArticles, trialRecords
}

// fetchArticles runs one article source fetch with a bounded timeout,
// converting failure into an empty result.
func fetchArticles(ctx context.Context, src sources.ArticleSource, params sources.SearchParams, timeout time.Duration, metrics *observability.Metrics, logger zerolog.Logger) []domain.Article {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	metrics.SourceRequestsTotal.WithLabelValues(src.Name()).Inc()

	articles, err := src.Search(fetchCtx, params)
	metrics.SourceRequestDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceRequestsFailed.WithLabelValues(src.Name()).Inc()
		logger.Warn().Err(err).Str("source", src.Name()).Msg("article fetch failed, continuing with empty result")
		return nil
	}

	metrics.ResultsPerSource.WithLabelValues(src.Name()).Observe(float64(len(articles)))
	return articles
}

// fetchTrials mirrors fetchArticles for the trial registry.
func fetchTrials(ctx context.Context, src sources.TrialSource, params sources.SearchParams, timeout time.Duration, metrics *observability.Metrics, logger zerolog.Logger) []domain.Trial {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	metrics.SourceRequestsTotal.WithLabelValues(src.Name()).Inc()

	trials, err := src.Search(fetchCtx, params)
	metrics.SourceRequestDuration.WithLabelValues(src.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.SourceRequestsFailed.WithLabelValues(src.Name()).Inc()
		logger.Warn().Err(err).Str("source", src.Name()).Msg("trial fetch failed, continuing with empty result")
		return nil
	}

	metrics.ResultsPerSource.WithLabelValues(src.Name()).Observe(float64(len(trials)))
	return trials
}

// summarize calls the LLM with timing and failure metrics.
func (s *Service) summarize(ctx context.Context, prompt Prompt) (string, error) {
	provider := s.summarizer.Provider()
	model := s.summarizer.Model()

	start := time.Now()
	s.metrics.LLMRequestsTotal.WithLabelValues(provider, model).Inc()

	summary, err := s.summarizer.Summarize(ctx, prompt.System, prompt.User)
	s.metrics.LLMRequestDuration.WithLabelValues(provider, model).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.LLMRequestsFailed.WithLabelValues(provider, model).Inc()
		return "", err
	}

	return summary, nil
}

// writeArtifact overwrites the local artifact file with the summary.
// Failure is logged, never propagated.
func (s *Service) writeArtifact(summary string, logger zerolog.Logger) {
	if s.cfg.ArtifactPath == "" {
		return
	}
	if err := os.WriteFile(s.cfg.ArtifactPath, []byte(summary), 0o644); err != nil {
		logger.Warn().Err(err).Str("path", s.cfg.ArtifactPath).Msg("failed to write summary artifact")
	}
}

// storeAndNotify runs the memory write and notification delivery in the
// background. Both are fire-and-forget: failures are logged and counted
// but never affect the response.
func (s *Service) storeAndNotify(conversationID, term, summary string, logger zerolog.Logger) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.BackgroundTimeout)
		defer cancel()

		if s.store != nil {
			err := s.store.StoreExchange(ctx, memory.Exchange{
				ConversationID:   conversationID,
				UserMessage:      term,
				AssistantMessage: summary,
			})
			if err != nil {
				s.metrics.MemoryWritesFailed.Inc()
				logger.Warn().Err(err).Msg("failed to store conversation exchange")
			} else {
				s.metrics.MemoryWritesTotal.Inc()
			}
		}

		if s.notifier != nil {
			if err := s.notifier.Notify(ctx, summary); err != nil {
				s.metrics.NotificationsFailed.WithLabelValues(s.notifier.Channel()).Inc()
				logger.Warn().Err(err).Str("channel", s.notifier.Channel()).Msg("failed to deliver notification")
			} else {
				s.metrics.NotificationsSent.WithLabelValues(s.notifier.Channel()).Inc()
			}
		}
	}()
}

// Healthy reports whether the pipeline has its required collaborators.
func (s *Service) Healthy() error {
	if s.summarizer == nil {
		return fmt.Errorf("summarizer not configured")
	}
	if s.pubmed == nil || s.europePMC == nil || s.trials == nil {
		return fmt.Errorf("sources not configured")
	}
	return nil
}
