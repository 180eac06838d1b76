package main

import (
	"fmt"
	"log/slog"

	"github.com/dgallion1/rfpgest/internal/config"
	"github.com/dgallion1/rfpgest/internal/events"
	"github.com/dgallion1/rfpgest/internal/layout"
	"github.com/dgallion1/rfpgest/internal/llm"
	"github.com/dgallion1/rfpgest/internal/metrics"
	"github.com/dgallion1/rfpgest/internal/pathstore"
	"github.com/dgallion1/rfpgest/internal/pipeline"
	"github.com/dgallion1/rfpgest/internal/requirements"
	"github.com/dgallion1/rfpgest/internal/section"
	"github.com/dgallion1/rfpgest/internal/store"
)

// components is everything a command needs, built from config.
type components struct {
	client    llm.Client
	stats     *llm.Stats
	store     store.Store
	analyzer  layout.Analyzer
	events    events.Publisher
	sectioner *section.Sectioner
	extractor *requirements.Extractor

	closers []func()
}

func build(cfg config.Config, log *slog.Logger) (*components, error) {
	c := &components{}

	raw, closeLLM := newLLMClient(cfg)
	c.closers = append(c.closers, closeLLM)
	c.stats = llm.NewStats(cfg.StatsWindow)
	c.client = llm.NewInstrumented(raw, c.stats)

	st, closeStore := newStore(cfg)
	c.store = st
	c.closers = append(c.closers, closeStore)

	c.analyzer = newAnalyzer(cfg)

	pub, err := newPublisher(cfg, log)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.events = pub
	c.closers = append(c.closers, func() {
		if err := pub.Close(); err != nil {
			log.Warn("close event publisher", "error", err)
		}
	})

	c.sectioner = newSectioner(cfg, c.client, log)
	c.extractor = requirements.NewExtractor(c.client, log)
	c.extractor.MaxSectionTokens = cfg.MaxSectionTokens
	return c, nil
}

func (c *components) deps() pipeline.Deps {
	return pipeline.Deps{
		Analyzer:  c.analyzer,
		Sectioner: c.sectioner,
		Extractor: c.extractor,
		Store:     c.store,
		Events:    c.events,
	}
}

// Close releases clients in reverse order of creation.
func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func newLLMClient(cfg config.Config) (llm.Client, func()) {
	switch cfg.LLMProvider {
	case "anthropic":
		c := llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel)
		return c, c.Close
	case "openai":
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		}), func() {}
	default:
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:     cfg.AzureOpenAIKey,
			Endpoint:   cfg.AzureOpenAIEndpoint,
			Deployment: cfg.AzureOpenAIDeployment,
			APIVersion: cfg.AzureOpenAIAPIVersion,
		}), func() {}
	}
}

func newStore(cfg config.Config) (store.Store, func()) {
	if cfg.StoreBackend == "memory" {
		return store.NewMemory(), func() {}
	}
	ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
	return store.NewPathstore(ps), ps.Close
}

func newAnalyzer(cfg config.Config) layout.Analyzer {
	if cfg.LayoutBackend == "azure" {
		return layout.NewAzureAnalyzer(cfg.DocIntelEndpoint, cfg.DocIntelKey)
	}
	return layout.LocalAnalyzer{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}
}

func newPublisher(cfg config.Config, log *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		return events.Noop{}, nil
	}
	n, err := events.NewNATS(cfg.NATSURL, cfg.NATSSubjectPrefix)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	log.Info("publishing job events", "url", cfg.NATSURL, "prefix", cfg.NATSSubjectPrefix)
	return n, nil
}

func newSectioner(cfg config.Config, client llm.Client, log *slog.Logger) *section.Sectioner {
	toc := section.NewTOCExtractor(client, log)
	toc.FirstPage = cfg.TOCFirstPage
	toc.LastPage = cfg.TOCLastPage

	part := section.NewPartitioner(section.NewLLMValidator(client, log), log)
	part.Concurrency = cfg.ValidatorConcurrency
	part.KeepUnvalidated = cfg.KeepUnvalidated
	part.OnVerdict = func(v section.Verdict) {
		metrics.Verdicts.WithLabelValues(string(v)).Inc()
	}

	var norm section.PageNormalizer
	if cfg.PageNormalizer == "llm" {
		norm = section.NewLLMNormalizer(client, log)
	}
	return section.NewSectioner(toc, part, section.NewPopulator(norm, log), log)
}
