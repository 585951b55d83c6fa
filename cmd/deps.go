package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/mathguide/internal/config"
	"github.com/abhisek/mathguide/internal/corpus"
	"github.com/abhisek/mathguide/internal/embed"
	"github.com/abhisek/mathguide/internal/guidance"
	"github.com/abhisek/mathguide/internal/index"
	"github.com/abhisek/mathguide/internal/llm"
	"github.com/abhisek/mathguide/internal/logging"
	"github.com/abhisek/mathguide/internal/phrase"
	"github.com/abhisek/mathguide/internal/session"
	"github.com/abhisek/mathguide/internal/store"
	"github.com/abhisek/mathguide/internal/verify"
)

// engine is the wired application shared by chat and serve.
type engine struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	store    *store.Store // nil when journaling is off
	index    *index.Index
	sessions *session.Memory
	guide    *guidance.Orchestrator
	phraser  phrase.Phraser

	closers []func() error
}

// buildEngine loads configuration, opens the store, seeds the problem
// index and assembles the orchestrator.
func buildEngine(cmd *cobra.Command) (*engine, error) {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	e := &engine{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	e.closers = append(e.closers, closeLog)
	e.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := e.wire(ctx, cmd); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *engine) wire(ctx context.Context, cmd *cobra.Command) error {
	cat := corpus.Default()
	if err := corpus.Validate(cat, verify.Equivalent); err != nil {
		return fmt.Errorf("corpus: %w", err)
	}

	var memOpts []session.Option
	var guideOpts []guidance.Option
	var repo store.EventRepo
	if e.cfg.Store.Journal {
		dbPath, err := resolveDBPath(cmd, e.cfg)
		if err != nil {
			return fmt.Errorf("resolve DB path: %w", err)
		}
		st, err := store.OpenContext(ctx, dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		e.store = st
		e.closers = append(e.closers, st.Close)

		j := st.Journal()
		repo = j
		memOpts = append(memOpts, session.WithArchiver(j))
		guideOpts = append(guideOpts, guidance.WithJournal(j))
	}

	embedder, err := embed.New(ctx, e.cfg.Embed)
	if err != nil {
		return fmt.Errorf("embedder: %w", err)
	}
	vs, err := index.Open(ctx, e.cfg.Index)
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	ix, err := index.Build(ctx, vs, cat, embedder, index.WithLogger(e.logger.Named("index")))
	if err != nil {
		_ = vs.Close()
		return fmt.Errorf("seed index: %w", err)
	}
	e.index = ix
	e.closers = append(e.closers, ix.Close)

	e.sessions = session.NewMemory(append(memOpts, session.WithLogger(e.logger.Named("session")))...)
	e.guide = guidance.New(ix, e.sessions, embedder, append(guideOpts,
		guidance.WithConfig(e.cfg.Guidance),
		guidance.WithLogger(e.logger.Named("guidance")),
		guidance.WithMetrics(guidance.NewMetrics(e.registry)),
	)...)

	e.phraser = phrase.NewTemplate(ix)
	provider, err := llm.NewProvider(ctx, e.cfg.LLM, e.logger.Named("llm"), repo)
	switch {
	case errors.Is(err, llm.ErrDisabled):
		e.logger.Debug("LLM phrasing disabled, using templates")
	case err != nil:
		e.logger.Warn("LLM provider unavailable, using templates", zap.Error(err))
	default:
		e.phraser = phrase.NewLLM(provider, ix, e.cfg.Phrase, e.logger.Named("phrase"))
	}
	return nil
}

// Close releases resources in reverse order of acquisition.
func (e *engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
