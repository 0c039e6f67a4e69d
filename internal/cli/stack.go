package cli

import (
	"fmt"
	"time"

	"github.com/safarlabs/safar/internal/chat"
	"github.com/safarlabs/safar/internal/config"
	"github.com/safarlabs/safar/internal/gateway"
	"github.com/safarlabs/safar/internal/llm"
	"github.com/safarlabs/safar/internal/orchestrator"
	"github.com/safarlabs/safar/internal/rag"
	"github.com/safarlabs/safar/internal/tools"
)

// stack holds the assembled assistant components.
type stack struct {
	orch     *orchestrator.Orchestrator
	feedback *gateway.FeedbackLog
	ragDB    *rag.DB
	index    *rag.Index
}

func (s *stack) Close() {
	if s.ragDB != nil {
		s.ragDB.Close()
	}
}

// loadConfig reads and validates the config file.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(paths.Config)
	if err != nil {
		return config.Config{}, err
	}

	issues := config.Validate(&cfg)
	if len(issues) > 0 {
		for _, issue := range issues {
			log.Error().Str("path", issue.Path).Msg(issue.Message)
		}
		return config.Config{}, fmt.Errorf("config validation failed with %d issue(s)", len(issues))
	}
	return cfg, nil
}

// buildStack wires the model client, tools and orchestrator from config.
func buildStack(cfg config.Config) (*stack, error) {
	if err := paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("creating data directories: %w", err)
	}

	registry := llm.NewRegistryFromConfig(cfg.Model, log)
	client, err := registry.Resolve(cfg.Model.Provider)
	if err != nil {
		return nil, err
	}
	log.Info().Str("provider", client.Name()).Msg("model provider ready")

	mgr := chat.NewManager(chat.ManagerConfig{
		System:       orchestrator.SystemPrompt,
		HistoryTurns: cfg.Orchestrator.HistoryTurns,
		MaxTokens:    cfg.Model.MaxTokens,
		Temperature:  cfg.Model.Temperature,
	}, client, chat.NewMemoryStore(), log)

	ticketsPath := cfg.Tickets.Path
	if ticketsPath == "" {
		ticketsPath = paths.Tickets
	}
	ticketStore, err := tools.NewTicketStore(ticketsPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening ticket store: %w", err)
	}

	dbPath := cfg.RAG.DBPath
	if dbPath == "" {
		dbPath = paths.RAGDB
	}
	ragDB, err := rag.Open(dbPath, log)
	if err != nil {
		return nil, fmt.Errorf("opening retrieval index: %w", err)
	}
	index := rag.NewIndex(ragDB, rag.IndexConfig{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
	})

	toolReg := tools.NewRegistry(log)
	toolReg.Register(&tools.BookTicketTool{Store: ticketStore})
	toolReg.Register(&tools.CancelTicketTool{Store: ticketStore})
	toolReg.Register(&tools.TicketInfoTool{Store: ticketStore})
	toolReg.Register(tools.NewWebSearch(tools.WebSearchConfig{
		APIKey:      cfg.Search.TavilyAPIKey,
		TTL:         time.Duration(cfg.Search.CacheTTL) * time.Second,
		MinInterval: time.Duration(cfg.Search.MinIntervalMS) * time.Millisecond,
		MaxResults:  cfg.Search.MaxResults,
		Timeout:     time.Duration(cfg.Search.TimeoutSeconds) * time.Second,
	}, log))
	toolReg.Register(&tools.RAGTool{Index: index, TopK: cfg.RAG.TopK})

	orch := orchestrator.New(orchestrator.Config{
		MaxToolRounds: cfg.Orchestrator.MaxToolRounds,
		TopK:          cfg.RAG.TopK,
	}, mgr, toolReg, log)

	feedbackPath := cfg.Feedback.Path
	if feedbackPath == "" {
		feedbackPath = paths.Feedback
	}

	return &stack{
		orch:     orch,
		feedback: gateway.NewFeedbackLog(feedbackPath),
		ragDB:    ragDB,
		index:    index,
	}, nil
}
