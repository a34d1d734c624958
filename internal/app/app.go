// Package app assembles the pathwise object graph.
package app

import (
	"context"
	"database/sql"
	"net"

	"github.com/metalagman/pathwise/internal/config"
	"github.com/metalagman/pathwise/internal/content"
	"github.com/metalagman/pathwise/internal/crawl"
	"github.com/metalagman/pathwise/internal/curriculum"
	internaldb "github.com/metalagman/pathwise/internal/db"
	"github.com/metalagman/pathwise/internal/dispatch"
	"github.com/metalagman/pathwise/internal/job"
	"github.com/metalagman/pathwise/internal/llm"
	"github.com/metalagman/pathwise/internal/mcpserver"
	"github.com/metalagman/pathwise/internal/prompt"
	"github.com/metalagman/pathwise/internal/server"
	"github.com/metalagman/pathwise/internal/session"
	"github.com/metalagman/pathwise/internal/telemetry"
	"go.uber.org/fx"
)

// Version is reported by the MCP server.
var Version = "dev"

// Core provides storage, collaborators and the dispatcher. Constructors run only when something depends on them.
func Core(cfg config.Config) fx.Option {
	return fx.Options(
		fx.Supply(cfg),
		fx.Provide(
			openDB,
			content.NewStore,
			curriculum.NewStore,
			newFetcher,
			newCrawler,
			newProvider,
			newSearcher,
			newGenerator,
			newPrompts,
			session.NewManager,
			newDispatcher,
			newMCPServer,
		),
		fx.Invoke(startTelemetry),
	)
}

// HTTP adds the API listener.
func HTTP() fx.Option {
	return fx.Options(
		fx.Provide(newHTTPServer),
		fx.Invoke(func(*server.Server) {}),
	)
}

func openDB(lc fx.Lifecycle, cfg config.Config) (*sql.DB, error) {
	conn, err := internaldb.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(conn.Close))
	return conn, nil
}

func newFetcher(cfg config.Config) *crawl.Fetcher {
	return crawl.NewFetcher(cfg.Crawl.RequestTimeout, nil)
}

func newCrawler(lc fx.Lifecycle, conn *sql.DB, fetcher *crawl.Fetcher, store *content.Store, cfg config.Config) *crawl.Service {
	svc := crawl.NewService(conn, fetcher, store, crawl.Config{
		Concurrency:    cfg.Crawl.Concurrency,
		RequestTimeout: cfg.Crawl.RequestTimeout,
	})
	lc.Append(fx.StopHook(func() error {
		defer fetcher.CloseIdleConnections()
		return svc.Close()
	}))
	return svc
}

func newProvider(cfg config.Config) (llm.Provider, error) {
	return llm.NewProvider(context.Background(), llm.Config{
		Provider:  cfg.LLM.Provider,
		Model:     cfg.LLM.Model,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		BaseURL:   cfg.LLM.BaseURL,
		Project:   cfg.LLM.Project,
		Location:  cfg.LLM.Location,
		Timeout:   cfg.LLM.Timeout,
	}, nil)
}

func newSearcher(p llm.Provider, cfg config.Config) *llm.Searcher {
	return llm.NewSearcher(p, cfg.Search.MaxResults)
}

func newGenerator(p llm.Provider, store *curriculum.Store) *curriculum.Generator {
	return curriculum.NewGenerator(p, store)
}

func newPrompts() *prompt.Builder {
	return prompt.NewBuilder("")
}

type dispatcherParams struct {
	fx.In

	Config    config.Config
	Provider  llm.Provider
	Searcher  *llm.Searcher
	Content   *content.Store
	Crawler   *crawl.Service
	Generator *curriculum.Generator
	Prompts   *prompt.Builder
}

func newDispatcher(p dispatcherParams) *dispatch.Dispatcher {
	return dispatch.New(dispatch.Deps{
		Completer: p.Provider,
		Searcher:  p.Searcher,
		Lookup:    p.Content,
		Crawler:   p.Crawler,
		Generator: p.Generator,
		Prompts:   p.Prompts,
	}, dispatch.Config{
		ContextBudget: p.Config.Context.BudgetChars,
		MaxPages:      p.Config.Crawl.MaxPages,
		Poll: job.Options{
			Interval:    p.Config.Crawl.PollInterval,
			MaxAttempts: p.Config.Crawl.MaxAttempts,
		},
	})
}

func newMCPServer(d *dispatch.Dispatcher, sessions *session.Manager) *mcpserver.Server {
	return mcpserver.New(d, sessions, Version)
}

func newHTTPServer(lc fx.Lifecycle, cfg config.Config, d *dispatch.Dispatcher, sessions *session.Manager) *server.Server {
	srv := server.New(cfg.Server.Addr, server.NewRouter(server.Options{
		Orchestrator: d,
		Sessions:     sessions,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}))
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var lcfg net.ListenConfig
			ln, err := lcfg.Listen(ctx, "tcp", srv.Addr())
			if err != nil {
				return err
			}
			go func() { _ = srv.Serve(ln) }()
			return nil
		},
		OnStop: srv.Shutdown,
	})
	return srv
}

func startTelemetry(lc fx.Lifecycle, cfg config.Config) {
	var shutdown func(context.Context) error
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			var err error
			shutdown, err = telemetry.Init(ctx, cfg.Telemetry)
			return err
		},
		OnStop: func(ctx context.Context) error {
			if shutdown == nil {
				return nil
			}
			return shutdown(ctx)
		},
	})
}
