package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/xordon/callflow/callback"
	"github.com/xordon/callflow/directory"
	"github.com/xordon/callflow/engine"
	"github.com/xordon/callflow/flow"
	"github.com/xordon/callflow/notify"
	"github.com/xordon/callflow/queue"
	"github.com/xordon/callflow/server"
)

func serve(configPath string) error {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := server.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	repo, closeRepo, err := buildRepository(cfg)
	if err != nil {
		return err
	}
	if closeRepo != nil {
		defer closeRepo()
	}

	queues, err := buildQueues(cfg)
	if err != nil {
		return err
	}

	deps, tenants, err := buildDeps(cfg, queues)
	if err != nil {
		return err
	}

	if cfg.Callbacks != nil {
		sweeper, err := startCallbacks(cfg, &deps, logger)
		if err != nil {
			return err
		}
		defer sweeper.Stop()
	}

	eng := engine.New(repo, deps, engine.Continuations{Base: cfg.PublicBaseURL}, logger)
	srv := server.New(cfg, eng, repo, tenants, queues, logger)

	logger.Info("starting webhook server", "addr", cfg.ListenAddr, "provider", cfg.DefaultProvider)
	return srv.Run()
}

func buildRepository(cfg server.Config) (flow.Repository, func() error, error) {
	if cfg.Database != nil {
		repo, err := flow.NewPGRepository(*cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening flow repository: %w", err)
		}
		return repo, repo.Close, nil
	}

	repo, err := flow.LoadDir(cfg.FlowsDir)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading flows from %s: %w", cfg.FlowsDir, err)
	}
	return repo, nil, nil
}

func buildQueues(cfg server.Config) (queue.Store, error) {
	if cfg.Redis != nil {
		store, err := queue.NewRedis(*cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("error connecting queue store: %w", err)
		}
		return store, nil
	}
	return queue.NewMemory(), nil
}

func buildDeps(cfg server.Config, queues queue.Store) (engine.Deps, engine.Tenants, error) {
	deps := engine.Deps{Queues: queues}

	var tenants engine.Tenants
	if cfg.Database != nil {
		dir, err := directory.NewPG(directory.PGConfig{
			ConnectionString: cfg.Database.ConnectionString,
			MaxOpenConns:     cfg.Database.MaxOpenConns,
			MaxIdleConns:     cfg.Database.MaxIdleConns,
		})
		if err != nil {
			return engine.Deps{}, nil, fmt.Errorf("error opening directory: %w", err)
		}
		deps.Agents = dir
		deps.Contacts = dir
		deps.Holidays = dir
		deps.Media = dir
		deps.Tenants = dir
		tenants = dir
	}

	if cfg.Notify.BaseURL != "" {
		api := notify.NewAPI(cfg.Notify)
		deps.Messenger = api
		deps.Tagger = api
		deps.CRM = api
		deps.Callbacks = api
		deps.Surveys = api
	}
	deps.Webhooks = notify.NewWebhooks(cfg.Notify)

	return deps, tenants, nil
}

// startCallbacks builds the callback store and begins the dial sweeper.
// Without a database the in-memory store doubles as the engine's callback
// log, so callback_request nodes feed the sweeper directly.
func startCallbacks(cfg server.Config, deps *engine.Deps, logger *slog.Logger) (*callback.Sweeper, error) {
	var store callback.Store
	if cfg.Database != nil {
		pg, err := callback.NewPGStore(callback.PGConfig{
			ConnectionString: cfg.Database.ConnectionString,
			MaxOpenConns:     cfg.Database.MaxOpenConns,
		})
		if err != nil {
			return nil, fmt.Errorf("error opening callback store: %w", err)
		}
		store = pg
	} else {
		mem := callback.NewMemoryStore()
		if deps.Callbacks == nil {
			deps.Callbacks = mem
		}
		store = mem
	}

	sweeper := callback.NewSweeper(store, callback.NewProviderDialer(cfg.Callbacks.Provider), logger)
	if err := sweeper.Start(cfg.Callbacks.Sweep); err != nil {
		return nil, fmt.Errorf("error starting callback sweeper: %w", err)
	}
	return sweeper, nil
}
