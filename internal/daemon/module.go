package daemon

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/planvite/chatsync/internal/bridge"
	"github.com/planvite/chatsync/internal/cache"
	"github.com/planvite/chatsync/internal/config"
	"github.com/planvite/chatsync/internal/engine"
	"github.com/planvite/chatsync/internal/inbox"
	"github.com/planvite/chatsync/internal/lock"
	"github.com/planvite/chatsync/internal/logging"
	"github.com/planvite/chatsync/internal/push"
	"github.com/planvite/chatsync/internal/record"
	"github.com/planvite/chatsync/internal/send"
	"github.com/planvite/chatsync/internal/session"
	"github.com/planvite/chatsync/internal/status"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	UserID      string
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideChannel,
			provideStateMachine,
			provideLock,
			provideDB,
			provideStore,
			provideDrafts,
			provideInbox,
			provideSender,
			provideGlobalBridge,
			provideEngine,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideConfig(logger *zap.Logger) *config.Config {
	cfg, err := config.Load(session.ConfigPath())
	if err != nil {
		logger.Info("no config file, using defaults", zap.Error(err))
		def := config.Default()
		return &def
	}
	return cfg
}

func provideChannel() *push.Channel {
	return push.New()
}

func provideStateMachine(channel *push.Channel) *status.Machine {
	return status.NewMachine(channel)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideDB(p Params, channel *push.Channel, logger *zap.Logger) (*record.DB, error) {
	dbPath := session.DBPath(p.SessionName)
	db, err := record.Open(dbPath, channel)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("record store opened", zap.String("path", dbPath))
	return db, nil
}

func provideStore(db *record.DB, cfg *config.Config) record.Store {
	return record.WithRetry(db, cfg.RetryAttempts)
}

func provideDrafts() *cache.Drafts {
	return cache.NewDrafts()
}

func provideInbox(p Params, store record.Store, channel *push.Channel, logger *zap.Logger) *inbox.Inbox {
	return inbox.New(store, channel, logger, p.UserID)
}

func provideSender(p Params, store record.Store, drafts *cache.Drafts, channel *push.Channel, logger *zap.Logger, cfg *config.Config) *send.Sender {
	return send.NewSender(store, drafts, channel, logger, p.UserID, cfg.MaxMessageLength)
}

func provideGlobalBridge(p Params, ib *inbox.Inbox, channel *push.Channel, logger *zap.Logger) *bridge.Global {
	return bridge.NewGlobal(ib, channel, logger, p.UserID)
}

func provideEngine(p Params, store record.Store, channel *push.Channel, logger *zap.Logger, drafts *cache.Drafts, ib *inbox.Inbox, sender *send.Sender, cfg *config.Config) *engine.Engine {
	return engine.New(store, channel, logger, drafts, ib, sender, p.UserID, cfg.PageSize)
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, db *record.DB, global *bridge.Global, machine *status.Machine, eng *engine.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Global badge bridge runs for the whole daemon lifetime.
			global.Start(context.Background())

			if err := machine.Transition(status.Live); err != nil {
				return err
			}

			// Initial aggregation; the bridge keeps it current afterwards.
			go func() {
				if err := eng.Inbox().Refresh(context.Background()); err != nil {
					logger.Warn("initial inbox refresh failed", zap.Error(err))
				}
			}()

			logger.Info("engine ready")
			return nil
		},
		OnStop: func(_ context.Context) error {
			global.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing record store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
