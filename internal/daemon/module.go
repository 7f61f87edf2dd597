// Package daemon composes the inboxd process: storage, sync loops, outbox
// and the local HTTP API, wired together with fx lifecycle hooks.
package daemon

import (
	"context"
	"time"

	"github.com/tekflox/inbox/internal/bus"
	"github.com/tekflox/inbox/internal/config"
	"github.com/tekflox/inbox/internal/httpapi"
	"github.com/tekflox/inbox/internal/llm"
	"github.com/tekflox/inbox/internal/lock"
	"github.com/tekflox/inbox/internal/logging"
	"github.com/tekflox/inbox/internal/outbox"
	"github.com/tekflox/inbox/internal/profile"
	"github.com/tekflox/inbox/internal/remote"
	"github.com/tekflox/inbox/internal/status"
	"github.com/tekflox/inbox/internal/store"
	intsync "github.com/tekflox/inbox/internal/sync"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved profile configuration passed to the fx module.
type Params struct {
	Profile string
	Config  *config.Config
	Listen  string // optional override for testing; empty = use config
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideClient,
			provideExpiry,
			provideSyncEngine,
			providePoller,
			provideWatcher,
			provideSender,
			provideSuggester,
			provideAPI,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(profile.LogPath(p.Profile), p.Profile)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := profile.EnsureDir(p.Profile); err != nil {
		return nil, err
	}
	logger.Info("acquiring profile lock", zap.String("profile", p.Profile))
	l, err := lock.Acquire(profile.Dir(p.Profile))
	if err != nil {
		return nil, err
	}
	logger.Info("profile lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := profile.DBPath(p.Profile)
	db, err := store.Open(dbPath)
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
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

// provideClient builds the gateway client and restores the persisted bearer
// token so a daemon restart resumes the session without re-login.
func provideClient(p Params, logger *zap.Logger) *remote.Client {
	client := remote.New(p.Config.GatewayURL)
	if creds, err := profile.LoadCredentials(p.Profile); err == nil && creds != nil && creds.Token != "" {
		client.SetToken(creds.Token)
		logger.Info("restored session credentials", zap.String("username", creds.User.Username))
	}
	return client
}

func provideExpiry(machine *status.Machine, b *bus.Bus, logger *zap.Logger) *intsync.ExpiryNotifier {
	return intsync.NewExpiryNotifier(machine, b, logger)
}

func provideSyncEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger)
}

func providePoller(p Params, client *remote.Client, engine *intsync.Engine, db *store.DB, b *bus.Bus, expiry *intsync.ExpiryNotifier, logger *zap.Logger) *intsync.Poller {
	interval := time.Duration(p.Config.PollIntervalMS) * time.Millisecond
	return intsync.NewPoller(client, engine, db, b, expiry, logger, interval)
}

func provideWatcher(p Params, client *remote.Client, engine *intsync.Engine, expiry *intsync.ExpiryNotifier, logger *zap.Logger) *intsync.Watcher {
	budget := time.Duration(p.Config.LongPollTimeoutMS) * time.Millisecond
	return intsync.NewWatcher(client, engine, expiry, logger, budget)
}

func provideSender(db *store.DB, client *remote.Client, expiry *intsync.ExpiryNotifier, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, client, expiry, b, logger)
}

func provideSuggester(p Params) *llm.Suggester {
	return llm.NewSuggester(p.Config.OpenAIAPIKey, "")
}

func provideAPI(p Params, db *store.DB, b *bus.Bus, machine *status.Machine, client *remote.Client, poller *intsync.Poller, watcher *intsync.Watcher, sender *outbox.Sender, suggester *llm.Suggester, logger *zap.Logger) *httpapi.Server {
	cfg := httpapi.Config{Profile: p.Profile, GatewayURL: p.Config.GatewayURL}
	return httpapi.New(cfg, db, b, machine, client, poller, watcher, sender, suggester, logger)
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, client *remote.Client, poller *intsync.Poller, watcher *intsync.Watcher, sender *outbox.Sender, machine *status.Machine, b *bus.Bus, db *store.DB, logger *zap.Logger) {
	health := newHealthSupervisor(machine, b, logger)

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			health.Start()

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("http server error", zap.Error(err))
				}
			}()

			sender.Start(context.Background())

			if client.Token() != "" {
				_ = machine.Transition(status.Connecting)
				poller.Start(context.Background())
			} else {
				logger.Info("no credentials found, auth required")
				_ = machine.Transition(status.AuthRequired)
			}

			return nil
		},
		OnStop: func(ctx context.Context) error {
			watcher.Stop()
			poller.Stop()
			sender.Stop()
			srv.Stop(ctx)
			health.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
