// Package plugin composes the favorites engine: providers for every
// component plus the lifecycle hooks that start and stop the runtime.
package plugin

import (
	"context"

	"github.com/starmarkhq/starmark/internal/bus"
	"github.com/starmarkhq/starmark/internal/config"
	"github.com/starmarkhq/starmark/internal/favorites"
	"github.com/starmarkhq/starmark/internal/format"
	"github.com/starmarkhq/starmark/internal/host"
	"github.com/starmarkhq/starmark/internal/icons"
	"github.com/starmarkhq/starmark/internal/lock"
	"github.com/starmarkhq/starmark/internal/logging"
	"github.com/starmarkhq/starmark/internal/notify"
	"github.com/starmarkhq/starmark/internal/panel"
	"github.com/starmarkhq/starmark/internal/paths"
	"github.com/starmarkhq/starmark/internal/preview"
	"github.com/starmarkhq/starmark/internal/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the host bindings and path overrides passed to the fx module.
// Empty paths fall back to the ~/.starmark defaults. Toast may be nil, in
// which case a desktop toaster (or a no-op one when Headless) is used.
type Params struct {
	Chats  host.Chats
	Dialog host.Dialog
	UI     host.PreviewUI
	Toast  host.Toaster
	// Bus, when set, is shared with the host binding instead of creating a
	// fresh one. The host must publish its notifications somewhere we listen.
	Bus *bus.Bus

	Headless   bool
	ConfigPath string
	DBPath     string
	LockPath   string
	LogPath    string
}

// Module returns the fx module for the favorites engine, composing all
// providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("starmark",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideConfig,
			provideBus,
			provideLock,
			provideStore,
			provideChats,
			provideDialog,
			providePreviewUI,
			provideToaster,
			providePersistence,
			provideFavorites,
			provideIcons,
			provideRegistry,
			provideController,
			providePanel,
			NewRuntime,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	lp := p.LogPath
	if lp == "" {
		if err := paths.EnsureDirs(); err != nil {
			return nil, err
		}
		lp = paths.LogPath()
	}
	return logging.New(lp)
}

func provideConfig(p Params) (*config.Config, error) {
	cp := p.ConfigPath
	if cp == "" {
		cp = paths.ConfigPath()
	}
	return config.Load(cp)
}

func provideBus(p Params) *bus.Bus {
	if p.Bus != nil {
		return p.Bus
	}
	return bus.New()
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	lp := p.LockPath
	if lp == "" {
		lp = paths.LockPath()
	}
	logger.Info("acquiring engine lock", zap.String("path", lp))
	l, err := lock.Acquire(lp)
	if err != nil {
		return nil, err
	}
	logger.Info("engine lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := p.DBPath
	if dbPath == "" {
		dbPath = paths.DBPath()
	}
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

func provideChats(p Params) host.Chats {
	return p.Chats
}

func provideDialog(p Params) host.Dialog {
	return p.Dialog
}

func providePreviewUI(p Params) host.PreviewUI {
	if p.UI == nil {
		return preview.NopUI{}
	}
	return p.UI
}

func provideToaster(p Params, logger *zap.Logger) host.Toaster {
	if p.Toast != nil {
		return p.Toast
	}
	if p.Headless {
		return notify.Nop{}
	}
	return notify.NewDesktop(logger)
}

func providePersistence(chats host.Chats, db *store.DB, cfg *config.Config, logger *zap.Logger) *MetadataSaver {
	return NewMetadataSaver(chats, db, cfg.PersistDebounce(), logger)
}

func provideFavorites(chats host.Chats, b *bus.Bus, saver *MetadataSaver, logger *zap.Logger) *favorites.Store {
	return favorites.NewStore(chats, b, saver.Request, logger)
}

func provideIcons(chats host.Chats, st *favorites.Store, logger *zap.Logger) *icons.Engine {
	return icons.NewEngine(chats, st, logger)
}

func provideRegistry(db *store.DB, logger *zap.Logger) (*preview.Registry, error) {
	return preview.LoadRegistry(db, logger)
}

func provideController(chats host.Chats, st *favorites.Store, reg *preview.Registry, ui host.PreviewUI, toast host.Toaster, b *bus.Bus, cfg *config.Config, logger *zap.Logger) *preview.Controller {
	return preview.NewController(chats, st, reg, ui, toast, b, cfg, logger)
}

func providePanel(chats host.Chats, st *favorites.Store, dialog host.Dialog, toast host.Toaster, cfg *config.Config, logger *zap.Logger) *panel.Panel {
	return panel.New(chats, st, dialog, toast, format.Markdown(), cfg.PageSize, logger)
}

func registerLifecycle(lc fx.Lifecycle, rt *Runtime, lk *lock.Lock, saver *MetadataSaver, db *store.DB, ic *icons.Engine, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			rt.Start(context.Background())
			// Paint whatever the host already rendered before we attached.
			ic.Refresh()
			logger.Info("favorites engine started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			rt.Stop()
			saver.Flush()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("favorites engine stopped")
			return nil
		},
	})
}
