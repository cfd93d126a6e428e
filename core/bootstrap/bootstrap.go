// Package bootstrap initializes service infrastructure in dependency order:
// logger, menu tree, database, session store, listing repository, engine.
package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/murende/soko/core/config"
	coredatabase "github.com/murende/soko/core/database"
	"github.com/murende/soko/core/listing"
	"github.com/murende/soko/core/logger"
	"github.com/murende/soko/core/menu"
	"github.com/murende/soko/core/session"
	"github.com/murende/soko/core/ussd"
)

// Options control the bootstrap pipeline. The function fields exist for
// tests; nil selects the real implementation.
type Options struct {
	Config *coreconfig.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coreconfig.DatabaseConfig) (*sqlx.DB, error)
	Migrate    func(coreconfig.DatabaseConfig) error
	LoadTree   func(path string) (*menu.Tree, error)
}

// Result exposes the initialized infrastructure.
type Result struct {
	DB     *sqlx.DB
	Tree   *menu.Tree
	Store  session.Store
	Repo   listing.Repository
	Engine *ussd.Engine
}

// Close releases everything the pipeline opened, tolerating partial
// initialization.
func (r *Result) Close() {
	if r == nil {
		return
	}
	if r.Store != nil {
		_ = r.Store.Close()
	}
	if r.Repo != nil {
		_ = r.Repo.Close()
	}
	if r.DB != nil {
		_ = r.DB.Close()
	}
}

// Run initializes the service. A broken menu tree or store wiring fails here
// so misconfiguration never reaches a caller mid-dialog.
func Run(opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	tree, err := loadTree(opts, cfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: menu tree load failed: %w", err)
	}

	res := &Result{Tree: tree}

	if needsDatabase(cfg) {
		connect := opts.Connect
		if connect == nil {
			connect = coredatabase.Connect
		}
		db, err := connect(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
		}
		res.DB = db

		migrate := opts.Migrate
		if migrate == nil {
			migrate = coredatabase.RunMigrations
		}
		if err := migrate(cfg.Database); err != nil {
			res.Close()
			return nil, fmt.Errorf("bootstrap: migrations failed: %w", err)
		}
	}

	store, err := session.NewStore(cfg.Session, tree.Root(), res.DB)
	if err != nil {
		res.Close()
		return nil, fmt.Errorf("bootstrap: session store init failed: %w", err)
	}
	res.Store = store

	if res.DB != nil {
		res.Repo = listing.NewPostgresRepository(res.DB)
	} else {
		res.Repo = listing.NewMemoryRepository()
	}

	res.Engine = ussd.NewEngine(tree, res.Repo, ussd.Options{
		MaxRetries: cfg.Session.MaxRetries,
	})
	return res, nil
}

func loadTree(opts Options, cfg *coreconfig.Config) (*menu.Tree, error) {
	if cfg.Menu.Path == "" {
		return menu.Default(), nil
	}
	load := opts.LoadTree
	if load == nil {
		load = menu.Load
	}
	return load(cfg.Menu.Path)
}

// needsDatabase reports whether any configured driver is Postgres-backed.
// The listing repository follows the database: configured host means
// durable listings.
func needsDatabase(cfg *coreconfig.Config) bool {
	return cfg.Session.StoreDriver == coreconfig.StorePostgres || cfg.Database.Host != ""
}
