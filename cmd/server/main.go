package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/jackc/pgx/v5/pgxpool"

	migrations "github.com/cardfolio/cardfolio/db"
	"github.com/cardfolio/cardfolio/internal/auth"
	"github.com/cardfolio/cardfolio/internal/cards"
	"github.com/cardfolio/cardfolio/internal/categories"
	"github.com/cardfolio/cardfolio/internal/config"
	"github.com/cardfolio/cardfolio/internal/db"
	"github.com/cardfolio/cardfolio/internal/handlers"
	"github.com/cardfolio/cardfolio/internal/identity"
	"github.com/cardfolio/cardfolio/internal/logger"
	"github.com/cardfolio/cardfolio/internal/media"
	"github.com/cardfolio/cardfolio/internal/owner"
	"github.com/cardfolio/cardfolio/internal/server"
	"github.com/cardfolio/cardfolio/internal/suggestions"
	"github.com/cardfolio/cardfolio/internal/version"
)

func provideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

func provideDBConn(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx := context.Background()

	conn, err := db.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			conn.Close()
			return nil
		},
	})
	return conn, nil
}

func provideVerifier(log *slog.Logger, cfg config.Config) (auth.Verifier, error) {
	timeout, err := cfg.Auth.VerifyTimeoutDuration()
	if err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}
	verifier, err := auth.NewOIDCVerifier(context.Background(), log, cfg.Auth.Issuer, cfg.Auth.Audience, timeout)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}
	return verifier, nil
}

func provideMiddleware(log *slog.Logger, verifier auth.Verifier, userService *identity.Service) *auth.Middleware {
	return auth.NewMiddleware(log, verifier, userService)
}

func provideResolver(log *slog.Logger, store identity.Store, cfg config.Config) *owner.Resolver {
	return owner.NewResolver(log, store, cfg.Template.Email)
}

func provideMediaStore(log *slog.Logger, cfg config.Config) (media.Store, error) {
	if cfg.Media.Bucket == "" {
		log.Warn("no media bucket configured, hosted image cleanup disabled")
		return media.NoopStore{}, nil
	}
	return media.NewS3Store(context.Background(), cfg.Media, log)
}

func provideSuggestionsClient(log *slog.Logger, cfg config.Config) *suggestions.Client {
	return suggestions.NewClient(cfg.Suggestions, log)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	Config         config.Config
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.Config.Server.Addr, params.ServerHandlers...)
}

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
) {
	fmt.Printf("Starting Cardfolio %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

func runMigrate(args []string) {
	cfg, err := provideConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}
	migrationsFS, err := fs.Sub(migrations.MigrationsFS, "migrations")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := db.RunMigrate(logger.L, cfg.Postgres, migrationsFS, command, args); err != nil {
		logger.L.Error("migrate failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(os.Args[2:])
		return
	}

	fx.New(
		fx.Provide(
			provideConfig,
			provideLogger,
			provideDBConn,

			fx.Annotate(identity.NewPostgresStore, fx.As(new(identity.Store))),
			identity.NewService,
			provideVerifier,
			provideMiddleware,
			provideResolver,
			provideMediaStore,
			provideSuggestionsClient,
			cards.NewService,
			categories.NewService,

			provideServerHandler(handlers.NewPingHandler),
			provideServerHandler(handlers.NewUsersHandler),
			provideServerHandler(handlers.NewCardsHandler),
			provideServerHandler(handlers.NewCategoriesHandler),
			provideServerHandler(handlers.NewSuggestionsHandler),
			provideServerHandler(handlers.NewMediaHandler),

			provideServer,
		),
		fx.Invoke(
			startServer,
		),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}
