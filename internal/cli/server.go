package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kwikly/internal/app"
	"kwikly/internal/config"
	"kwikly/internal/infra/memory"
	"kwikly/internal/infra/postgres"
	redisinfra "kwikly/internal/infra/redis"
	"kwikly/internal/security"
	transport "kwikly/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	restorePolicy, err := app.ParseRestorePolicy(cfg.Attempt.RestorePolicy)
	if err != nil {
		return err
	}
	abandonPolicy, err := app.ParseAbandonPolicy(cfg.Attempt.AbandonPolicy)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret (or JWT_SECRET) must be set")
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var (
		quizStore app.QuizStore
		users     app.UserStore
		results   app.ResultStore
	)
	if pool != nil {
		pgUsers := postgres.NewUserStore(pool)
		quizStore, users, results = postgres.NewQuizStore(pool), pgUsers, pgUsers
	} else {
		log.Warn("postgres not configured, data lives in memory only")
		memUsers := memory.NewUserStore()
		quizStore, users, results = memory.NewQuizStore(), memUsers, memUsers
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	// remote sink stays a nil interface without redis
	var remoteSnapshots app.SnapshotSink
	if redisClient != nil {
		quizRepo = redisinfra.NewQuizRepository(redisClient, quizStore, quizTTL)
		remoteSnapshots = redisinfra.NewSnapshotStore(redisClient, config.TTLDuration(cfg.Attempt.SnapshotTTL, 7*24*time.Hour))
	} else {
		quizRepo = memory.NewQuizRepository(quizStore, quizTTL)
	}
	persister := app.NewSnapshotPersister(memory.NewSnapshotStore(), remoteSnapshots, restorePolicy)

	tokens := security.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), config.TTLDuration(cfg.Auth.TokenTTL, 72*time.Hour))
	board := app.NewLeaderboardHub(users, cfg.Leaderboard.Size)
	quizzes := app.NewQuizService(quizStore, quizRepo, users, results, persister, board)
	attempts := app.NewAttemptService(quizRepo, quizzes, persister, memory.NewAttemptStore(), app.AttemptConfig{
		AutosaveInterval: config.TTLDuration(cfg.Attempt.AutosaveInterval, 30*time.Second),
		Abandon:          abandonPolicy,
	})

	handler := transport.NewRouter(transport.Services{
		Auth:        app.NewAuthService(users, tokens),
		Profiles:    app.NewProfileService(users, results, board),
		Quizzes:     quizzes,
		Attempts:    attempts,
		Leaderboard: board,
		Tokens:      tokens,
	}, transport.RouterConfig{CORSOrigins: cfg.Server.CORSOrigins})

	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           handler,
		ReadHeaderTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{
			"port": finalPort, "restorePolicy": restorePolicy, "abandonPolicy": abandonPolicy,
			"redis": redisClient != nil, "postgres": pool != nil,
		}).Info("starting kwikly")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
