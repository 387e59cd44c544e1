package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ayush/blog/internal/admin"
	"github.com/ayush/blog/internal/auth"
	"github.com/ayush/blog/internal/blog"
	"github.com/ayush/blog/internal/config"
	"github.com/ayush/blog/internal/logging"
	"github.com/ayush/blog/internal/metrics"
	"github.com/ayush/blog/internal/server"
	"github.com/ayush/blog/internal/store"
)

// credentialStore is satisfied by both PostgresStore and MemoryStore.
type credentialStore interface {
	auth.UserStore
	blog.PostStore
	blog.ProfileStore
	admin.UserStore
	admin.PostStore
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	log, err := logging.Init(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return oops.Code("LOGGER_INIT_FAILED").Wrap(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	// ── Credential store ─────────────────────────────────────
	var creds credentialStore
	var avatars blog.AvatarStore
	if cfg.Store == "memory" {
		log.Warn("using in-memory store; data is lost on exit")
		creds = store.NewMemoryStore()
		avatars = store.NewMemoryAvatars()
	} else {
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return oops.Code("DB_CONNECT_FAILED").Wrap(err)
		}
		defer pgPool.Close()
		if err := store.Migrate(ctx, pgPool); err != nil {
			return err
		}
		creds = store.NewPostgresStore(pgPool)

		// ── MinIO ────────────────────────────────────────────
		minioStore, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			return oops.Code("MINIO_CONNECT_FAILED").Wrap(err)
		}
		avatars = minioStore
	}

	// ── MongoDB ──────────────────────────────────────────────
	var journal admin.Journal = store.NopJournal{}
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return oops.Code("MONGO_CONNECT_FAILED").Wrap(err)
		}
		defer func() { _ = mongoClient.Disconnect(context.Background()) }()
		journal = store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	} else {
		log.Info("MONGO_URI not set; moderation journal disabled")
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb, cfg.SessionSecret, cfg.SessionTTL)

	// ── Services ─────────────────────────────────────────────
	adminCred, err := auth.AdminFromConfig(cfg.AdminUser, cfg.AdminPassword, cfg.AdminPasswordHash)
	if err != nil {
		return err
	}
	if adminCred.Identifier == "" {
		log.Warn("ADMIN_USER not set; administrator login disabled")
	}
	accounts := auth.NewService(creds, adminCred)

	handler, err := server.NewRouter(server.Deps{
		Log:         log,
		Metrics:     metrics.New(),
		Sessions:    sessions,
		Accounts:    accounts,
		Blog:        blog.NewService(creds, creds, avatars, journal, log),
		Admin:       admin.NewService(accounts, creds, creds, avatars, journal, log),
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		return oops.Code("ROUTER_INIT_FAILED").Wrap(err)
	}

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("blog listening", zap.String("port", cfg.Port), zap.String("store", cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
		return err
	}

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
