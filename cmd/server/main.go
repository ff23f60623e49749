package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/handlers"
	"storefront/internal/logger"
	"storefront/internal/routes"
	"storefront/internal/service"
	"storefront/internal/services"
	"storefront/internal/storage"
	"storefront/internal/store"
	"storefront/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const imageURLExpiry = time.Hour

func main() {
	envFile := flag.String("env", ".env", "fichier .env à charger")
	flag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, "erreur:", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.Debug())
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.EnvFileLoaded {
		log.Info("fichier .env chargé", zap.String("path", envFile))
	} else {
		log.Info("aucun fichier .env, variables système uniquement")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis sert au stockage, au rate limit du login et à la synchro panier
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		if redisClient, err = database.ConnectRedis(ctx, cfg.Redis, log); err != nil {
			return err
		}
		defer redisClient.Close()
	}

	st, err := openStorage(cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer st.Close()

	hasher, err := utils.NewPasswordHasher(cfg.PasswordHasher)
	if err != nil {
		return err
	}
	tokens, err := utils.NewTokenCodec(cfg.TokenFormat, cfg.JWTSecret)
	if err != nil {
		return err
	}

	env := &handlers.Env{
		Storage: st,
		Hasher:  hasher,
		Tokens:  tokens,
		Options: store.Options{
			ClientTTL: cfg.ClientDataTTL,
			TaxRate:   cfg.TaxRate,
			PageSize:  cfg.PageSize,
		},
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		Logger:                log,
	}

	if err := seedCatalog(ctx, env); err != nil {
		return err
	}
	if cfg.Elastic.URL != "" {
		index, err := openSearchIndex(ctx, cfg, env, log)
		if err != nil {
			log.Warn("Elasticsearch indisponible, recherche locale", zap.Error(err))
		} else {
			env.Search = index
		}
	}
	if cfg.Minio.Endpoint != "" {
		client, err := database.ConnectMinio(ctx, cfg.Minio, log)
		if err != nil {
			log.Warn("MinIO indisponible, URLs d'images brutes", zap.Error(err))
		} else {
			env.Images = services.NewMinioImages(client, cfg.Minio.Bucket, imageURLExpiry, log)
		}
	}
	if mailer := utils.NewSMTPMailer(utils.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}); mailer != nil {
		env.Mailer = mailer
	}

	var limiter cache.AttemptLimiter
	if redisClient != nil {
		limiter = cache.NewRedisLimiter(redisClient, "login", cfg.LoginRateLimit, cfg.LoginRateWindow)
		env.CartEvents = cache.NewRedisCartEvents(redisClient)
	} else {
		limiter = cache.NewMemoryLimiter(cfg.LoginRateLimit, cfg.LoginRateWindow)
		env.CartEvents = cache.NewMemoryCartEvents()
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, env, routes.Options{
		CORSOrigins:  cfg.CORSOrigins,
		AdminAPIKey:  cfg.AdminAPIKey,
		LoginLimiter: limiter,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("serveur storefront lancé",
			zap.String("port", cfg.Port),
			zap.String("storage", cfg.StorageBackend),
			zap.Bool("search", env.Search != nil),
			zap.Bool("images", env.Images != nil),
			zap.Bool("mail", env.Mailer != nil))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("arrêt du serveur")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStorage(cfg *config.Config, redisClient *redis.Client, log *zap.Logger) (storage.Storage, error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		return storage.NewRedisStorage(redisClient), nil
	case config.BackendScylla:
		session, err := database.ConnectScylla(cfg.Scylla, log)
		if err != nil {
			return nil, err
		}
		st, err := storage.NewScyllaStorage(session)
		if err != nil {
			session.Close()
			return nil, err
		}
		return st, nil
	default:
		return storage.NewMemoryStorage(), nil
	}
}

// seedCatalog écrit le catalogue embarqué au premier démarrage.
func seedCatalog(ctx context.Context, env *handlers.Env) error {
	catalog := store.NewProductStore(env.Storage, env.Options)
	if err := catalog.Initialize(ctx); err != nil {
		return err
	}
	env.Logger.Info("catalogue chargé", zap.Int("products", len(catalog.Products())))
	return nil
}

func openSearchIndex(ctx context.Context, cfg *config.Config, env *handlers.Env, log *zap.Logger) (*service.ElasticIndex, error) {
	client, err := database.ConnectElastic(cfg.Elastic, log)
	if err != nil {
		return nil, err
	}

	catalog := store.NewProductStore(env.Storage, env.Options)
	if err := catalog.Initialize(ctx); err != nil {
		return nil, err
	}
	index := service.NewElasticIndex(client, cfg.Elastic.Index, log)
	if err := index.IndexProducts(ctx, catalog.Products()); err != nil {
		return nil, err
	}
	return index, nil
}
