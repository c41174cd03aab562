package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-auth-scaffold/config"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/bootstrap"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/container"
	pginfra "github.com/oksasatya/go-ddd-auth-scaffold/internal/infrastructure/postgres"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/interface/middleware"
	"github.com/oksasatya/go-ddd-auth-scaffold/internal/router"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/helpers"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/mailer"
	"github.com/oksasatya/go-ddd-auth-scaffold/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("invalid database configuration: %v", err)
	}
	defer pool.Close()
	if err := pginfra.Ping(ctx, pool); err != nil {
		helpers.LogError(logger, "postgres unreachable at startup", err, nil)
	}

	roles, users := bootstrap.NewIdentity(pool, cfg, logger)

	// Migrate and seed before serving. Failures are logged and startup continues.
	bootstrap.FromConfig(cfg, roles, users, logger).Run(ctx)

	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = rdb.Close() }()
	if err := helpers.PingRedis(ctx, rdb); err != nil {
		helpers.LogError(logger, "redis unreachable at startup", err, logrus.Fields{"addr": cfg.RedisAddr})
	}

	if cfg.GCSBucket != "" {
		gcsClient, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			helpers.LogError(logger, "GCS disabled", err, nil)
		} else {
			defer func() { _ = gcsClient.Close() }()
			container.SetGCS(gcsClient)
		}
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(addrs, cfg.ElasticsearchUser, cfg.ElasticsearchPass)
		if err != nil {
			helpers.LogError(logger, "Elasticsearch disabled", err, nil)
		} else {
			container.SetES(es)
		}
	}

	container.SetMailSender(mailSender(cfg, logger))
	if pub := container.GetRabbitPub(); pub != nil {
		defer pub.Close()
	}

	jwtManager := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetRedis(rdb)
	container.SetJWT(jwtManager)
	container.SetIdentity(roles, users)

	// The seeder writes through the identity managers only; make the admin searchable.
	if cfg.SeedEnabled {
		if err := router.BuildService().IndexUserByEmail(ctx, cfg.SeedAdminEmail); err != nil {
			helpers.LogError(logger, "index seeded admin", err, logrus.Fields{"email": cfg.SeedAdminEmail})
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if cfg.HTTPLogEnabled || cfg.Env == "development" {
		r.Use(gin.Logger())
	}

	reg := router.NewRegistry(r)
	router.InitModules(reg)
	reg.RegisterAll()

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logger.Infof("server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Fatalf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// mailSender prefers the RabbitMQ queue, then direct Mailgun delivery, then the no-op sender.
func mailSender(cfg *config.Config, logger *logrus.Logger) mailer.Sender {
	if !cfg.MailSendEnabled {
		return mailer.NoOpSender{Logger: logger}
	}
	if cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err == nil {
			container.SetRabbitPub(pub)
			return mailer.NewQueueSender(pub)
		}
		helpers.LogError(logger, "rabbitmq unavailable; falling back", err, nil)
	}
	if cfg.MailgunDomain != "" && cfg.MailgunAPIKey != "" {
		return mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	}
	logger.Warn("MAIL_SEND_ENABLED=true but no transport configured; emails are dropped")
	return mailer.NoOpSender{Logger: logger}
}
