// Command squeezy runs the authentication API server and its email worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/squeezyhq/squeezy/internal/auth"
	"github.com/squeezyhq/squeezy/internal/config"
	"github.com/squeezyhq/squeezy/internal/hash"
	"github.com/squeezyhq/squeezy/internal/httpapi"
	"github.com/squeezyhq/squeezy/internal/logging"
	"github.com/squeezyhq/squeezy/internal/mail"
	"github.com/squeezyhq/squeezy/internal/mfa"
	"github.com/squeezyhq/squeezy/internal/pending"
	"github.com/squeezyhq/squeezy/internal/queue"
	"github.com/squeezyhq/squeezy/internal/repository"
	"github.com/squeezyhq/squeezy/internal/session"
	"github.com/squeezyhq/squeezy/internal/token"
	"github.com/squeezyhq/squeezy/internal/user"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// Missing .env is fine; the environment itself may carry everything.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := repository.Connect(ctx, cfg.MongoURI)
	if err != nil {
		return fmt.Errorf("connect mongodb: %w", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			logger.Error("mongodb disconnect failed", "error", err)
		}
	}()
	repos := repository.New(mongoClient, cfg.MongoDB)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	codec, err := token.NewCodec(token.Config{
		AccessSecret:     []byte(cfg.JWTSecret),
		AccessExpiresIn:  cfg.JWTExpiresIn,
		RefreshSecret:    []byte(cfg.JWTRefreshSecret),
		RefreshExpiresIn: cfg.JWTRefreshExpiresIn,
	})
	if err != nil {
		return fmt.Errorf("build token codec: %w", err)
	}

	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		Sender:   cfg.MailerSender,
	})

	queueOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
	queueClient := queue.NewClient(queueOpt)
	defer queueClient.Close()

	authService, err := auth.NewService(auth.Config{
		AppOrigin:        cfg.AppOrigin,
		RefreshExpiresIn: cfg.JWTRefreshExpiresIn,
	}, repos.Users, repos.Sessions, repos.Codes, pending.NewStore(redisClient),
		hash.NewBcrypt(hash.DefaultCost), codec, queueClient, mailer, logger)
	if err != nil {
		return fmt.Errorf("build auth service: %w", err)
	}

	services := httpapi.Services{
		Auth:     authService,
		MFA:      mfa.NewService(repos.Users, authService, logger),
		Sessions: session.NewService(repos.Sessions, repos.Users, logger),
		Users:    user.NewService(repos.Users),
	}

	router := httpapi.NewRouter(httpapi.RouterConfig{
		BasePath:         cfg.BasePath,
		AppOrigin:        cfg.AppOrigin,
		Production:       cfg.IsProduction(),
		AccessExpiresIn:  cfg.JWTExpiresIn,
		RefreshExpiresIn: cfg.JWTRefreshExpiresIn,
		Google: httpapi.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.GoogleCallbackURL,
		},
	}, codec, services, repos.Users, logger)

	worker := queue.NewServer(queueOpt)
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- worker.Run(queue.NewMux(mailer, logger))
	}()

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Env)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case err := <-workerErr:
		return fmt.Errorf("email worker: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http shutdown failed", "error", err)
	}
	worker.Shutdown()

	return nil
}
