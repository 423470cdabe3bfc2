package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dejem9gb/dejem/internal/auth"
	"github.com/dejem9gb/dejem/internal/config"
	"github.com/dejem9gb/dejem/internal/db"
	internalhttp "github.com/dejem9gb/dejem/internal/http"
	"github.com/dejem9gb/dejem/internal/mailer"
	"github.com/dejem9gb/dejem/internal/repo"
	"github.com/dejem9gb/dejem/internal/service"
	"github.com/dejem9gb/dejem/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("api encerrada com erro")
	}
}

func run() error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis parse: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	var m mailer.Mailer
	if cfg.Brevo.APIKey != "" {
		m, err = mailer.NewBrevo(cfg.Brevo)
		if err != nil {
			return fmt.Errorf("mailer: %w", err)
		}
	} else {
		log.Warn().Msg("BREVO_API_KEY ausente, e-mails só em log")
		m = mailer.LogMailer{}
	}

	uploader, err := storage.NewFromConfig(cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}

	repository := repo.New(pool)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTTL)
	authService := service.NewAuthService(repository, redisClient, jwtManager, m, cfg.JWTRefreshTTL, cfg.NivelCacheTTL, cfg.SenhaTempTTL)

	handler := internalhttp.NewRouter(cfg, pool, redisClient, authService, m, uploader)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("API ouvindo em :%d", cfg.Port)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("encerrando...")
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
