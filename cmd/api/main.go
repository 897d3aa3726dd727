package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sports-playlist/internal/application/auth"
	"github.com/sports-playlist/internal/application/demo"
	"github.com/sports-playlist/internal/application/match"
	"github.com/sports-playlist/internal/application/notification"
	"github.com/sports-playlist/internal/application/playlist"
	"github.com/sports-playlist/internal/application/reconcile"
	"github.com/sports-playlist/internal/application/seed"
	"github.com/sports-playlist/internal/config"
	"github.com/sports-playlist/internal/infrastructure/dynamo"
	jwtinfra "github.com/sports-playlist/internal/infrastructure/jwt"
	s3infra "github.com/sports-playlist/internal/infrastructure/s3"
	"github.com/sports-playlist/internal/infrastructure/sns"
	"github.com/sports-playlist/internal/realtime"
	"github.com/sports-playlist/internal/supervisor"
	transporthttp "github.com/sports-playlist/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)
	if envErr != nil {
		logger.Info("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dynamoClient, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return err
	}
	if err := dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables, logger); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}
	userRepo := dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	matchRepo := dynamo.NewMatchRepo(dynamoClient, cfg.DynamoTables.Matches)
	playlistRepo := dynamo.NewPlaylistRepo(dynamoClient, cfg.DynamoTables.Playlists)

	if cfg.SeedData {
		if _, err := seed.Run(ctx, seed.Deps{UserRepo: userRepo, MatchRepo: matchRepo, Logger: logger}); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}

	s3Client, err := s3infra.NewClient(ctx, cfg)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(logger)
	channels := []notification.Channel{hub}
	if cfg.SNSTopicARN != "" {
		snsClient, err := sns.NewClient(ctx, cfg)
		if err != nil {
			return err
		}
		channels = append(channels, sns.NewPublisher(snsClient, cfg.SNSTopicARN))
	} else {
		logger.Info("SNS topic not configured, notifications go to websocket clients only")
	}
	notifier := notification.NewService(notification.ServiceDeps{Channels: channels, Logger: logger})

	open := reconcile.SessionOpener(func(ctx context.Context) (reconcile.Session, error) {
		return matchRepo.Begin(ctx)
	})
	reconciler := reconcile.NewReconciler(reconcile.ReconcilerDeps{
		Open:       open,
		Notifier:   notifier,
		LiveWindow: cfg.Reconcile.LiveWindow,
		Logger:     logger,
	})

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		AuthService: auth.NewService(auth.ServiceDeps{UserRepo: userRepo, JWTProvider: jwtProvider}),
		MatchService: match.NewService(match.ServiceDeps{
			MatchRepo:    matchRepo,
			PlaylistRepo: playlistRepo,
			Presigner:    s3infra.NewStreamPresigner(s3Client, cfg.StreamBucket),
			Logger:       logger,
		}),
		PlaylistService: playlist.NewService(playlist.ServiceDeps{
			PlaylistRepo: playlistRepo,
			MatchRepo:    matchRepo,
			Notifier:     notifier,
		}),
		JWTVerifier: jwtProvider,
		Hub:         hub,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	tree := supervisor.NewTree("sports-playlist", logger, supervisor.DefaultTreeConfig())
	tree.AddWorker(hub)
	tree.AddWorker(reconcile.NewScheduler(reconcile.SchedulerDeps{
		Name:     "reconcile-scheduler",
		Pass:     reconciler.ReconcileOnce,
		Interval: cfg.Reconcile.Interval,
		Logger:   logger,
	}))
	if cfg.Demo.Enabled {
		randomiser := demo.NewRandomiser(demo.RandomiserDeps{
			Open:     open,
			Notifier: notifier,
			Rand:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
			Logger:   logger,
		})
		tree.AddWorker(reconcile.NewScheduler(reconcile.SchedulerDeps{
			Name:     "demo-scheduler",
			Pass:     randomiser.RandomiseOnce,
			Interval: cfg.Demo.Interval,
			Logger:   logger,
		}))
		logger.Warn("demo mode enabled, match statuses will change at random", "interval", cfg.Demo.Interval)
	}
	tree.AddAPI(supervisor.NewHTTPService(srv, 10*time.Second))

	logger.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv)
	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		logger.Warn("services did not stop in time", "count", len(report))
	}
	logger.Info("server stopped")
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
