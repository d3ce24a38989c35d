package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"communityhub/internal/db"
	"communityhub/internal/mail"
	"communityhub/internal/notify"
	"communityhub/internal/server"
	"communityhub/internal/storage"
	"communityhub/internal/store"
	"communityhub/internal/uploads"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	if err := db.Migrate(config, logger); err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	var blobs storage.Blob
	switch config.StorageDriver {
	case "s3":
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}

		blobs = storage.NewS3Storage(s3.NewFromConfig(awsConfig), config.S3Bucket, config.StorageRoot)
	default:
		blobs = storage.NewDiskStorage(config.StorageRoot)
	}

	userRepo := store.NewUserRepository(pool)
	communityRepo := store.NewCommunityRepository(pool)
	eventRepo := store.NewEventRepository(pool)
	resourceRepo := store.NewResourceRepository(pool)
	ticketRepo := store.NewTicketRepository(pool, userRepo)
	fileRepo := store.NewFileRepository(pool)
	notificationRepo := store.NewNotificationRepository(pool)

	uploadManager := uploads.NewManager(fileRepo, blobs, logger)
	notifier := notify.NewNotifier(notificationRepo, logger)

	mailer, err := mail.NewMailer(config)
	if err != nil {
		return err
	}

	srv, err := server.New(
		config,
		logger,
		userRepo,
		communityRepo,
		eventRepo,
		resourceRepo,
		ticketRepo,
		fileRepo,
		notificationRepo,
		uploadManager,
		notifier,
		mailer,
		blobs,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
