// cmd/worker/main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/mantlz/campaigns-backend/internal/config"
	"github.com/mantlz/campaigns-backend/internal/db"
	"github.com/mantlz/campaigns-backend/internal/logger"
	"github.com/mantlz/campaigns-backend/internal/mailer"
	"github.com/mantlz/campaigns-backend/internal/queue"
	"github.com/mantlz/campaigns-backend/internal/repository"
	"github.com/mantlz/campaigns-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("worker", "info")
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New("worker", cfg.LogLevel)

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	q, err := queue.Dial(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("queue connection failed")
	}
	defer q.Close()

	transport, err := mailer.New(mailer.Config{
		Provider:     cfg.EmailProvider,
		ResendAPIKey: cfg.ResendAPIKey,
		SMTPHost:     cfg.SMTPHost,
		SMTPPort:     cfg.SMTPPort,
		SMTPUser:     cfg.SMTPUser,
		SMTPPassword: cfg.SMTPPassword,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("transport setup failed")
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	recipientRepo := &repository.RecipientRepository{DB: conn}
	receiptRepo := &repository.ReceiptRepository{DB: conn}
	submissionRepo := &repository.SubmissionRepository{DB: conn}
	accountRepo := &repository.AccountRepository{DB: conn}
	formRepo := &repository.FormRepository{DB: conn}

	links := service.NewLinkBuilder(cfg.TrackingBaseURL, cfg.SigningSecret)

	dispatcher := service.NewDispatcher(
		campaignRepo, recipientRepo, receiptRepo, submissionRepo, accountRepo, formRepo,
		transport, links, cfg.DefaultSender,
		cfg.BatchSize, cfg.BatchPause, cfg.SendTimeout,
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Heal campaigns stranded in sending by a previous crash, then keep
	// rescanning on an interval.
	reconciler := &service.Reconciler{
		Campaigns:  campaignRepo,
		Recipients: recipientRepo,
		Dispatcher: dispatcher,
		Interval:   cfg.ReconcileInterval,
		Log:        log,
	}
	reconciler.Start(ctx)
	defer reconciler.Stop()

	log.Info().Msg("worker running, waiting for send jobs")
	if err := q.Consume(func(job queue.SendJob) error {
		return dispatcher.Run(ctx, job.CampaignID)
	}); err != nil {
		log.Fatal().Err(err).Msg("consumer stopped")
	}
}
