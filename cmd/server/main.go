// cmd/server/main.go
package main

import (
	"net/http"

	"github.com/mantlz/campaigns-backend/internal/config"
	"github.com/mantlz/campaigns-backend/internal/db"
	"github.com/mantlz/campaigns-backend/internal/handler"
	"github.com/mantlz/campaigns-backend/internal/logger"
	"github.com/mantlz/campaigns-backend/internal/mailer"
	"github.com/mantlz/campaigns-backend/internal/queue"
	"github.com/mantlz/campaigns-backend/internal/repository"
	"github.com/mantlz/campaigns-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("server", "info")
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New("server", cfg.LogLevel)

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
	testContactRepo := &repository.TestContactRepository{DB: conn}
	accountRepo := &repository.AccountRepository{DB: conn}
	formRepo := &repository.FormRepository{DB: conn}

	links := service.NewLinkBuilder(cfg.TrackingBaseURL, cfg.SigningSecret)

	campaignService := &service.CampaignService{
		Campaigns:  campaignRepo,
		Recipients: recipientRepo,
		Forms:      formRepo,
		Selector:   &service.Selector{Contacts: submissionRepo},
		Quota:      &service.QuotaGuard{Accounts: accountRepo, Campaigns: campaignRepo},
		Queue:      q,
		Log:        log,
	}

	testSendService := &service.TestSendService{
		Campaigns:     campaignRepo,
		Accounts:      accountRepo,
		Forms:         formRepo,
		TestContacts:  testContactRepo,
		Receipts:      receiptRepo,
		Transport:     transport,
		Links:         links,
		DefaultSender: cfg.DefaultSender,
		SendTimeout:   cfg.SendTimeout,
		Log:           log,
	}

	trackingService := &service.TrackingService{
		Receipts:   receiptRepo,
		Recipients: recipientRepo,
		Campaigns:  campaignRepo,
		Log:        log,
	}

	router := handler.NewRouter(
		&handler.CampaignHandler{Service: campaignService, TestSend: testSendService, Log: log},
		&handler.TrackingHandler{
			Tracking:  trackingService,
			Campaigns: campaignRepo,
			Contacts:  submissionRepo,
			Links:     links,
			BaseURL:   cfg.TrackingBaseURL,
			Log:       log,
		},
		conn,
	)

	log.Info().Str("addr", cfg.HTTPAddr).Msg("server listening")
	if err := http.ListenAndServe(cfg.HTTPAddr, router); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
