package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mediarise/neuromarket/internal/admin"
	"github.com/mediarise/neuromarket/internal/config"
	"github.com/mediarise/neuromarket/internal/database"
	"github.com/mediarise/neuromarket/internal/kie"
	"github.com/mediarise/neuromarket/internal/poller"
	"github.com/mediarise/neuromarket/internal/repository"
	"github.com/mediarise/neuromarket/internal/service"
	"github.com/mediarise/neuromarket/internal/storage"
	"github.com/mediarise/neuromarket/internal/telegram"
	"github.com/mediarise/neuromarket/internal/verifier"
	"github.com/mediarise/neuromarket/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	if cfg.KIEAPIKey == "" {
		logr.Warn("KIE_API_KEY is not set, generation requests will be refused")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("database connect: %v", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("database migrate: %v", err)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatalf("telegram bot: %v", err)
	}

	kieClient := kie.NewClient(cfg, logr)

	ledgerRepo := repository.NewLedgerRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	generationRepo := repository.NewGenerationRepository(db)

	ledgerService := service.NewLedgerService(cfg, ledgerRepo, paymentRepo)
	generationService := service.NewGenerationService(logr, ledgerService, generationRepo, kieClient)

	ocr := verifier.NewTesseractExtractor(cfg.TesseractCmd)
	screenshotVerifier := verifier.New(ocr, logr)
	topupService := service.NewTopUpService(cfg, logr, ledgerService, screenshotVerifier)

	uploader, err := storage.NewUploader(storage.Config{
		Endpoint:      cfg.S3Endpoint,
		Region:        cfg.S3Region,
		AccessKey:     cfg.S3AccessKey,
		SecretKey:     cfg.S3SecretKey,
		Bucket:        cfg.S3Bucket,
		PublicBaseURL: cfg.S3PublicBaseURL,
		UsePathStyle:  cfg.S3UsePathStyle,
		Prefix:        cfg.S3Prefix,
	})
	if err != nil {
		log.Fatalf("storage uploader: %v", err)
	}

	pollers := poller.NewRegistry(kieClient, cfg.PollInterval, cfg.PollMaxAttempts, logr)

	bot := telegram.NewBot(cfg, botAPI, logr, ledgerService, generationService, topupService, kieClient, uploader, pollers)

	adminServer := admin.NewServer(cfg.AdminListenAddr, cfg.AdminUsername, cfg.AdminPassword, logr, ledgerService, generationService, botAPI)
	go func() {
		if err := adminServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logr.Error("admin server stopped", "err", err)
		}
	}()

	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("bot stopped", "err", err)
	}
}
