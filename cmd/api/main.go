package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"content-paywall/internal/client"
	"content-paywall/internal/config"
	"content-paywall/internal/repository"
	"content-paywall/internal/server"
	"content-paywall/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitSqliteClient(cfg.DatabaseURL)
	paypalClient := client.NewPaypalClient(&cfg.Paypal, cfg.BaseURL)
	telegramClient := client.NewTelegramClient(&cfg.Telegram)
	classifier := client.NewClassifier(&cfg.Classifier)

	accountRepo := repository.NewAccountRepository(db)
	contentRepo := repository.NewContentRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	entitlementRepo := repository.NewEntitlementRepository(db)
	dripRepo := repository.NewDripRepository(db)
	loyaltyRepo := repository.NewLoyaltyRepository(db)
	requestRepo := repository.NewCustomRequestRepository(db)
	refRepo := repository.NewPaymentRefRepository(db)
	eventRepo := repository.NewWebhookEventRepository(db)

	pricingService := service.NewPricingService(campaignRepo)
	entitlementService := service.NewEntitlementService(accountRepo, contentRepo, entitlementRepo)
	subscriptionService := service.NewSubscriptionService(db, paypalClient, accountRepo, subRepo, refRepo)
	orderService := service.NewOrderService(
		db, paypalClient, telegramClient, telegramClient,
		pricingService, entitlementService, subscriptionService,
		accountRepo, contentRepo, orderRepo, requestRepo, refRepo, eventRepo,
	)
	loyaltyService := service.NewLoyaltyService(db, accountRepo, contentRepo, loyaltyRepo, entitlementService)
	catalogService := service.NewCatalogService(
		contentRepo, campaignRepo, dripRepo, accountRepo,
		pricingService, entitlementService, classifier,
	)
	requestService := service.NewCustomRequestService(
		db, paypalClient, telegramClient,
		requestRepo, accountRepo, contentRepo, refRepo,
	)

	sweepCtx, stopSweeps := context.WithCancel(context.Background())
	sweeper := service.NewSweeper(
		db, cfg.Sweep, telegramClient, telegramClient,
		accountRepo, contentRepo, campaignRepo, dripRepo, subRepo,
		entitlementService,
	)
	sweeper.Start(sweepCtx)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(
		cfg, accountRepo,
		catalogService, entitlementService, orderService,
		subscriptionService, loyaltyService, requestService,
	)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	stopSweeps()

	_, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
