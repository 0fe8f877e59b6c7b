package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/topupstore/topup-api/internal/config"
	"github.com/topupstore/topup-api/internal/domain/admin"
	"github.com/topupstore/topup-api/internal/domain/auth"
	"github.com/topupstore/topup-api/internal/domain/catalog"
	"github.com/topupstore/topup-api/internal/domain/ledger"
	"github.com/topupstore/topup-api/internal/domain/order"
	"github.com/topupstore/topup-api/internal/domain/recharge"
	"github.com/topupstore/topup-api/internal/domain/settlement"
	"github.com/topupstore/topup-api/internal/domain/user"
	"github.com/topupstore/topup-api/internal/domain/wallet"
	"github.com/topupstore/topup-api/internal/middleware"
	"github.com/topupstore/topup-api/internal/pkg/database"
	"github.com/topupstore/topup-api/internal/pkg/gameapi"
	"github.com/topupstore/topup-api/internal/pkg/gateway"
	"github.com/topupstore/topup-api/internal/pkg/jwt"
	"github.com/topupstore/topup-api/internal/pkg/logger"
	"github.com/topupstore/topup-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.Env)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Topup API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	adminJWTService := admin.NewJWTService(cfg.AdminJWTSecret, cfg.AdminJWTTTL)

	gatewayClient := gateway.NewClient(gateway.Config{
		BaseURL:    cfg.GatewayBaseURL,
		MerchantID: cfg.GatewayMerchantID,
		SecretKey:  cfg.GatewaySecretKey,
		Timeout:    time.Duration(cfg.GatewayTimeoutSeconds) * time.Second,
	})
	gameClient := gameapi.NewClient(cfg.GameAPIBaseURL, cfg.GameAPIToken,
		time.Duration(cfg.GameAPITimeoutSeconds)*time.Second)

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	walletRepo := wallet.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)
	catalogRepo := catalog.NewRepository(db)
	orderRepo := order.NewRepository(db)
	adminRepo := admin.NewRepository(db)

	// ---------- Services ----------
	walletService := wallet.NewService(walletRepo)
	catalogService := catalog.NewService(catalogRepo)
	adminService := admin.NewService(adminRepo)
	authService := auth.NewService(userRepo, walletService, jwtService, redis)

	// One engine per reconciled table. Both run the same claim/confirm/
	// commit machine; they differ only in where rows live and what the
	// terminal action does.
	walletEngine := settlement.NewEngine(
		settlement.NewLedgerStore(ledgerRepo),
		settlement.NewWalletCredit(walletService),
	)
	orderEngine := settlement.NewEngine(
		order.NewSettlementStore(orderRepo),
		order.NewPaidAction(),
	)

	callbackURL := cfg.BackendURL + "/webhooks/gateway"

	orderService := order.NewService(
		orderRepo, catalogService, ledgerRepo,
		walletEngine, orderEngine, gatewayClient, gameClient,
		order.ServiceConfig{
			ReturnURL:   cfg.FrontendURL + "/orders",
			CallbackURL: callbackURL,
		},
	)
	rechargeService := recharge.NewService(
		ledgerRepo, walletService, walletEngine, gatewayClient,
		adminService, // runtime flag lookups with config fallback
		recharge.ServiceConfig{
			Enabled:     cfg.WalletRechargeEnabled,
			ReturnURL:   cfg.FrontendURL + "/wallet",
			CallbackURL: callbackURL,
		},
	)

	// ---------- Handlers ----------
	authHandler := auth.NewHandler(authService)
	catalogHandler := catalog.NewHandler(catalogService)
	orderHandler := order.NewHandler(orderService)
	rechargeHandler := recharge.NewHandler(rechargeService)

	webhookHandler := settlement.NewWebhookHandler(walletEngine, orderEngine, cfg.GatewaySecretKey)
	webhookHandler.OnOrderSettled(orderService.HandleSettled)

	adminHandler := admin.NewHandler(
		adminService, adminJWTService,
		userRepo, ledgerRepo, orderRepo, orderService,
		walletService, walletEngine, orderEngine,
	)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.Routes(authMiddleware))
		r.Mount("/products", catalogHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireCustomer())
			r.Mount("/wallet", rechargeHandler.Routes())
			r.Mount("/orders", orderHandler.Routes())
		})
	})

	r.Mount("/webhooks", webhookHandler.Routes())
	r.Mount("/api/admin", adminHandler.Routes())

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}
