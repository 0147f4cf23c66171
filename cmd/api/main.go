package main

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/storelink/storelink-golang/internal/config"
	"github.com/storelink/storelink-golang/internal/database"
	"github.com/storelink/storelink-golang/internal/handlers"
	"github.com/storelink/storelink-golang/internal/ledger"
	"github.com/storelink/storelink-golang/internal/logger"
	"github.com/storelink/storelink-golang/internal/paystack"
	"github.com/storelink/storelink-golang/internal/routes"
	"github.com/storelink/storelink-golang/internal/settlement"
)

// Standard plan pricing. A plans table is overkill while there is exactly
// one plan; revisit when a second tier ships.
const (
	planName       = "standard"
	planPriceNaira = 5000.0
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	// 1. --- Database Connection ---
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 2. --- Core Wiring ---
	store := ledger.NewStore(db)
	gateway := paystack.NewClient(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey)
	attempts := settlement.NewAttemptRegistry()

	app := &handlers.Handlers{
		Store:   store,
		Gateway: gateway,
		Orders: &settlement.OrderActivator{
			Gateway:    gateway,
			Ledger:     store,
			Attempts:   attempts,
			FeePercent: cfg.PlatformFeePercent,
			Log:        zlog,
		},
		Subscriptions: &settlement.SubscriptionActivator{
			Gateway:        gateway,
			Ledger:         store,
			Attempts:       attempts,
			Plan:           planName,
			PlanPriceNaira: planPriceNaira,
			Log:            zlog,
		},
		Confirmer: &settlement.Confirmer{
			Ledger: store,
			Log:    zlog,
		},
		Cfg: cfg,
		Log: zlog,
	}

	// 3. --- Background Worker ---
	// Hides shops whose subscription period has lapsed.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		zlog.Info("lapse worker started")
		for range ticker.C {
			app.ProcessLapsedShops()
		}
	}()

	// 4. --- Router Setup ---
	router := routes.SetupRouter(app, []byte(cfg.Auth.JWTSecret))

	zlog.Info("starting API server", zap.String("addr", cfg.HTTP.Addr()))
	if err := router.Run(cfg.HTTP.Addr()); err != nil {
		zlog.Fatal("server exited", zap.Error(err))
	}
}
