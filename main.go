package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"

	"github.com/IsacDav66/Criptobot/internal/api"
	"github.com/IsacDav66/Criptobot/internal/audit"
	"github.com/IsacDav66/Criptobot/internal/command"
	"github.com/IsacDav66/Criptobot/internal/controller"
	"github.com/IsacDav66/Criptobot/internal/events"
	"github.com/IsacDav66/Criptobot/internal/market"
	"github.com/IsacDav66/Criptobot/internal/monitor"
	"github.com/IsacDav66/Criptobot/internal/reconcile"
	aisignal "github.com/IsacDav66/Criptobot/internal/signal"
	"github.com/IsacDav66/Criptobot/internal/status"
	"github.com/IsacDav66/Criptobot/pkg/config"
	"github.com/IsacDav66/Criptobot/pkg/db"
	"github.com/IsacDav66/Criptobot/pkg/exchanges/binance/spot"
	binancemkt "github.com/IsacDav66/Criptobot/pkg/market/binance"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.Printf("starting: symbol=%s testnet=%v port=%s", cfg.Symbol, cfg.Testnet, cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}
	log.Printf("database ready at %s", cfg.DBPath)

	// Exchange gateway
	gateway := spot.New(spot.Config{
		APIKey:    cfg.BinanceAPIKey,
		APISecret: cfg.BinanceAPISecret,
		Testnet:   cfg.Testnet,
	})
	if err := gateway.Ping(); err != nil {
		log.Fatalf("exchange unreachable: %v", err)
	}

	// Market data and AI signal service
	marketClient := binancemkt.NewClient(cfg.Testnet)
	provider := market.NewBinanceProvider(marketClient, cfg.Symbol, cfg.CandleInterval, cfg.CandleLookback)

	if cfg.GeminiAPIKey == "" {
		log.Println("warning: GOOGLE_AI_API_KEY not set, AI signals run in simulation mode")
	}
	signals := aisignal.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Symbol, cfg.BaseAsset, cfg.QuoteAsset)

	// Controller plumbing
	rules, err := controller.LoadRules(cfg.RulesPath, cfg)
	if err != nil {
		log.Fatalf("load rules: %v", err)
	}
	commands := command.NewSlot()
	statuses := status.NewStore(bus)
	sink := audit.NewDBSink(database, bus)
	metrics := monitor.NewMetrics()

	ctrl := controller.New(cfg, rules, gateway, provider, signals, commands, sink, statuses, metrics)
	if err := ctrl.Init(ctx); err != nil {
		log.Fatalf("controller init: %v", err)
	}

	// Rebuild state from the exchange before the first cycle.
	refPrice := decimal.Zero
	if ticker, err := marketClient.GetTicker(ctx, cfg.Symbol); err != nil {
		log.Printf("warning: ticker fetch failed, reconciling with zero reference price: %v", err)
	} else {
		refPrice = decimal.NewFromFloat(ticker.Price)
	}
	pos, pending, err := reconcile.Run(ctx, gateway, cfg, refPrice)
	if err != nil {
		log.Fatalf("startup reconciliation: %v", err)
	}
	ctrl.Restore(pos, pending)

	// Dashboard API
	server := api.NewServer(cfg, bus, database, statuses, commands, metrics, marketClient)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server: %v", err)
		}
	}()

	go ctrl.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down")
	cancel()
}
