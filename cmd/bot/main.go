package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/achupradeep3050/crypto/internal/infrastructure/gateway"
	"github.com/achupradeep3050/crypto/internal/infrastructure/logger"
	"github.com/achupradeep3050/crypto/internal/infrastructure/notify"
	"github.com/achupradeep3050/crypto/internal/infrastructure/storage"
	"github.com/achupradeep3050/crypto/internal/strategy"
	"github.com/achupradeep3050/crypto/internal/usecase"
	"github.com/achupradeep3050/crypto/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	envFile := flag.String("env", ".env", "path to .env overrides")
	autostart := flag.Bool("autostart", false, "start every engine immediately")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(*envFile); err != nil {
		fmt.Printf("Failed to apply env overrides: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewStore(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Fatal("Failed to init storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}
	defer store.Close()

	// 4. Runtime settings and gateway
	settings := config.NewSettings(cfg.Gateway.URL, cfg.Risk.Percent).PersistTo(*envFile)
	agent := gateway.NewAgentClient(settings, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 5. Event dispatch
	hub := web.NewHub(log)
	dispatcher := usecase.NewDispatcher(256, log, hub)
	telegram := notify.NewTelegram(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID)
	if telegram.Enabled() {
		dispatcher.Add(telegram)
		log.Info("Telegram notifications enabled")
	}
	if cfg.Notify.Influx.URL != "" {
		influx, err := notify.NewInflux(notify.InfluxConfig{
			URL:      cfg.Notify.Influx.URL,
			User:     cfg.Notify.Influx.User,
			Password: cfg.Notify.Influx.Password,
			Database: cfg.Notify.Influx.Database,
		})
		if err != nil {
			log.Error("Failed to init influx, metrics disabled", zap.Error(err))
		} else {
			defer influx.Close()
			dispatcher.Add(influx)
		}
	}
	go dispatcher.Run(ctx)

	// 6. Heartbeat
	heartbeat := usecase.NewHeartbeat(agent, dispatcher, log)
	go heartbeat.Run(ctx, cfg.HeartbeatInterval())

	// 7. Engines
	executor := usecase.NewTradeExecutor(agent, store, log)
	var engines []*usecase.Engine
	for _, ec := range cfg.Engines {
		strat, err := strategy.New(ec.Strategy)
		if err != nil {
			log.Fatal("Unknown strategy", zap.String("engine", ec.Name), zap.Error(err))
		}
		mode, err := cfg.Mode(ec.Mode)
		if err != nil {
			log.Fatal("Unknown mode", zap.String("engine", ec.Name), zap.Error(err))
		}

		engineLog := log
		if ec.LogFile != "" {
			engineLog, err = logger.NewFileLogger(ec.LogFile, cfg.Logging.Level)
			if err != nil {
				log.Error("Failed to init engine logger, using default", zap.String("engine", ec.Name), zap.Error(err))
				engineLog = log
			}
		}

		symbols := make([]string, 0, len(ec.Symbols))
		engineSpecs := make(map[string]domain.SymbolSpec)
		for _, s := range ec.Symbols {
			s = strings.ToUpper(s)
			symbols = append(symbols, s)
			engineSpecs[s] = cfg.SymbolSpec(s)
		}

		engine := usecase.NewEngine(usecase.EngineConfig{
			Name:         ec.Name,
			Mode:         mode,
			Symbols:      symbols,
			CandleCount:  cfg.Polling.CandleCount,
			SymbolDelay:  cfg.SymbolDelay(),
			FetchTimeout: cfg.GatewayTimeout(),
			Specs:        engineSpecs,
		}, strat, agent, store, executor, heartbeat, settings, dispatcher, engineLog)
		if *autostart {
			engine.Start()
		}
		go engine.Run(ctx, cfg.PollInterval())
		engines = append(engines, engine)
		log.Info("Engine ready", zap.String("engine", ec.Name), zap.String("strategy", strat.Name()), zap.Strings("symbols", symbols))
	}

	// 8. Backtests
	specs := make(map[string]domain.SymbolSpec, len(cfg.Symbols))
	for s := range cfg.Symbols {
		specs[s] = cfg.SymbolSpec(s)
	}
	loader := usecase.NewCandleLoader(store, agent, cfg.Backtest.FetchSize, log)
	backtests := usecase.NewBacktestService(loader, strategy.New, settings, usecase.BacktestConfig{
		Warmup:       cfg.Backtest.Warmup,
		StartBalance: cfg.Backtest.StartBalance,
		Specs:        specs,
	}, dispatcher, log)
	backtests.Start(ctx, cfg.Backtest.Workers)

	// 9. Web Server
	server := web.NewServer(cfg.Server.Port, web.Deps{
		Engines:   engines,
		Settings:  settings,
		Heartbeat: heartbeat,
		Backtests: backtests,
		Candles:   store,
		Trades:    store,
		Modes:     cfg,
		Hub:       hub,
	}, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 10. Wait for Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down...")
	for _, e := range engines {
		e.Stop()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	cancel()
}
