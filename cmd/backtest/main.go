package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/achupradeep3050/crypto/internal/infrastructure/gateway"
	"github.com/achupradeep3050/crypto/internal/infrastructure/logger"
	"github.com/achupradeep3050/crypto/internal/infrastructure/notify"
	"github.com/achupradeep3050/crypto/internal/infrastructure/storage"
	"github.com/achupradeep3050/crypto/internal/strategy"
	"github.com/achupradeep3050/crypto/internal/usecase"
	"github.com/gocarina/gocsv"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	strategyName := flag.String("strategy", "tma", "strategy name: "+strings.Join(strategy.Names(), ", "))
	symbol := flag.String("symbol", "BTCUSD", "symbol to replay")
	modeName := flag.String("mode", "4H1H", "timeframe mode")
	from := flag.String("start", time.Now().AddDate(0, -3, 0).Format(dateLayout), "start date (YYYY-MM-DD)")
	to := flag.String("end", time.Now().Format(dateLayout), "end date (YYYY-MM-DD)")
	balance := flag.Float64("balance", 0, "starting balance (default from config)")
	dataFile := flag.String("data", "", "replay candles from a CSV file instead of the store")
	outDir := flag.String("out", "backtests", "output directory for CSV and report")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		fmt.Printf("Failed to apply env overrides: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	start, err := time.Parse(dateLayout, *from)
	if err != nil {
		log.Fatal("Invalid start date", zap.Error(err))
	}
	end, err := time.Parse(dateLayout, *to)
	if err != nil {
		log.Fatal("Invalid end date", zap.Error(err))
	}
	if *balance <= 0 {
		*balance = cfg.Backtest.StartBalance
	}
	sym := strings.ToUpper(*symbol)

	var res *usecase.Result
	if *dataFile != "" {
		res, err = replayFile(*dataFile, *strategyName, sym, *balance, cfg)
	} else {
		res, err = replayStore(cfg, log, usecase.BacktestRequest{
			Strategy:     *strategyName,
			Symbol:       sym,
			Start:        start.Unix(),
			End:          end.Add(24*time.Hour - time.Second).Unix(),
			StartBalance: *balance,
		}, *modeName)
	}
	if err != nil {
		log.Fatal("Backtest failed", zap.Error(err))
	}

	if err := export(*outDir, res, *from, *to); err != nil {
		log.Fatal("Export failed", zap.Error(err))
	}
	if cfg.Notify.Influx.URL != "" {
		if err := logStats(cfg, res); err != nil {
			log.Warn("Failed to write stats to influx", zap.Error(err))
		}
	}

	fmt.Printf("%s %s: %d trades, win rate %.1f%%, balance %.2f -> %.2f (ROI %.2f%%)\n",
		res.Strategy, res.Symbol, res.TotalTrades, res.WinRate*100, res.StartBalance, res.FinalBalance, res.Stats.ROI)
	if res.Liquidated {
		fmt.Println("Account was liquidated")
	}
}

func replayStore(cfg *config.Config, log *zap.Logger, req usecase.BacktestRequest, modeName string) (*usecase.Result, error) {
	mode, err := cfg.Mode(modeName)
	if err != nil {
		return nil, err
	}
	req.Mode = mode

	store, err := storage.NewStore(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	settings := config.NewSettings(cfg.Gateway.URL, cfg.Risk.Percent)
	agent := gateway.NewAgentClient(settings, log)
	loader := usecase.NewCandleLoader(store, agent, cfg.Backtest.FetchSize, log)

	svc := usecase.NewBacktestService(loader, strategy.New, settings, usecase.BacktestConfig{
		Warmup:       cfg.Backtest.Warmup,
		StartBalance: cfg.Backtest.StartBalance,
		Specs:        map[string]domain.SymbolSpec{req.Symbol: cfg.SymbolSpec(req.Symbol)},
	}, nil, log)
	return svc.Run(context.Background(), req)
}

// replayFile runs a single-timeframe simulation over candles read from CSV.
func replayFile(path, name, symbol string, balance float64, cfg *config.Config) (*usecase.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var candles []domain.Candle
	if err := gocsv.UnmarshalFile(f, &candles); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	strat, err := strategy.New(name)
	if err != nil {
		return nil, err
	}
	res, err := usecase.Simulate(strat, usecase.SimulationInput{
		Symbol:       symbol,
		Candles:      candles,
		StartBalance: balance,
		RiskPercent:  cfg.Risk.Percent,
		Warmup:       cfg.Backtest.Warmup,
		Constraints:  cfg.SymbolSpec(symbol).Volume,
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func export(dir string, res *usecase.Result, from, to string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	base := filepath.Join(dir, fmt.Sprintf("%s_%s_%s_%s", res.Strategy, res.Symbol, from, to))

	if err := writeCSV(base+"_trades.csv", &res.Trades); err != nil {
		return err
	}
	if err := writeCSV(base+"_equity.csv", &res.Equity); err != nil {
		return err
	}

	report, err := os.Create(base + "_report.md")
	if err != nil {
		return err
	}
	defer report.Close()
	return writeReport(report, res, from, to)
}

func writeCSV(path string, v interface{}) error {
	os.Remove(path)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return gocsv.MarshalFile(v, f)
}

func logStats(cfg *config.Config, res *usecase.Result) error {
	influx, err := notify.NewInflux(notify.InfluxConfig{
		URL:      cfg.Notify.Influx.URL,
		User:     cfg.Notify.Influx.User,
		Password: cfg.Notify.Influx.Password,
		Database: cfg.Notify.Influx.Database,
	})
	if err != nil {
		return err
	}
	defer influx.Close()
	return influx.WriteStruct("backtest", map[string]string{
		"strategy": res.Strategy,
		"symbol":   res.Symbol,
	}, res.Stats)
}
