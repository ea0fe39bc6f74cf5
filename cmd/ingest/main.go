package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/domain"
	"github.com/achupradeep3050/crypto/internal/infrastructure/gateway"
	"github.com/achupradeep3050/crypto/internal/infrastructure/logger"
	"github.com/achupradeep3050/crypto/internal/infrastructure/storage"
	"go.uber.org/zap"
)

const (
	maxCandles  = 100000
	minCandles  = 1000
	maxAttempts = 5

	fetchTimeout = 120 * time.Second
)

var timeframeMinutes = map[string]int{
	"1m":  1,
	"5m":  5,
	"15m": 15,
	"45m": 45,
	"1h":  60,
	"4h":  240,
	"D1":  1440,
}

// candleTarget is the bar count covering years of history plus a 10% buffer.
func candleTarget(timeframe string, years int) int {
	tf, ok := timeframeMinutes[timeframe]
	if !ok {
		tf = 60
	}
	n := years * 365 * 24 * 60 / tf
	n = int(float64(n) * 1.1)
	if n > maxCandles {
		n = maxCandles
	}
	return n
}

// ingestSeries fetches n bars and halves n whenever the gateway answers 404.
func ingestSeries(ctx context.Context, gw domain.Gateway, store domain.CandleRepository, symbol, timeframe string, n int, log *zap.Logger) (int, error) {
	for attempt := 0; attempt < maxAttempts && n >= minCandles; attempt++ {
		log.Info("Fetching candles", zap.String("symbol", symbol), zap.String("timeframe", timeframe), zap.Int("n", n))

		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		candles, err := gw.GetCandles(fetchCtx, symbol, timeframe, n)
		cancel()
		var apiErr *gateway.APIError
		switch {
		case err == nil:
			return store.SaveCandles(ctx, symbol, timeframe, candles)
		case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
			log.Warn("404 from gateway, retrying with half", zap.Int("n", n))
			n /= 2
		default:
			return 0, err
		}
	}
	return 0, fmt.Errorf("%s %s: gave up at n=%d", symbol, timeframe, n)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbols := flag.String("symbols", "XAUUSD,BTCUSD,ETHUSD", "comma separated symbols")
	timeframes := flag.String("timeframes", "1m,5m,15m,1h,4h", "comma separated timeframes")
	years := flag.Int("years", 2, "years of history to request")
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

	store, err := storage.NewStore(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		log.Fatal("Failed to init storage", zap.Error(err))
	}
	defer store.Close()

	settings := config.NewSettings(cfg.Gateway.URL, cfg.Risk.Percent)
	agent := gateway.NewAgentClient(settings, log)
	log.Info("Starting bulk ingestion", zap.String("gateway", settings.GatewayURL()))

	ctx := context.Background()
	for _, symbol := range strings.Split(*symbols, ",") {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		for _, tf := range strings.Split(*timeframes, ",") {
			tf = strings.TrimSpace(tf)
			saved, err := ingestSeries(ctx, agent, store, symbol, tf, candleTarget(tf, *years), log)
			if err != nil {
				log.Error("Ingestion failed", zap.String("symbol", symbol), zap.String("timeframe", tf), zap.Error(err))
				continue
			}
			log.Info("Ingested", zap.String("symbol", symbol), zap.String("timeframe", tf), zap.Int("saved", saved))
		}
	}
}
