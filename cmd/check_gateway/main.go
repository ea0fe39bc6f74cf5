package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/infrastructure/gateway"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	symbol := flag.String("symbol", "BTCUSD", "symbol to fetch candles for")
	timeframe := flag.String("timeframe", "1m", "timeframe to fetch")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(".env"); err != nil {
		fmt.Printf("Failed to apply env overrides: %v\n", err)
		os.Exit(1)
	}

	settings := config.NewSettings(cfg.Gateway.URL, cfg.Risk.Percent)
	agent := gateway.NewAgentClient(settings, zap.NewNop())
	fmt.Printf("Testing gateway at %s\n", settings.GatewayURL())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 2. Root
	status, err := agent.Ping(ctx)
	if err != nil {
		fmt.Printf("❌ Gateway unreachable: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Gateway: %s\n", status)

	// 3. Account
	acc, err := agent.GetAccount(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get account: %v\n", err)
	} else {
		fmt.Printf("✅ Balance: %.2f, Equity: %.2f, Margin: %.2f\n", acc.Balance, acc.Equity, acc.Margin)
	}

	// 4. Candles
	candles, err := agent.GetCandles(ctx, *symbol, *timeframe, 10)
	if err != nil {
		fmt.Printf("❌ Failed to get candles: %v\n", err)
		return
	}
	last := candles[len(candles)-1]
	fmt.Printf("✅ %d %s candles for %s, last close %.5f at %s\n",
		len(candles), *timeframe, *symbol, last.Close, time.Unix(last.Time, 0).UTC().Format(time.RFC3339))
}
