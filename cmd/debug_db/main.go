package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/achupradeep3050/crypto/internal/config"
	"github.com/achupradeep3050/crypto/internal/infrastructure/storage"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	limit := flag.Int("trades", 20, "number of recent ledger rows to show")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.NewStore(cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		fmt.Printf("Failed to init storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	counts, err := store.CountBySeries(ctx)
	if err != nil {
		fmt.Printf("Failed to count candles: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Found %d candle series:\n", len(counts))
	for _, c := range counts {
		latest, err := store.Latest(ctx, c.Symbol, c.Timeframe, 1)
		if err != nil || len(latest) == 0 {
			fmt.Printf("- %s %s: %d candles\n", c.Symbol, c.Timeframe, c.Count)
			continue
		}
		fmt.Printf("- %s %s: %d candles, newest %s close %.5f\n", c.Symbol, c.Timeframe, c.Count,
			time.Unix(latest[0].Time, 0).UTC().Format(time.DateTime), latest[0].Close)
	}

	logs, err := store.ListTradeLogs(ctx, *limit)
	if err != nil {
		fmt.Printf("Failed to list trade logs: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nLast %d ledger rows:\n", len(logs))
	for _, l := range logs {
		fmt.Printf("- #%d %s [%s] %s %s %.2f @ %.5f -> %s\n",
			l.ID, l.Timestamp.Format(time.DateTime), l.Strategy, l.Action, l.Symbol, l.Volume, l.Price, l.Result)
	}
}
