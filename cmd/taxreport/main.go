// Package main provides a command line tool that computes a wallet tax
// report and prints or saves it without running the API server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/wallet-taxscan/internal/adapter"
	"github.com/wallet-taxscan/internal/config"
	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/pricing"
	"github.com/wallet-taxscan/internal/service"
	"github.com/wallet-taxscan/internal/types"
)

func main() {
	var (
		wallet     = flag.String("wallet", "", "Solana wallet address (required)")
		method     = flag.String("method", "FIFO", "Accounting method: FIFO or LIFO")
		region     = flag.String("region", "us_federal", "Tax region identifier (see -list-regions)")
		maxTx      = flag.Int("max-transactions", 0, "Maximum transactions to fetch (0 = configured default)")
		format     = flag.String("format", "text", "Output format: text, csv or json")
		output     = flag.String("output", "", "Output file (default stdout)")
		bestEffort = flag.Bool("best-effort", false, "Use partially fetched data when the provider fails")
		listRegion = flag.Bool("list-regions", false, "List supported tax regions and exit")
	)
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logging.InitGlobalLogger(logging.ParseLogLevel(cfg.Logging.Level), logging.FormatText)
	logger := logging.GetGlobalLogger()

	helius := adapter.NewHeliusClient(adapter.HeliusClientConfig{
		APIKey:            cfg.Helius.APIKey,
		BaseURL:           cfg.Helius.BaseURL,
		RequestsPerSecond: cfg.Helius.RequestsPerSecond,
		PageSize:          cfg.Helius.PageSize,
		RequestTimeout:    cfg.Helius.RequestTimeout,
	})
	coingecko := adapter.NewCoinGeckoClient(adapter.CoinGeckoClientConfig{
		BaseURL:           cfg.Prices.CoinGeckoBaseURL,
		RequestsPerSecond: cfg.Prices.CoinGeckoRPS,
		RequestTimeout:    cfg.Prices.RequestTimeout,
	})
	dexscreener := adapter.NewDexScreenerClient(adapter.DexScreenerClientConfig{
		BaseURL:           cfg.Prices.DexScreenerBaseURL,
		RequestsPerSecond: cfg.Prices.DexScreenerRPS,
		RequestTimeout:    cfg.Prices.RequestTimeout,
	})

	var redisClient *redis.Client
	if cfg.Cache.RedisEnabled {
		redisClient = pricing.NewRedisClient(cfg.Cache.RedisHost, cfg.Cache.RedisPort, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("Redis unavailable, using memory-only price cache")
			redisClient = nil
		}
	}
	dailyCache := pricing.NewDailyPriceCache(redisClient, cfg.Cache.TTL)

	taxService := service.New(cfg, helius, coingecko, dexscreener, dailyCache)

	if *listRegion {
		for _, r := range taxService.Regions() {
			fmt.Printf("%-15s %s\n", r.ID, r.Description)
		}
		return
	}

	if *wallet == "" {
		flag.Usage()
		os.Exit(2)
	}
	if cfg.Helius.APIKey == "" {
		log.Fatal("HELIUS_API_KEY is required")
	}

	result, err := taxService.Calculate(context.Background(), service.CalculationRequest{
		Wallet:          *wallet,
		Method:          types.AccountingMethod(*method),
		Region:          types.RegionID(*region),
		MaxTransactions: *maxTx,
		BestEffort:      *bestEffort,
	})
	if err != nil {
		logger.WithError(err).Fatal("Calculation failed")
	}

	var body []byte
	switch *format {
	case "csv":
		body = []byte(result.CSV)
	case "json":
		body, err = json.MarshalIndent(result.Report, "", "  ")
		if err != nil {
			logger.WithError(err).Fatal("JSON encoding failed")
		}
	default:
		body = []byte(result.Narrative)
	}

	if *output == "" {
		fmt.Print(string(body))
		return
	}
	if err := os.WriteFile(*output, body, 0o644); err != nil {
		logger.WithError(err).Fatal("Failed to write output file")
	}
	fmt.Printf("Report written to %s\n", *output)
}
