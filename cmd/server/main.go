// Package main provides the API server entry point for the wallet tax
// scanner service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wallet-taxscan/internal/adapter"
	"github.com/wallet-taxscan/internal/api"
	"github.com/wallet-taxscan/internal/config"
	"github.com/wallet-taxscan/internal/logging"
	"github.com/wallet-taxscan/internal/pricing"
	"github.com/wallet-taxscan/internal/service"
)

func main() {
	fmt.Println("Wallet Tax Scanner API Server")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	if cfg.Helius.APIKey == "" {
		logger.Fatal("HELIUS_API_KEY is required")
	}

	// Initialize provider adapters
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

	// Daily price cache, optionally backed by Redis
	var redisClient *redis.Client
	if cfg.Cache.RedisEnabled {
		redisClient = pricing.NewRedisClient(cfg.Cache.RedisHost, cfg.Cache.RedisPort, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithError(err).Warn("Redis unavailable, falling back to memory-only price cache")
			redisClient = nil
		} else {
			logger.Info("Redis price cache connected")
		}
	}
	dailyCache := pricing.NewDailyPriceCache(redisClient, cfg.Cache.TTL)

	taxService := service.New(cfg, helius, coingecko, dexscreener, dailyCache)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Minute,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	server := api.NewServer(serverConfig, taxService)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
