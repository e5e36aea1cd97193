package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tradeflow/archive"
	"tradeflow/cli"
	"tradeflow/config"
	"tradeflow/exchange"
	"tradeflow/exchange/binance"
	"tradeflow/exchange/bittrex"
	"tradeflow/exchange/bybit"
	"tradeflow/exchange/hitbtc"
	"tradeflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/tradeflow.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Tradeflow.Name,
		"version": cfg.Tradeflow.Version,
	}).Debug("starting tradeflow")

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var archiver *archive.Writer
	if cfg.Storage.S3.Enabled {
		archiver, err = archive.New(ctx, cfg.Storage.S3)
		if err != nil {
			log.WithError(err).Error("Failed to create archive writer")
			os.Exit(1)
		}
	}

	registry := exchange.NewRegistry()
	registry.MustRegister(binance.New(cfg))
	registry.MustRegister(bittrex.New(cfg))
	registry.MustRegister(bybit.New(cfg))
	registry.MustRegister(hitbtc.New(cfg))

	app := cli.New(registry, cfg, os.Stdout, archiver)
	code := app.Run(ctx, flag.Args())

	if cfg.Metrics.CloudWatch.Enabled {
		logger.FlushCounters(context.Background())
	}
	os.Exit(code)
}
