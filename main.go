package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rdxflow/config"
	"rdxflow/internal/dashboard"
	"rdxflow/internal/ledger"
	"rdxflow/internal/metrics"
	"rdxflow/internal/models"
	"rdxflow/internal/pipeline"
	"rdxflow/internal/source"
	"rdxflow/logger"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
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
		"service":     cfg.Rdxflow.Name,
		"version":     cfg.Rdxflow.Version,
		"environment": config.AppEnvironment(),
	}).Info("starting rdxflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
	}

	history := openLedger(ctx, cfg, log)
	defer history.Close()

	var exporter *ledger.S3Exporter
	if cfg.Ledger.S3.Enabled {
		exporter, err = ledger.NewS3Exporter(ctx, cfg.Ledger.S3)
		if err != nil {
			log.WithError(err).Error("Failed to configure S3 ledger export")
			os.Exit(1)
		}
	}

	pipeCfg := pipeline.ConfigFrom(cfg)

	server := dashboard.NewServer(cfg.Dashboard, pipeCfg.Join.Fill, history, log)

	var wg sync.WaitGroup
	if server != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := server.Run(ctx); err != nil {
				log.WithError(err).Error("dashboard server failed")
			}
		}()
	}

	// One reconciliation over the configured files/URLs at startup.
	sources, ok := loadSources(ctx, cfg, log)
	if ok {
		runOnce(ctx, sources, pipeCfg, cfg, server, history, exporter, log)
	}

	// Live feed batches re-run the cash side against the last derivatives
	// table as they arrive.
	if cfg.Feed.Enabled {
		batches := make(chan models.RawTable, 4)
		feed := source.NewFeed(cfg.Feed, batches)
		if err := feed.Start(ctx); err != nil {
			log.WithError(err).Error("failed to start market feed")
		} else {
			defer feed.Stop()
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case batch := <-batches:
						sources.Cash = batch
						runOnce(ctx, sources, pipeCfg, cfg, server, history, exporter, log)
					}
				}
			}()
		}
	}

	waitForShutdown(ctx, cancel, server != nil || cfg.Feed.Enabled, log)
	wg.Wait()
	log.Info("rdxflow stopped")
}

// openLedger selects the configured history backend, defaulting to the
// in-memory store so the dashboard history endpoint always works.
func openLedger(ctx context.Context, cfg *config.Config, log *logger.Log) ledger.Store {
	if !cfg.Ledger.Postgres.Enabled {
		return ledger.NewMemory()
	}
	store, err := ledger.NewPostgres(ctx, cfg.Ledger.Postgres)
	if err != nil {
		log.WithError(err).Error("Failed to open postgres ledger")
		os.Exit(1)
	}
	return store
}

// loadSources reads the cash and derivatives tables from their configured
// path or URL. A missing source is an error only when the feed is disabled;
// with the feed enabled the cash side may arrive later over the wire.
func loadSources(ctx context.Context, cfg *config.Config, log *logger.Log) (pipeline.Sources, bool) {
	fetcher := source.NewFetcher(1, 30*time.Second)

	load := func(sc config.SourceConfig, kind models.SourceKind) (models.RawTable, bool) {
		switch {
		case sc.Path != "":
			table, warnings, err := source.LoadFile(sc.Path)
			logSourceOutcome(log, kind, sc.Path, warnings, err)
			return table, err == nil
		case sc.URL != "":
			table, warnings, err := fetcher.Fetch(ctx, sc.URL)
			logSourceOutcome(log, kind, sc.URL, warnings, err)
			return table, err == nil
		default:
			return models.RawTable{}, false
		}
	}

	var sources pipeline.Sources
	var ok bool
	sources.Derivatives, ok = load(cfg.Sources.Derivatives, models.SourceDerivatives)
	if !ok {
		log.Error("derivatives source unavailable; nothing to reconcile")
		return sources, false
	}
	if sources.Cash, ok = load(cfg.Sources.Cash, models.SourceCash); !ok && !cfg.Feed.Enabled {
		log.Error("cash source unavailable and feed disabled")
		return sources, false
	}
	return sources, true
}

func logSourceOutcome(log *logger.Log, kind models.SourceKind, from string, warnings []models.Warning, err error) {
	entry := log.WithComponent("source").WithFields(logger.Fields{"kind": string(kind), "from": from})
	if err != nil {
		entry.WithError(err).Error("failed to load source")
		return
	}
	if len(warnings) > 0 {
		entry.WithFields(logger.Fields{"warnings": len(warnings)}).Warn("source loaded with warnings")
		return
	}
	entry.Info("source loaded")
}

func runOnce(ctx context.Context, sources pipeline.Sources, pipeCfg pipeline.Config, cfg *config.Config,
	server *dashboard.Server, history ledger.Store, exporter *ledger.S3Exporter, log *logger.Log) {
	result, err := pipeline.Run(sources, pipeCfg)
	if err != nil {
		log.WithError(err).Error("pipeline run failed")
		return
	}

	server.Publish(result)

	tradeDate := batchTradeDate(result.Summaries)
	if err := history.Append(ctx, tradeDate, result.Summaries); err != nil {
		log.WithError(err).Error("failed to append ledger batch")
	}
	if exporter != nil {
		if err := exporter.Export(ctx, tradeDate, result.Summaries); err != nil {
			log.WithError(err).Error("failed to export ledger batch")
		}
	}
}

// batchTradeDate keys the ledger batch on the first populated trade date,
// falling back to today for date-less inputs.
func batchTradeDate(summaries []models.InstrumentSummary) string {
	for _, s := range summaries {
		if s.TradeDate != "" {
			return s.TradeDate
		}
	}
	return time.Now().UTC().Format("2006-01-02")
}

// waitForShutdown blocks for SIGINT/SIGTERM when anything long-running is
// up; one-shot invocations exit immediately.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, longRunning bool, log *logger.Log) {
	if !longRunning {
		cancel()
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()
}
