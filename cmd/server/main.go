package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/yclin/stockfolio/internal/clientdata"
	"github.com/yclin/stockfolio/internal/clients/finmind"
	"github.com/yclin/stockfolio/internal/config"
	"github.com/yclin/stockfolio/internal/database"
	"github.com/yclin/stockfolio/internal/modules/history"
	historyhandlers "github.com/yclin/stockfolio/internal/modules/history/handlers"
	"github.com/yclin/stockfolio/internal/modules/ledger"
	ledgerhandlers "github.com/yclin/stockfolio/internal/modules/ledger/handlers"
	"github.com/yclin/stockfolio/internal/modules/portfolio"
	portfoliohandlers "github.com/yclin/stockfolio/internal/modules/portfolio/handlers"
	"github.com/yclin/stockfolio/internal/scheduler"
	"github.com/yclin/stockfolio/internal/server"
	"github.com/yclin/stockfolio/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting Stockfolio")

	// Initialize databases
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	// Initialize schemas
	if err := ledger.InitSchema(ledgerDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger schema")
	}
	if err := history.InitSchema(historyDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize history schema")
	}
	if err := clientdata.InitSchema(cacheDB.Conn()); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize client data schema")
	}

	// Repositories
	tradeRepo := ledger.NewTradeRepository(ledgerDB.Conn(), log)
	dividendRepo := ledger.NewDividendRepository(ledgerDB.Conn(), log)
	statRepo := history.NewDailyStatRepository(historyDB.Conn(), log)
	cacheRepo := clientdata.NewRepository(cacheDB.Conn())

	// Market data client
	quotes := finmind.NewClient(finmind.Config{
		BaseURL:  cfg.FinMindBaseURL,
		Token:    cfg.FinMindToken,
		QuoteTTL: time.Duration(cfg.QuoteCacheTTL) * time.Second,
	}, cacheRepo, log)

	// Services
	portfolioService := portfolio.NewService(tradeRepo, dividendRepo, quotes, log)
	historyService := history.NewService(statRepo, tradeRepo, dividendRepo, quotes, log)

	// Handlers
	ledgerHandlers := ledgerhandlers.NewHandler(tradeRepo, dividendRepo, historyService, log)
	portfolioHandlers := portfoliohandlers.NewHandler(portfolioService, log)
	historyHandlers := historyhandlers.NewHandler(historyService, statRepo, log)

	// Background jobs
	syncJob := history.NewSyncJob(historyService, log)
	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)
	walJob := scheduler.NewWALCheckpointJob(ledgerDB, historyDB, cacheDB, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SyncSchedule, syncJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register sync job")
	}
	if err := sched.AddJob("@hourly", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cleanup job")
	}
	if err := sched.AddJob("@every 15m", walJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register WAL checkpoint job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Log:               log,
		Config:            cfg,
		LedgerDB:          ledgerDB,
		HistoryDB:         historyDB,
		CacheDB:           cacheDB,
		Quotes:            quotes,
		LedgerHandlers:    ledgerHandlers,
		PortfolioHandlers: portfolioHandlers,
		HistoryHandlers:   historyHandlers,
		SyncJob:           syncJob,
		CleanupJob:        cleanupJob,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
