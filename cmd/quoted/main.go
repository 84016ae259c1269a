package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pinggolf/freight-quote-core/internal/api"
	"github.com/pinggolf/freight-quote-core/internal/config"
	"github.com/pinggolf/freight-quote-core/internal/db"
	"github.com/pinggolf/freight-quote-core/internal/dispatcher"
	"github.com/pinggolf/freight-quote-core/internal/metrics"
	"github.com/pinggolf/freight-quote-core/internal/mpc"
	"github.com/pinggolf/freight-quote-core/internal/queue"
	"github.com/pinggolf/freight-quote-core/internal/utsf"
	"github.com/pinggolf/freight-quote-core/internal/vendor"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrations(cfg)
		return
	}

	var auditMirror *db.Queries
	if cfg.DatabaseURL != "" {
		database, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()

		database.SetMaxOpenConns(cfg.DatabaseMaxConnections)
		database.SetMaxIdleConns(cfg.DatabaseMaxIdleConnections)
		database.SetConnMaxLifetime(cfg.DatabaseConnectionLifetime)

		if err := database.Ping(); err != nil {
			log.Fatalf("Failed to ping audit mirror database: %v", err)
		}
		log.Println("Audit mirror database connection established")

		if cfg.RunMigrations {
			log.Println("Running audit mirror migrations...")
			if err := db.RunMigrations(database, "migrations"); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}

		auditMirror = db.New(database)
	} else {
		log.Println("DATABASE_URL not set, audit history will read from UTSF files only")
	}

	log.Printf("Loading Master Pincode Catalog from %s", cfg.MPCPath)
	catalogMPC, err := mpc.Load(cfg.MPCPath)
	if err != nil {
		log.Fatalf("Failed to load Master Pincode Catalog: %v", err)
	}
	log.Printf("Master Pincode Catalog loaded: %d pincodes across %d zones", catalogMPC.Size(), len(catalogMPC.Zones()))

	log.Printf("Loading vendor catalog from %s", cfg.VendorPath)
	vendorCatalog, err := vendor.Load(cfg.VendorPath)
	if err != nil {
		log.Fatalf("Failed to load vendor catalog: %v", err)
	}
	log.Printf("Vendor catalog loaded: %d vendors", len(vendorCatalog.All()))

	log.Printf("Loading UTSF files from %s", cfg.UTSFDir)
	files, loadErrs := utsf.LoadDir(cfg.UTSFDir)
	for _, e := range loadErrs {
		log.Printf("Warning: %v", e)
	}
	utsfService := utsf.NewService(catalogMPC, files, cfg.StrictMode)
	log.Printf("UTSF service ready: %d vendor files loaded", len(files))

	registry := prometheus.NewRegistry()
	appMetrics := metrics.New(registry)

	utsfManager := utsf.NewManager(cfg.UTSFDir, catalogMPC, cfg.CompressThreshold)
	if auditMirror != nil {
		utsfManager.SetAuditMirror(auditMirror)
	}
	utsfManager.SetMetrics(appMetrics)

	log.Println("Connecting to NATS...")
	natsManager, err := queue.NewManager(cfg.NATSURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsManager.Close()
	log.Println("NATS connection established")

	repairCoordinator := utsf.NewRepairCoordinator(natsManager, utsfManager)
	if err := repairCoordinator.Start(); err != nil {
		log.Fatalf("Failed to start repair coordinator: %v", err)
	}

	repairWorker := utsf.NewRepairWorker(natsManager, utsfManager)
	if err := repairWorker.Start(); err != nil {
		log.Fatalf("Failed to start repair worker: %v", err)
	}

	reloadUTSF := func(_ *nats.Msg) {
		reloadedFiles, reloadErrs := utsf.LoadDir(cfg.UTSFDir)
		for _, e := range reloadErrs {
			log.Printf("Warning: %v", e)
		}
		if reloadedFiles == nil {
			log.Printf("Warning: UTSF reload failed, keeping the previous snapshot")
			return
		}
		utsfService.Reload(catalogMPC, reloadedFiles)
		log.Printf("UTSF service reloaded: %d vendor files", len(reloadedFiles))
	}
	reloadMPCAndUTSF := func(_ *nats.Msg) {
		reloadedMPC, err := mpc.Load(cfg.MPCPath)
		if err != nil {
			log.Printf("Warning: failed to reload master pincode catalog: %v", err)
			return
		}
		reloadedFiles, reloadErrs := utsf.LoadDir(cfg.UTSFDir)
		for _, e := range reloadErrs {
			log.Printf("Warning: %v", e)
		}
		if reloadedFiles == nil {
			log.Printf("Warning: UTSF reload failed, keeping the previous catalog and snapshot")
			return
		}
		catalogMPC = reloadedMPC
		utsfService.Reload(catalogMPC, reloadedFiles)
		log.Printf("Master pincode catalog and UTSF service reloaded: %d pincodes, %d vendor files", catalogMPC.Size(), len(reloadedFiles))
	}

	if _, err := natsManager.Subscribe(queue.SubjectUTSFReload, reloadUTSF); err != nil {
		log.Printf("Warning: failed to subscribe to %s: %v", queue.SubjectUTSFReload, err)
	}
	if _, err := natsManager.Subscribe(queue.SubjectMPCReload, reloadMPCAndUTSF); err != nil {
		log.Printf("Warning: failed to subscribe to %s: %v", queue.SubjectMPCReload, err)
	}

	dispatchEngine := dispatcher.New(vendorCatalog, catalogMPC, utsfService, dispatcher.Config{
		WorkerCount:    cfg.DispatcherWorkerCount,
		BatchMin:       cfg.DispatcherBatchMin,
		RequestTimeout: cfg.RequestDeadline,
	})

	server := api.NewServer(cfg, dispatchEngine, utsfManager, auditMirror, appMetrics)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.AppPort),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %d (environment: %s)", cfg.AppPort, cfg.AppEnv)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped gracefully")
}

func runMigrations(cfg *config.Config) {
	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	log.Println("Running audit mirror migrations...")
	if err := db.RunMigrations(database, "migrations"); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations completed successfully")
}
