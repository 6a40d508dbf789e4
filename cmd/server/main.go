package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"transit_router/pkg/api"
	"transit_router/pkg/config"
	"transit_router/pkg/logging"
	"transit_router/pkg/raptor"
	"transit_router/pkg/routing"
)

func main() {
	envFile := flag.String("env", ".env", "Optional .env file")
	snapshotPath := flag.String("snapshot", "network.bin", "Path to compiled network snapshot")
	configPath := flag.String("config", "", "Path to YAML config (default $ROUTER_CONFIG)")
	port := flag.String("port", "", "HTTP port (default $PORT, then the config address)")
	flag.Parse()

	_ = godotenv.Load(*envFile)
	if *configPath == "" {
		*configPath = os.Getenv("ROUTER_CONFIG")
	}
	if *port == "" {
		*port = os.Getenv("PORT")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)
	slog.SetDefault(logger)

	start := time.Now()

	// Load network.
	log.Printf("Loading snapshot from %s...", *snapshotPath)
	data, err := raptor.ReadSnapshot(*snapshotPath)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}
	stats := api.StatsFromData(data)
	log.Printf("Loaded: %d stops, %d routes, %d departures, %d transfers",
		stats.NumStops, stats.NumRoutes, stats.NumDepartures, stats.NumTransfers)

	// Build routing engine.
	engine, err := routing.NewEngine(data, cfg.Engine(logger))
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}
	log.Printf("Ready in %s", time.Since(start).Round(time.Millisecond))

	// Setup HTTP server.
	srvCfg := api.DefaultConfig(cfg.Server.Addr)
	if *port != "" {
		srvCfg.Addr = ":" + *port
	}
	if cfg.Server.ReadTimeout > 0 {
		srvCfg.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		srvCfg.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.RequestTimeout > 0 {
		srvCfg.RequestTimeout = cfg.Server.RequestTimeout
	}
	if cfg.Server.MaxConcurrent > 0 {
		srvCfg.MaxConcurrent = cfg.Server.MaxConcurrent
	}
	srvCfg.CORSOrigins = cfg.Server.CORSOrigins

	handlers := api.NewHandlers(engine, data.Projection, stats)
	area := api.ServiceAreaFromData(data, cfg.Server.ServiceAreaMargin)
	handlers.SetServiceArea(area)
	if area.Radius > 0 {
		log.Printf("Service area: %.0f m around %.5f,%.5f", area.Radius, area.Lat, area.Lon)
	}
	srv := api.NewServer(srvCfg, handlers, logger)

	if err := api.ListenAndServe(srv, logger); err != nil {
		log.Printf("Server stopped: %v", err)
		os.Exit(1)
	}
}
