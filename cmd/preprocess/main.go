package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"transit_router/pkg/config"
	"transit_router/pkg/geo"
	"transit_router/pkg/gtfsimport"
	"transit_router/pkg/logging"
	"transit_router/pkg/raptor"
	"transit_router/pkg/schedule"
	"transit_router/pkg/store"
)

func main() {
	gtfsPath := flag.String("gtfs", "", "Path to a GTFS static .zip feed")
	date := flag.String("date", time.Now().Format(time.DateOnly), "Service date to import (YYYY-MM-DD)")
	fromDB := flag.Bool("db", false, "Load the schedule from PostgreSQL instead of a GTFS feed")
	saveDB := flag.Bool("save-db", false, "Store the imported GTFS schedule in PostgreSQL")
	configPath := flag.String("config", os.Getenv("ROUTER_CONFIG"), "Path to YAML config (empty = defaults)")
	output := flag.String("output", "network.bin", "Output snapshot file path")
	envFile := flag.String("env", ".env", "Optional .env file")
	flag.Parse()

	_ = godotenv.Load(*envFile)

	if (*gtfsPath == "") == !*fromDB {
		fmt.Fprintln(os.Stderr, "Usage: preprocess (--gtfs <feed.zip> [--date YYYY-MM-DD] [--save-db] | --db) [--config router.yml] [--output network.bin]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	logger := logging.NewStructuredLogger(os.Stderr, level)

	start := time.Now()
	ctx := context.Background()

	var (
		sched *schedule.Schedule
		proj  geo.Projection
	)
	if *gtfsPath != "" {
		day, err := time.Parse(time.DateOnly, *date)
		if err != nil {
			log.Fatalf("Invalid date %q: %v", *date, err)
		}

		// Step 1: Parse GTFS feed.
		log.Printf("Parsing GTFS feed %s...", *gtfsPath)
		static, err := gtfsimport.ParseFile(*gtfsPath)
		if err != nil {
			log.Fatalf("Failed to parse GTFS feed: %v", err)
		}
		log.Printf("Parsed %d stops, %d routes, %d trips", len(static.Stops), len(static.Routes), len(static.Trips))

		// Step 2: Select the service day.
		log.Printf("Importing service of %s...", *date)
		res, err := gtfsimport.Import(static, day)
		if err != nil {
			log.Fatalf("Failed to import GTFS feed: %v", err)
		}
		sched, proj = res.Schedule, res.Projection
		log.Printf("Imported %d trips into %d lines", res.Trips, len(sched.Lines))

		if *saveDB {
			log.Println("Storing schedule in PostgreSQL...")
			db := connect(ctx, logger)
			if err := db.SaveSchedule(ctx, &store.Dataset{Schedule: sched, Projection: proj}); err != nil {
				log.Fatalf("Failed to store schedule: %v", err)
			}
			logging.SafeClose(db, logger, "postgres")
		}
	} else {
		log.Println("Loading schedule from PostgreSQL...")
		db := connect(ctx, logger)
		ds, err := db.LoadSchedule(ctx)
		logging.SafeClose(db, logger, "postgres")
		if err != nil {
			log.Fatalf("Failed to load schedule: %v", err)
		}
		sched, proj = ds.Schedule, ds.Projection
	}

	// Step 3: Compile.
	log.Println("Compiling transit data...")
	data, err := raptor.NewCompiler(cfg.Raptor.Static(), logger).Get(sched)
	if err != nil {
		log.Fatalf("Failed to compile schedule: %v", err)
	}
	data.Projection = proj
	st := data.Stats()
	log.Printf("Compiled %d stops, %d routes, %d departures, %d transfers", st.Stops, st.Routes, st.Departures, st.Transfers)

	// Step 4: Write snapshot.
	log.Printf("Writing snapshot to %s...", *output)
	if err := raptor.WriteSnapshot(*output, data); err != nil {
		log.Fatalf("Failed to write snapshot: %v", err)
	}

	info, _ := os.Stat(*output)
	elapsed := time.Since(start)
	log.Printf("Done in %s. Output: %s (%.1f MB)", elapsed.Round(time.Millisecond), *output, float64(info.Size())/(1024*1024))
}

func connect(ctx context.Context, logger *slog.Logger) *store.Postgres {
	db, err := store.Connect(ctx, store.ConfigFromEnv(), logger)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("Failed to prepare schema: %v", err)
	}
	return db
}
