package main

import (
	"flag"
	"log"
	"net/http"
	"os"

	"transit_router/pkg/raptor"
)

func main() {
	snapshotPath := flag.String("snapshot", "network.bin", "Path to compiled network snapshot")
	output := flag.String("output", "", "Write GeoJSON to this file (empty = stdout)")
	serve := flag.String("serve", "", "Serve the GeoJSON at /network.geojson on this address instead of writing it")
	noStops := flag.Bool("no-stops", false, "Omit stop points")
	noRoutes := flag.Bool("no-routes", false, "Omit route lines")
	transfers := flag.Bool("transfers", false, "Include kept walking transfers")
	flag.Parse()

	data, err := raptor.ReadSnapshot(*snapshotPath)
	if err != nil {
		log.Fatalf("Failed to load snapshot: %v", err)
	}

	fc := export(data, exportOptions{Stops: !*noStops, Routes: !*noRoutes, Transfers: *transfers})
	body, err := fc.MarshalJSON()
	if err != nil {
		log.Fatalf("Failed to encode GeoJSON: %v", err)
	}
	log.Printf("Exported %d features", len(fc.Features))

	if *serve != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /network.geojson", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/geo+json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Write(body) //nolint:errcheck
		})
		log.Printf("Serving GeoJSON on http://localhost%s/network.geojson", *serve)
		log.Fatal(http.ListenAndServe(*serve, mux))
	}

	if *output == "" {
		if _, err := os.Stdout.Write(body); err != nil {
			log.Fatalf("Failed to write GeoJSON: %v", err)
		}
		return
	}
	if err := os.WriteFile(*output, body, 0o644); err != nil {
		log.Fatalf("Failed to write GeoJSON: %v", err)
	}
}
