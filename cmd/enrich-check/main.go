package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/enrich"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/polygons"
)

func main() {
	var (
		cfgPath = flag.String("config", "config.yaml", "optional YAML config file")
		ringArg = flag.String("ring", "", `polygon as JSON, e.g. '[[14.25,40.85],[14.26,40.85],[14.255,40.86]]'`)
	)
	flag.Parse()

	if *ringArg == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load(".env.local")
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}

	ring, err := polygons.ParseRing(*ringArg)
	if err != nil {
		log.Fatal(err)
	}
	if err := ring.Validate(); err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	client := enrich.NewClient(cfg.Gateway, zl)
	ctx := context.Background()

	fmt.Printf("Area size: %s\n", polygons.FormatAreaSize(polygons.AreaSqMeters(ring)))

	label, err := client.ReverseGeocode(ctx, ring[0])
	if err != nil {
		fmt.Printf("Area name: %s (lookup failed: %v)\n", label, err)
	} else {
		fmt.Printf("Area name: %s\n", label)
	}

	features, err := client.FindFeatures(ctx, ring)
	if err != nil {
		fmt.Printf("Features lookup failed: %v\n", err)
		return
	}
	fmt.Printf("\nStreets (%d):\n", len(features.Streets))
	for _, s := range features.Streets {
		fmt.Printf("  - %s\n", s)
	}
	fmt.Printf("\nPlaces (%d):\n", len(features.Places))
	fmt.Printf("  %s\n", strings.Join(features.Places, ", "))
}
