package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/AlviRownok/NAPOLI-GIS/internal/config"
	"github.com/AlviRownok/NAPOLI-GIS/internal/logger"
	"github.com/AlviRownok/NAPOLI-GIS/internal/recordsimport"
	"github.com/AlviRownok/NAPOLI-GIS/internal/store"

	_ "github.com/AlviRownok/NAPOLI-GIS/internal/store/gcs"
	_ "github.com/AlviRownok/NAPOLI-GIS/internal/store/sqlstore"
)

func main() {
	var (
		cfgPath    = flag.String("config", "config.yaml", "optional YAML config file")
		exportPath = flag.String("export", "", "write the stored table to this CSV path")
		importPath = flag.String("import", "", "replace the stored table with this CSV")
		reset      = flag.Bool("reset", false, "replace the stored table with an empty one")
		wipe       = flag.Bool("wipe", false, "DANGER: required for -import and -reset")
	)
	flag.Parse()

	cfg := recordsimport.Config{Wipe: *wipe}
	switch {
	case *exportPath != "" && *importPath == "" && !*reset:
		cfg.Mode, cfg.Path = recordsimport.ModeExport, *exportPath
	case *importPath != "" && *exportPath == "" && !*reset:
		cfg.Mode, cfg.Path = recordsimport.ModeImport, *importPath
	case *reset && *exportPath == "" && *importPath == "":
		cfg.Mode = recordsimport.ModeReset
	default:
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load(".env.local")
	appCfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := appCfg.Validate(); err != nil {
		log.Fatal(err)
	}

	zl, err := logger.New(appCfg.LogMode)
	if err != nil {
		log.Fatal(err)
	}
	defer zl.Sync()

	ctx := context.Background()
	st, err := store.Open(ctx, appCfg.Store, zl)
	if err != nil {
		log.Fatal(err)
	}

	n, err := recordsimport.Run(ctx, cfg, st)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("%s done: %d records (backend %s, object %s)", cfg.Mode, n, appCfg.Store.Backend, appCfg.Store.ObjectKey)
}
