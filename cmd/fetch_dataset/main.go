package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/shoplytics/shoplytics/config"
	"github.com/shoplytics/shoplytics/internal/downloader"
	"github.com/shoplytics/shoplytics/internal/pipeline"
	"github.com/shoplytics/shoplytics/pkg/helpers"
)

// Downloads the survey workbook from its Kaggle page with a headless Chrome
// session, unpacks it into the data directory and runs the preprocessing
// pipeline over it once.
func main() {
	skipFetch := flag.Bool("skip-fetch", false, "reuse an already downloaded workbook")
	timeout := flag.Duration("timeout", 3*time.Minute, "download timeout")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)

	ctx := context.Background()

	if !*skipFetch {
		k := &downloader.Kaggle{
			PageURL:  cfg.DatasetPageURL,
			Dir:      cfg.DataDir,
			Headless: cfg.ChromeHeadless,
			Timeout:  *timeout,
			Logger:   logger,
		}
		zipPath, err := k.Fetch(ctx)
		if err != nil {
			log.Fatalf("download failed: %v", err)
		}
		if err := downloader.Unzip(zipPath, cfg.DataDir); err != nil {
			log.Fatalf("unpack failed: %v", err)
		}
		logger.Infof("dataset unpacked into %s", cfg.DataDir)
	}

	runner := pipeline.NewRunner(pipeline.Config{
		RawPath:       cfg.RawDatasetPath,
		CleanedPath:   cfg.CleanedCSVPath,
		ProcessedPath: cfg.ProcessedCSVPath,
	}, logger)

	if err := runner.Run(ctx); err != nil {
		log.Fatalf("pipeline failed: %v", err)
	}
	st := runner.Status()
	logger.Infof("pipeline finished: %d raw rows, %d clean rows", st.RawRows, st.CleanRows)
}
