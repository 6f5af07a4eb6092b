// Command export writes a project's reviewed tasks as JSON Lines without
// going through the HTTP server.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/huangang/annoreview/internal/config"
	"github.com/huangang/annoreview/internal/models"
	"github.com/huangang/annoreview/internal/services"
	"github.com/huangang/annoreview/pkg/logger"
	flag "github.com/spf13/pflag"
)

func main() {
	var (
		configPath string
		projectID  uint
		toStdout   bool
		dir        string
	)
	flag.StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	flag.UintVarP(&projectID, "project", "p", 0, "project id to export (required)")
	flag.BoolVar(&toStdout, "stdout", false, "write records to stdout instead of the export directory")
	flag.StringVar(&dir, "dir", "", "override export.dir")
	flag.Parse()

	if projectID == 0 {
		fmt.Fprintln(os.Stderr, "--project is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadStore(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	// Keep stdout clean for the records.
	logger.InitWithWriter(cfg.Log.Level, os.Stderr)
	if dir != "" {
		cfg.Export.Dir = dir
	}

	db, err := models.Open(&cfg.Database, logger.NewGormLogger(cfg.Log.Level))
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := services.NewExportService(db, cfg.Export.Dir)
	if toStdout {
		w := bufio.NewWriter(os.Stdout)
		n, err := svc.WriteJSONL(ctx, projectID, w)
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			logger.Fatalf("export project %d: %v", projectID, err)
		}
		logger.Info().Uint("project_id", projectID).Int("records", n).Msg("export written to stdout")
		return
	}

	result, err := svc.Export(ctx, projectID)
	if err != nil {
		logger.Fatalf("export project %d: %v", projectID, err)
	}
	logger.Info().
		Uint("project_id", result.ProjectID).
		Str("path", result.Path).
		Int("records", result.Records).
		Msg("export written")
	fmt.Println(result.Path)
}
