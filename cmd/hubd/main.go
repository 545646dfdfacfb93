package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	_ "embed"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	_ "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/firestore"
	_ "github.com/bduoto/omtx-hub/pkg/hub/adapter/docstore/memory"
	_ "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/gcs"
	_ "github.com/bduoto/omtx-hub/pkg/hub/adapter/storage/local"

	"github.com/bduoto/omtx-hub/internal/app"
	"github.com/bduoto/omtx-hub/pkg/hub/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
// This file is used to load configuration at application startup.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// main is the entry point of the hub daemon. It manages signal handling and
// hands the assembled configuration to the Fx application.
func main() {
	batchRequestPath := flag.String("submit", "", "path to a batch request JSON file; submit it, wait for completion and exit")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Shutting down...", sig)
		cancel()
	}()

	// Get the path to the .env file from environment variables. Use ".env" as default if not set.
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	app.RunApplication(ctx, envFilePath, embeddedConfig, *batchRequestPath)
	os.Exit(0)
}
