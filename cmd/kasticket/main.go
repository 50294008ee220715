package main

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/kasticket/internal/receipt"
	"github.com/zombor/kasticket/internal/scanning"
	"github.com/zombor/kasticket/internal/ticket"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run parses args and returns the process exit code; deferred cleanup runs
// before main exits
func run(args []string) int {
	// Check for version flag before parsing other flags
	for _, arg := range args {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			return 0
		}
	}

	_ = godotenv.Load()

	fs := ff.NewFlagSet("kasticket")
	var (
		serve        = fs.BoolLong("serve", "Run the HTTP server instead of parsing the files given as arguments")
		port         = fs.IntLong("port", 8080, "HTTP server port")
		authUser     = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass     = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		cachePath    = fs.StringLong("cache", "kasticket.db", "Extraction cache file path (empty disables the cache)")
		storagePath  = fs.StringLong("storage", "./receipts", "Directory for uploaded receipts")
		outPath      = fs.StringLong("out", "./reports", "Directory for CSV reports")
		headingLines = fs.IntLong("heading-lines", ticket.DefaultHeadingLines, "Leading lines searched for the purchase date first")
		exclude      = fs.StringLong("exclude", "", "Comma-separated extra phrases that never name a product")
		workers      = fs.IntLong("workers", receipt.DefaultWorkers, "Receipts processed in parallel")
		logLevel     = fs.StringLong("log-level", "info", "Log level: debug, info, warn or error")
		showVersion  = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("KASTICKET"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		return 0
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(*logLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid log level %q\n", *logLevel)
		return 1
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	files := fs.GetArgs()
	if !*serve && len(files) == 0 {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintln(os.Stderr, "error: no receipt files given (use --serve to run the server)")
		return 1
	}

	// Initialize extractor
	var extractor scanning.Extractor = scanning.NewDefault()
	if *cachePath != "" {
		slog.Info("Initializing extraction cache...", "path", *cachePath)
		cache, err := scanning.NewBoltCache(*cachePath)
		if err != nil {
			slog.Error("Failed to initialize extraction cache", "error", err)
			return 1
		}
		extractor = scanning.NewCached(extractor, cache)
	}
	defer func() {
		if err := extractor.Close(); err != nil {
			slog.Error("Failed to close extractor", "error", err)
		}
	}()

	opts := ticket.DefaultOptions()
	opts.HeadingLines = *headingLines
	for _, phrase := range strings.Split(*exclude, ",") {
		if phrase = strings.TrimSpace(phrase); phrase != "" {
			opts.Exclusions = append(opts.Exclusions, phrase)
		}
	}
	parser := ticket.NewParser(opts)

	if *serve {
		if err := runServer(extractor, parser, *storagePath, *port, *workers, receipt.BasicAuth{
			Username: *authUser,
			Password: *authPass,
		}); err != nil {
			slog.Error("Server error", "error", err)
			return 1
		}
		return 0
	}

	if err := runBatch(extractor, parser, files, *outPath, *workers); err != nil {
		slog.Error("Failed to process receipts", "error", err)
		return 1
	}
	return 0
}

// runBatch parses the given files and writes every report view to outPath
func runBatch(extractor scanning.Extractor, parser *ticket.Parser, files []string, outPath string, workers int) error {
	docs := make([]receipt.Document, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		docs = append(docs, receipt.Document{
			Filename: filepath.Base(name),
			Data:     data,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	service := receipt.NewService(extractor, parser, nil).WithWorkers(workers)
	batch, err := service.ProcessDocuments(ctx, docs)
	if err != nil {
		return err
	}
	for _, warning := range batch.Warnings {
		slog.Warn("Receipt warning", "warning", warning)
	}
	for _, e := range batch.Errors {
		slog.Error("Receipt skipped", "error", e)
	}

	store, err := receipt.NewLocalStorage(outPath)
	if err != nil {
		return err
	}
	written, err := service.WriteReports(store)
	if err != nil {
		return err
	}
	slog.Info("Reports written", "directory", outPath, "files", strings.Join(written, ", "))
	return nil
}

// runServer serves the HTTP API until interrupted
func runServer(extractor scanning.Extractor, parser *ticket.Parser, storagePath string, port, workers int, basicAuth receipt.BasicAuth) error {
	// Initialize storage
	slog.Info("Initializing storage...")
	store, err := receipt.NewLocalStorage(storagePath)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}

	receiptService := receipt.NewService(extractor, parser, store).WithWorkers(workers)
	server := receipt.NewServer(receiptService, basicAuth, version)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(addr)
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "version", version)
	if basicAuth.Username != "" || basicAuth.Password != "" {
		slog.Info("Basic auth enabled", "user", basicAuth.Username)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-sigChan:
	}

	slog.Info("Shutting down...")
	return nil
}
