// Package main is the noteseek CLI entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/blocks"
	"github.com/notable-labs/noteseek/internal/cli"
	"github.com/notable-labs/noteseek/internal/config"
	"github.com/notable-labs/noteseek/internal/external"
	"github.com/notable-labs/noteseek/internal/server"
	"github.com/notable-labs/noteseek/internal/service"
	"github.com/notable-labs/noteseek/internal/watcher"
	"github.com/notable-labs/noteseek/pkg/utils"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "related":
		runRelated()
	case "reindex":
		runReindex()
	case "graph":
		runGraph()
	case "stats":
		runStats()
	case "delete":
		runDelete()
	case "version", "--version", "-v":
		fmt.Printf("noteseek version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// initService loads config and builds the service. Exits on failure.
func initService(configPath string, debugOverride bool) (*service.Service, *config.Config, *zap.Logger) {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugOverride)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	svc, err := service.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	return svc, cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	svc, cfg, logger := initService(*configPath, *debug)
	defer logger.Sync()
	defer svc.Close()

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watch *watcher.Watcher
	if cfg.Watch.Enabled {
		watch = watcher.New(func(ref external.Ref) {
			if _, err := svc.IndexFolder(context.Background(), ref.DocID, ref.BlockID, ref.Target, ref.MaxDepth); err != nil {
				logger.Warn("watched folder reindex failed",
					zap.String("dir", ref.Target), zap.Error(err))
			}
		}, watcher.WithLogger(logger), watcher.WithDebounce(cfg.Watch.Debounce()))
		svc.SetFolderWatcher(watch)
		// Folder blocks indexed in earlier runs are persisted in the note
		// repository; re-register their roots so watching survives restarts.
		refs, err := svc.WatchedFolders(watchCtx)
		if err != nil {
			logger.Warn("scan for persisted folder blocks failed", zap.Error(err))
		}
		for _, ref := range refs {
			if err := watch.AddFolder(ref); err != nil {
				logger.Warn("watch persisted folder failed",
					zap.String("dir", ref.Target), zap.Error(err))
			}
		}
		if err := watch.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start folder watcher", zap.Error(err))
		}
		defer watch.Stop()
	}

	srv := server.NewServer(svc, &cfg.Server, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func parseFormat(s string) cli.OutputFormat {
	switch s {
	case "json":
		return cli.OutputJSON
	case "text", "":
		return cli.OutputText
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", s)
		os.Exit(1)
		return cli.OutputText
	}
}

func runSearch() {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	limit := fs.Int("limit", 10, "number of documents")
	chunks := fs.Bool("chunks", false, "return individual chunks instead of documents")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: noteseek search [flags] <query>")
		os.Exit(1)
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	format := parseFormat(*outputFormat)

	svc, _, logger := initService(*configPath, false)
	defer logger.Sync()
	defer svc.Close()

	ctx := context.Background()
	if *chunks {
		matches, err := svc.SearchChunks(ctx, query, *limit, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		_ = cli.WriteChunkMatches(os.Stdout, matches, format)
		return
	}
	results, err := svc.SearchDocuments(ctx, query, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteDocumentResults(os.Stdout, results, format)
}

func runRelated() {
	fs := flag.NewFlagSet("related", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	limit := fs.Int("limit", 10, "number of documents")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: noteseek related [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)
	format := parseFormat(*outputFormat)

	svc, _, logger := initService(*configPath, false)
	defer logger.Sync()
	defer svc.Close()

	ctx := context.Background()
	data, err := svc.Repo().Load(ctx, docID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load document: %v\n", err)
		os.Exit(1)
	}
	doc, err := blocks.ParseDocument(docID, data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse document: %v\n", err)
		os.Exit(1)
	}
	results, err := svc.RelatedDocuments(ctx, blocks.Text(doc.Blocks), docID, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Related search failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteDocumentResults(os.Stdout, results, format)
}

func runReindex() {
	fs := flag.NewFlagSet("reindex", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	force := fs.Bool("force", false, "rebuild every document, ignoring stored content hashes")
	_ = fs.Parse(os.Args[2:])

	svc, _, logger := initService(*configPath, false)
	defer logger.Sync()
	defer svc.Close()

	summary, err := svc.ReindexAll(context.Background(), *force, func(current, total int) {
		fmt.Printf("\rIndexing %d/%d", current, total)
	})
	fmt.Println()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reindex failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Reindexed %d document(s): %d succeeded, %d failed\n",
		summary.Total, summary.Succeeded, summary.Failed)
	for _, id := range summary.FailedDocs {
		fmt.Printf("  failed: %s\n", id)
	}
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func runGraph() {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	outputFormat := fs.String("output", "json", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	svc, _, logger := initService(*configPath, false)
	defer logger.Sync()
	defer svc.Close()

	data, err := svc.Graph(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Graph build failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteGraph(os.Stdout, data, format)
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := parseFormat(*outputFormat)
	svc, _, logger := initService(*configPath, false)
	defer logger.Sync()
	defer svc.Close()

	stats, err := svc.Stats(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
		os.Exit(1)
	}
	_ = cli.WriteStats(os.Stdout, stats, format)
}

func runDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", config.DefaultPath(), "config file path")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: noteseek delete [flags] <document-id>")
		os.Exit(1)
	}
	docID := fs.Arg(0)

	svc, _, logger := initService(*configPath, false)
	defer logger.Sync()
	defer svc.Close()

	if err := svc.DeleteDocument(context.Background(), docID); err != nil {
		fmt.Fprintf(os.Stderr, "Deletion failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Document deleted: %s\n", docID)
}

func printUsage() {
	fmt.Println(`noteseek - semantic search engine for block-based notes

Usage:
  noteseek server [flags]            Start the HTTP server
  noteseek search [flags] <query>    Search documents (or chunks with --chunks)
  noteseek related [flags] <id>      Find documents related to a document
  noteseek reindex [flags]           Reindex the whole note corpus
  noteseek graph [flags]             Build the document similarity graph
  noteseek stats [flags]             Show index statistics
  noteseek delete [flags] <id>       Remove a document from the index
  noteseek version                   Show version
  noteseek help                      Show this help

Common Flags:
  --config string    Config file path (default: ~/.noteseek/config.yaml)
  --output string    Output format: text or json

Examples:
  noteseek server --debug
  noteseek search "mortgage amortization notes"
  noteseek search --chunks --limit 20 kubernetes
  noteseek related doc-8f2a
  noteseek reindex --force
  noteseek graph --output json`)
}
