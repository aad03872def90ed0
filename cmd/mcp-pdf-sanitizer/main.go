package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	pdfcpulog "github.com/pdfcpu/pdfcpu/pkg/log"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/config"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/mcp"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/render"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/processor"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// stdout carries the MCP protocol in stdio mode
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if cfg.IsDebug() {
		pdfcpulog.SetDefaultLoggers()
	} else {
		pdfcpulog.DisableLoggers()
	}
}

// buildService wires the configured renderer, output directory and
// processing defaults into a PDF service
func buildService(cfg *config.Config) (*pdf.Service, error) {
	renderer := render.NewPoppler(
		render.WithBinary(cfg.RendererPath),
		render.WithWorkers(cfg.RenderWorkers),
	)

	service, err := pdf.NewService(cfg.MaxFileSize, cfg.PDFDirectory,
		pdf.WithOutputDirectory(cfg.OutputDir()),
		pdf.WithRenderer(renderer),
		pdf.WithProcessingOptions(processor.Options{
			RenderQuality:    cfg.RenderQuality,
			CompressionLevel: cfg.CompressionLevel,
			Timeout:          cfg.Timeout,
		}),
		pdf.WithMaxConcurrent(cfg.MaxConcurrentDocuments),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF service: %w", err)
	}

	if !renderer.Available() {
		log.Printf("Warning: renderer %q not found, pdf_sanitize_file will fail", cfg.RendererPath)
	}

	return service, nil
}

// serve runs server until it stops or a termination signal arrives. In
// stdio mode the parent process owns our lifecycle and SIGHUP is ignored.
func serve(cfg *config.Config, server *mcp.Server) error {
	signals := []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	if cfg.IsServerMode() {
		signals = append(signals, syscall.SIGHUP)
	}

	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Println("Received shutdown signal, stopping in-flight work...")
		return <-errCh
	}
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	pdfService, err := buildService(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	server, err := mcp.NewServer(cfg, pdfService)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if err := serve(cfg, server); err != nil {
		log.Printf("Server error: %v", err)
		os.Exit(1)
	}

	if cfg.IsServerMode() {
		log.Println("Server stopped successfully")
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Sanitizer\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
