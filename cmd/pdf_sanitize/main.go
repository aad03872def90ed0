package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/a3tai/mcp-pdf-sanitizer/internal/detection"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/builder"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/pdf/render"
	"github.com/a3tai/mcp-pdf-sanitizer/internal/processor"
)

// SanitizeReport is the outcome printed for one run
type SanitizeReport struct {
	Input             string              `json:"input"`
	Output            string              `json:"output"`
	OriginalSize      int                 `json:"original_size"`
	SanitizedSize     int                 `json:"sanitized_size"`
	SizeChangePercent float64             `json:"size_change_percent"`
	ElapsedMillis     int64               `json:"elapsed_ms"`
	RenderQuality     float64             `json:"render_quality"`
	CompressionLevel  int                 `json:"compression_level"`
	Findings          []detection.Finding `json:"findings"`
}

type cliOptions struct {
	quality     float64
	compression int
	format      string
	renderer    string
	workers     int
	help        bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code. A nil renderer
// selects pdftoppm.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, renderer processor.PageRenderer) int {
	var opts cliOptions

	flags := pflag.NewFlagSet("pdf_sanitize", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Float64Var(&opts.quality, "quality", processor.DefaultRenderQuality, "Render quality multiplier (0.5-4.0)")
	flags.IntVar(&opts.compression, "compression", processor.DefaultCompressionLevel, "Compression level (0-3)")
	flags.StringVar(&opts.format, "format", "text", "Output format: text, json")
	flags.StringVar(&opts.renderer, "renderer", render.DefaultBinary, "Path to the pdftoppm binary")
	flags.IntVar(&opts.workers, "workers", render.DefaultWorkers, "Pages rendered in parallel")
	flags.BoolVarP(&opts.help, "help", "h", false, "Show help message")
	flags.Usage = func() { printUsage(stderr, flags) }

	if err := flags.Parse(args); err != nil {
		return 2
	}
	if opts.help {
		printUsage(stdout, flags)
		return 0
	}
	if flags.NArg() != 2 {
		fmt.Fprintf(stderr, "Error: input and output paths are required\n\n")
		printUsage(stderr, flags)
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unsupported output format: %s\n", opts.format)
		return 2
	}

	if renderer == nil {
		renderer = render.NewPoppler(render.WithBinary(opts.renderer), render.WithWorkers(opts.workers))
	}

	report, err := sanitize(ctx, flags.Arg(0), flags.Arg(1), opts, renderer)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.format == "json" {
		encoder := json.NewEncoder(stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
			return 1
		}
		return 0
	}
	outputText(stdout, report)
	return 0
}

func sanitize(ctx context.Context, input, output string, opts cliOptions, renderer processor.PageRenderer) (*SanitizeReport, error) {
	if err := checkDistinct(input, output); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	p := processor.New(builder.New(), processor.WithOptions(processor.Options{
		RenderQuality:    opts.quality,
		CompressionLevel: opts.compression,
		Timeout:          processor.DefaultTimeout,
	}))

	result, err := p.Run(ctx, data, renderer)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(output, result.Rebuilt, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write output: %w", err)
	}

	return &SanitizeReport{
		Input:             input,
		Output:            output,
		OriginalSize:      result.OriginalSize,
		SanitizedSize:     result.RebuiltSize,
		SizeChangePercent: result.SizeChangePercent(),
		ElapsedMillis:     result.ElapsedMillis(),
		RenderQuality:     opts.quality,
		CompressionLevel:  opts.compression,
		Findings:          result.Findings,
	}, nil
}

// checkDistinct refuses an output that names the input file
func checkDistinct(input, output string) error {
	in, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("failed to resolve input path: %w", err)
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return fmt.Errorf("failed to resolve output path: %w", err)
	}
	if in == out {
		return fmt.Errorf("output path must differ from input path: %s", out)
	}

	inInfo, inErr := os.Stat(in)
	outInfo, outErr := os.Stat(out)
	if inErr == nil && outErr == nil && os.SameFile(inInfo, outInfo) {
		return fmt.Errorf("output path must differ from input path: %s", out)
	}
	return nil
}

func outputText(w io.Writer, r *SanitizeReport) {
	fmt.Fprintf(w, "Input: %s (%s)\n", r.Input, formatBytes(r.OriginalSize))
	fmt.Fprintf(w, "Options: quality=%.1fx, compression=%d\n", r.RenderQuality, r.CompressionLevel)
	fmt.Fprintf(w, "Processing complete in %dms\n", r.ElapsedMillis)
	fmt.Fprintf(w, "Output: %s (%s)\n", r.Output, formatBytes(r.SanitizedSize))
	fmt.Fprintf(w, "Size change: %+.1f%%\n", r.SizeChangePercent)

	fmt.Fprintf(w, "Dynamic objects processed (%d):\n", len(r.Findings))
	for _, f := range r.Findings {
		fmt.Fprintf(w, "  - %s\n", f.Name)
	}
}

func formatBytes(n int) string {
	if n == 0 {
		return "0 Bytes"
	}
	units := []string{"Bytes", "KB", "MB", "GB"}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(units) {
		i = len(units) - 1
	}
	value := float64(n) / math.Pow(1024, float64(i))
	if i == 0 {
		return fmt.Sprintf("%d Bytes", n)
	}
	return fmt.Sprintf("%.2f %s", value, units[i])
}

func printUsage(w io.Writer, flags *pflag.FlagSet) {
	fmt.Fprintln(w, "PDF Sanitize - Rebuild a PDF from page images, dropping all active content")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  pdf_sanitize [OPTIONS] <input.pdf> <output.pdf>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "OPTIONS:")
	fmt.Fprint(w, flags.FlagUsages())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXAMPLES:")
	fmt.Fprintln(w, "  pdf_sanitize document.pdf processed.pdf")
	fmt.Fprintln(w, "  pdf_sanitize --quality=3.0 --format=json document.pdf processed.pdf")
}
