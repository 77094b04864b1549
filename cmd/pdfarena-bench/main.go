// Command pdfarena-bench runs every backend against the same document a
// fixed number of times and reports per-backend timing. PDFs from the last
// iteration are written to the output directory for visual comparison.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/corvand/pdfarena"
	"github.com/corvand/pdfarena/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

type benchStats struct {
	Adapter   string  `json:"adapter"`
	Runs      int     `json:"runs"`
	Failures  int     `json:"failures"`
	MinMs     int64   `json:"minMs"`
	MaxMs     int64   `json:"maxMs"`
	MeanMs    float64 `json:"meanMs"`
	SizeBytes int     `json:"sizeBytes"`
	Reason    string  `json:"reason,omitempty"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	iterations := flag.IntP("iterations", "n", 5, "render iterations per backend")
	only := flag.String("only", "", "comma-separated adapter names to benchmark (default all)")
	verbose := flag.BoolP("verbose", "v", false, "log render progress")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("pdfarena-bench", Version)
		return nil
	}
	if *iterations < 1 {
		return fmt.Errorf("iterations must be at least 1, got %d", *iterations)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}

	_, _ = maxprocs.Set(maxprocs.Logger(func(string, ...interface{}) {}))

	svc, err := pdfarena.New(
		pdfarena.WithTimeout(cfg.Render.Timeout),
		pdfarena.WithEngineBin(cfg.Render.EngineBin),
		pdfarena.WithPoolSize(cfg.Render.PoolSize),
		pdfarena.WithAssetsDir(cfg.Render.AssetsDir),
		pdfarena.WithFontPath(cfg.Render.FontPath),
		pdfarena.WithTemplate(cfg.Render.Template),
		pdfarena.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("build service: %w", err)
	}
	defer svc.Close()

	names := svc.AdapterNames()
	if *only != "" {
		names = strings.Split(*only, ",")
	}

	if err := os.MkdirAll(cfg.Render.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	ctx := context.Background()
	req := pdfarena.RenderRequest{}

	var stats []benchStats
	for _, name := range names {
		name = strings.TrimSpace(name)
		st, err := benchAdapter(ctx, svc, name, req, *iterations, cfg.Render.OutputDir)
		if err != nil {
			return err
		}
		stats = append(stats, st)
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].MeanMs < stats[j].MeanMs })

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func benchAdapter(ctx context.Context, svc *pdfarena.Service, name string, req pdfarena.RenderRequest, iterations int, outDir string) (benchStats, error) {
	st := benchStats{Adapter: name, Runs: iterations, MinMs: -1}

	var totalMs int64
	for i := 0; i < iterations; i++ {
		res, err := svc.Generate(ctx, name, req)
		if err != nil {
			return st, err
		}

		if !res.OK {
			st.Failures++
			st.Reason = res.Reason
			continue
		}

		totalMs += res.ElapsedMs
		if st.MinMs < 0 || res.ElapsedMs < st.MinMs {
			st.MinMs = res.ElapsedMs
		}
		if res.ElapsedMs > st.MaxMs {
			st.MaxMs = res.ElapsedMs
		}
		st.SizeBytes = res.Size

		if i == iterations-1 {
			out := filepath.Join(outDir, name+".pdf")
			if werr := os.WriteFile(out, res.Bytes, 0o644); werr != nil {
				return st, fmt.Errorf("write %s: %w", out, werr)
			}
		}
	}

	if ok := st.Runs - st.Failures; ok > 0 {
		st.MeanMs = float64(totalMs) / float64(ok)
	}
	if st.MinMs < 0 {
		st.MinMs = 0
	}
	return st, nil
}
