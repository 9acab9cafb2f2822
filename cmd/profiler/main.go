// Command profiler runs tau archive sessions in a loop over a generated
// dataset so they can be profiled.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand" //nolint:gosec // intentional use for reproducible benchmarks
	"net/http"
	_ "net/http/pprof" //nolint:gosec // intentional profiling endpoint
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/felixge/fgprof"

	"github.com/meigma/tau"
)

type config struct {
	mode       string
	files      int
	fileSize   int
	dirCount   int
	pattern    string
	output     string
	fgProfile  string
	duration   time.Duration
	iterations int
	pprofAddr  string
	cpuProfile string
	memProfile string
	traceFile  string
	tempDir    string
	keepTemp   bool
	randomSeed int64
}

func main() {
	cfg := parseFlags()

	if cfg.pprofAddr != "" {
		go func() {
			log.Printf("pprof listening on %s", cfg.pprofAddr)
			//nolint:gosec // intentional pprof server without timeouts for profiling
			if err := http.ListenAndServe(cfg.pprofAddr, nil); err != nil {
				log.Printf("pprof server error: %v", err)
			}
		}()
	}

	dir, cleanup, err := setupTempDir(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if cleanup != nil {
		defer cleanup() //nolint:errcheck // cleanup errors are non-fatal in profiler
	}

	input, err := makeDataset(dir, &cfg)
	if err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}

	var stopFG func() error
	if cfg.fgProfile != "" {
		fgFile, fgErr := os.Create(cfg.fgProfile)
		if fgErr != nil {
			log.Fatal(fgErr)
		}
		stopFG = fgprof.Start(fgFile, fgprof.FormatPprof)
		defer func() {
			if err := stopFG(); err != nil {
				log.Printf("fgprof stop error: %v", err)
			}
			_ = fgFile.Close()
		}()
	}

	if cfg.cpuProfile != "" {
		cpuFile, cpuErr := os.Create(cfg.cpuProfile)
		if cpuErr != nil {
			log.Fatal(cpuErr)
		}
		if cpuErr = pprof.StartCPUProfile(cpuFile); cpuErr != nil {
			log.Fatal(cpuErr)
		}
		defer func() {
			pprof.StopCPUProfile()
			_ = cpuFile.Close()
		}()
	}

	if cfg.traceFile != "" {
		traceFile, traceErr := os.Create(cfg.traceFile)
		if traceErr != nil {
			log.Fatal(traceErr)
		}
		if traceErr = trace.Start(traceFile); traceErr != nil {
			log.Fatal(traceErr)
		}
		defer func() {
			trace.Stop()
			_ = traceFile.Close()
		}()
	}

	stats, err := runProfile(context.Background(), cfg, input)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.memProfile != "" {
		runtime.GC()
		f, err := os.Create(cfg.memProfile)
		if err != nil {
			log.Fatal(err)
		}
		if err := pprof.WriteHeapProfile(f); err != nil {
			log.Fatal(err)
		}
		_ = f.Close()
	}

	fmt.Printf("mode=%s ops=%d in=%d out=%d ratio=%.3f elapsed=%s throughput=%.2f MB/s\n",
		cfg.mode,
		stats.ops,
		stats.plain,
		stats.compressed,
		stats.ratio(),
		stats.elapsed,
		float64(stats.plain)/(1024*1024)/stats.elapsed.Seconds(),
	)
}

type profileStats struct {
	ops        int
	plain      uint64
	compressed uint64
	elapsed    time.Duration
}

func (s profileStats) ratio() float64 {
	if s.plain == 0 {
		return 0
	}
	return float64(s.compressed) / float64(s.plain)
}

//nolint:gocritic // hugeParam acceptable for profiler config
func runProfile(ctx context.Context, cfg config, input string) (profileStats, error) {
	var stats profileStats
	start := time.Now()
	shouldContinue := func() bool {
		if cfg.iterations > 0 {
			return stats.ops < cfg.iterations
		}
		return time.Since(start) < cfg.duration
	}

	var buf bytes.Buffer
	for shouldContinue() {
		var (
			res *tau.Result
			err error
		)
		switch cfg.mode {
		case "file":
			res, err = tau.CompressFile(ctx, input, io.Discard)
		case "dir":
			res, err = tau.CompressDirectory(ctx, input, io.Discard)
		case "path":
			res, err = tau.CompressPath(ctx, input, cfg.output)
		case "roundtrip":
			buf.Reset()
			res, err = tau.CompressDirectory(ctx, input, &buf)
			if err == nil {
				err = drain(&buf)
			}
		default:
			return profileStats{}, fmt.Errorf("unknown mode: %s", cfg.mode)
		}
		if err != nil {
			return profileStats{}, err
		}
		stats.plain += res.PlainBytes
		stats.compressed += res.OutputBytes
		stats.ops++
	}
	stats.elapsed = time.Since(start)
	return stats, nil
}

// drain reads every record of a directory archive.
func drain(r io.Reader) error {
	ar, err := tau.NewReader(r)
	if err != nil {
		return err
	}
	for {
		if _, err := ar.Next(); err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if _, err := io.Copy(io.Discard, ar); err != nil {
			return err
		}
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.mode, "mode", "dir", "mode: file, dir, path, roundtrip")
	flag.IntVar(&cfg.files, "files", 512, "number of files (file mode uses one file of files*file-size bytes)")
	flag.IntVar(&cfg.fileSize, "file-size", 16<<10, "file size in bytes")
	flag.IntVar(&cfg.dirCount, "dir-count", 16, "number of directories")
	flag.StringVar(&cfg.pattern, "pattern", "compressible", "pattern: compressible or random")
	flag.StringVar(&cfg.output, "output", "", "archive path for path mode (default: inside the temp dir)")
	flag.StringVar(&cfg.fgProfile, "fgprofile", "", "write fgprof (wall clock) profile to file")
	flag.DurationVar(&cfg.duration, "duration", 10*time.Second, "duration to run (ignored if iterations > 0)")
	flag.IntVar(&cfg.iterations, "iterations", 0, "number of iterations to run")
	flag.StringVar(&cfg.pprofAddr, "pprof-addr", "", "pprof listen address (e.g. :6060)")
	flag.StringVar(&cfg.cpuProfile, "cpuprofile", "", "write CPU profile to file")
	flag.StringVar(&cfg.memProfile, "memprofile", "", "write heap profile to file")
	flag.StringVar(&cfg.traceFile, "trace", "", "write trace to file")
	flag.StringVar(&cfg.tempDir, "temp-dir", "", "directory to use for dataset")
	flag.BoolVar(&cfg.keepTemp, "keep-temp", false, "keep temp dir after run")
	flag.Int64Var(&cfg.randomSeed, "seed", 1, "random seed")
	flag.Parse()
	return cfg
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func setupTempDir(cfg config) (string, func() error, error) {
	if cfg.tempDir != "" {
		return cfg.tempDir, nil, os.MkdirAll(cfg.tempDir, 0o755) //nolint:gosec // 0o755 is intentional for profiler temp dirs
	}
	dir, err := os.MkdirTemp("", "tau-profiler-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() error {
		if cfg.keepTemp {
			return nil
		}
		return os.RemoveAll(dir)
	}
	return dir, cleanup, nil
}

// makeDataset writes the input for cfg.mode under dir and returns its path.
func makeDataset(dir string, cfg *config) (string, error) {
	input := filepath.Join(dir, "input")
	if cfg.output == "" {
		cfg.output = filepath.Join(dir, "out"+tau.ArchiveExt)
	}
	rng := rand.New(rand.NewSource(cfg.randomSeed)) //nolint:gosec // intentional use for reproducible benchmarks

	if cfg.mode == "file" {
		content, err := fill(cfg.files*cfg.fileSize, 0, cfg.pattern, rng)
		if err != nil {
			return "", err
		}
		return input, os.WriteFile(input, content, 0o644) //nolint:gosec // 0o644 is intentional for profiler test files
	}

	dirCount := max(cfg.dirCount, 1)
	for i := range cfg.files {
		relPath := fmt.Sprintf("dir%02d/file%05d.dat", i%dirCount, i)
		fullPath := filepath.Join(input, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil { //nolint:gosec // 0o755 is intentional for profiler
			return "", err
		}
		content, err := fill(cfg.fileSize, i, cfg.pattern, rng)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(fullPath, content, 0o644); err != nil { //nolint:gosec // 0o644 is intentional for profiler test files
			return "", err
		}
	}
	return input, nil
}

func fill(size, i int, pattern string, rng *rand.Rand) ([]byte, error) {
	content := make([]byte, size)
	switch pattern {
	case "random":
		if _, err := rng.Read(content); err != nil {
			return nil, err
		}
	default:
		fillByte := byte('a' + (i % 26))
		for j := range content {
			content[j] = fillByte
		}
		if len(content) > 0 {
			content[0] = byte(i)
		}
	}
	return content, nil
}
