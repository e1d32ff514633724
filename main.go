package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"runtime/pprof"

	"stationstats/internal/brc"
	"stationstats/internal/config"
	"stationstats/internal/export"
	"stationstats/internal/fastbrc"
)

func main() {
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	configFile := flag.String("config", "", "YAML config file")
	inputFile := flag.String("f", "measurements.txt", "input file")
	nworkers := flag.Int("n", config.DefaultWorkers, "number of workers, 0 for one per CPU")
	chunkSize := flag.Int("chunksize", config.DefaultChunkSize, "size of the chunks to be processed by workers")
	queueFactor := flag.Int("queue-factor", config.DefaultQueueFactor, "chunk queue capacity per worker")
	useMmap := flag.Bool("mmap", false, "mmap the input file")
	loglevel := flag.String("loglevel", config.DefaultLogLevel, "debug, info, warn or error")
	logformat := flag.String("logformat", config.DefaultLogFormat, "text or json")
	parquetOut := flag.String("parquet", "", "also write the results to this Parquet file")
	compression := flag.String("compression", config.DefaultCompression, "Parquet compression")
	percentiles := flag.Bool("percentiles", false, "add p50/p90/p99 columns to the Parquet export")
	flag.Parse()

	cfg := config.Default()
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			log.Fatal(err)
		}
	}

	// flags given on the command line win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "n":
			cfg.Workers = *nworkers
		case "chunksize":
			cfg.ChunkSize = *chunkSize
		case "queue-factor":
			cfg.QueueFactor = *queueFactor
		case "mmap":
			cfg.Mmap = *useMmap
		case "loglevel":
			cfg.Log.Level = *loglevel
		case "logformat":
			cfg.Log.Format = *logformat
		case "parquet":
			cfg.Export.Parquet = *parquetOut
		case "compression":
			cfg.Export.Compression = *compression
		case "percentiles":
			cfg.Export.Percentiles = *percentiles
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(logger)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
	}

	err = run(cfg, *inputFile, os.Stdout, logger)
	pprof.StopCPUProfile()
	if err != nil {
		log.Fatalf("error: %s", err)
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// run aggregates inputFile and prints the report to out. Nothing is printed
// when any step fails.
func run(cfg *config.Config, inputFile string, out io.Writer, logger *slog.Logger) error {
	f, err := brc.OpenSource(inputFile, cfg.Mmap)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := fastbrc.Aggregate(f, cfg.PipelineOptions(logger))
	if err != nil {
		return err
	}
	logger.Debug("Aggregated",
		"bytes", res.Stats.Bytes,
		"chunks", res.Stats.Chunks,
		"records", res.Stats.Records,
		"workers", res.Stats.Workers,
		"stations", res.Table.Len())

	report, err := fastbrc.Format(res.Table)
	if err != nil {
		return err
	}

	if cfg.Export.Parquet != "" {
		err := export.WriteParquet(cfg.Export.Parquet, res.Table.Sorted(), export.ParseCompressionType(cfg.Export.Compression))
		if err != nil {
			return fmt.Errorf("parquet export: %w", err)
		}
		logger.Debug("Exported", "path", cfg.Export.Parquet)
	}

	_, err = fmt.Fprintln(out, report)
	return err
}
