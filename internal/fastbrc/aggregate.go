package fastbrc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultQueueFactor times the number of workers gives the chunk queue capacity.
	DefaultQueueFactor = 4

	// tableSizeHint covers the ~10k station names of the reference data set.
	tableSizeHint = 1024
)

// Options configures Aggregate. Zero values pick defaults.
type Options struct {
	// Workers defaults to the number of CPUs.
	Workers int
	// QueueCapacity defaults to DefaultQueueFactor * Workers.
	QueueCapacity int
	// ChunkSize defaults to DefaultChunkSize.
	ChunkSize int
	// Quantiles makes every station keep a DDSketch of its values.
	Quantiles bool
	Logger    *slog.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.Workers < 0 || o.QueueCapacity < 0 || o.ChunkSize < 0 {
		return o, fmt.Errorf("%w: negative value in %+v", ErrInvalidOptions, o)
	}
	if o.Workers == 0 {
		o.Workers = max(runtime.NumCPU(), 1)
	}
	if o.QueueCapacity == 0 {
		o.QueueCapacity = DefaultQueueFactor * o.Workers
	}
	if o.ChunkSize == 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o, nil
}

type Stats struct {
	Bytes   int64
	Chunks  int64
	Records int64
	Workers int
}

// Result is the merged table of every worker.
type Result struct {
	Table *Table
	Stats Stats
}

// Aggregate reads r to the end with one producer and opts.Workers parsing
// goroutines and returns the merged per-station statistics. The first error
// stops the whole pipeline and no partial result is returned.
func Aggregate(r io.Reader, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	log := opts.Logger.With("component", "fastbrc")

	chunker := NewChunker(r, opts.ChunkSize)
	chunks := make(chan *[]byte, opts.QueueCapacity)
	tables := make([]*Table, opts.Workers)
	records := make([]int64, opts.Workers)

	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		err := chunker.Run(ctx, chunks)
		log.Debug("Chunker done", "bytes", chunker.BytesRead(), "chunks", chunker.Chunks(), "error", err)
		return err
	})

	for i := range opts.Workers {
		tables[i] = NewTable(tableSizeHint, opts.Quantiles)
		g.Go(func() error {
			n, err := ParseWorker(ctx, chunks, chunker, tables[i])
			records[i] = n
			log.Debug("Worker done", "id", i, "records", n, "stations", tables[i].Len())
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged, err := Merge(tables)
	if err != nil {
		return nil, err
	}
	if merged.Len() == 0 {
		return nil, ErrEmptyInput
	}

	stats := Stats{
		Bytes:   chunker.BytesRead(),
		Chunks:  chunker.Chunks(),
		Workers: opts.Workers,
	}
	for _, n := range records {
		stats.Records += n
	}
	log.Debug("Merged", "stations", merged.Len(), "records", stats.Records)

	return &Result{Table: merged, Stats: stats}, nil
}

// Run aggregates r and formats the report.
func Run(r io.Reader, opts Options) (string, error) {
	res, err := Aggregate(r, opts)
	if err != nil {
		return "", err
	}
	return Format(res.Table)
}
