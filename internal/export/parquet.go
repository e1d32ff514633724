// Package export writes aggregated station statistics to Parquet files.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"stationstats/internal/fastbrc"
)

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// StationRow is one station in Parquet format. Temperatures are in degrees;
// Mean is rounded the same way as the text report.
type StationRow struct {
	Name  string  `parquet:"name,zstd"`
	Min   float64 `parquet:"min"`
	Mean  float64 `parquet:"mean"`
	Max   float64 `parquet:"max"`
	Count int64   `parquet:"count"`
	// Sum is the exact sum of the values scaled by 10.
	Sum int64    `parquet:"sum_tenths"`
	P50 *float64 `parquet:"p50,optional"`
	P90 *float64 `parquet:"p90,optional"`
	P99 *float64 `parquet:"p99,optional"`
}

// StationToRow converts an entry to a StationRow. Percentiles are only set
// when the entry carries a sketch.
func StationToRow(e *fastbrc.Entry) (StationRow, error) {
	if !utf8.Valid(e.Name) {
		return StationRow{}, fmt.Errorf("%w: station name %q is not valid UTF-8", fastbrc.ErrEncoding, e.Name)
	}

	row := StationRow{
		Name:  string(e.Name),
		Min:   float64(e.Station.Min) / 10,
		Mean:  float64(e.Station.MeanTenths()) / 10,
		Max:   float64(e.Station.Max) / 10,
		Count: int64(e.Station.Count),
		Sum:   e.Station.Sum,
	}

	if e.Sketch != nil {
		qs, err := e.Quantiles(0.50, 0.90, 0.99)
		if err != nil {
			return StationRow{}, fmt.Errorf("quantiles of %q: %w", e.Name, err)
		}
		row.P50, row.P90, row.P99 = &qs[0], &qs[1], &qs[2]
	}
	return row, nil
}

// WriteParquet writes one row per entry to path, creating parent directories.
func WriteParquet(path string, entries []fastbrc.Entry, compression CompressionType) (err error) {
	rows := make([]StationRow, len(entries))
	for i := range entries {
		rows[i], err = StationToRow(&entries[i])
		if err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()

	writer := parquet.NewGenericWriter[StationRow](f, parquet.Compression(getCompression(compression)))
	if _, err := writer.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// ReadParquet reads back every row of a file written by WriteParquet.
func ReadParquet(path string) ([]StationRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[StationRow](f)
	defer reader.Close()

	rows := make([]StationRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows[:n], nil
}
