package export

import (
	"path/filepath"
	"testing"

	"stationstats/internal/fastbrc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(t *testing.T, quantiles bool, records map[string][]int16) *fastbrc.Table {
	t.Helper()
	table := fastbrc.NewTable(len(records), quantiles)
	for name, values := range records {
		for _, m := range values {
			require.NoError(t, table.NewMeasurement([]byte(name), m))
		}
	}
	return table
}

func TestParseCompressionType(t *testing.T) {
	assert.Equal(t, CompressionZstd, ParseCompressionType("zstd"))
	assert.Equal(t, CompressionSnappy, ParseCompressionType("snappy"))
	assert.Equal(t, CompressionGzip, ParseCompressionType("gzip"))
	assert.Equal(t, CompressionLZ4, ParseCompressionType("lz4"))
	assert.Equal(t, CompressionNone, ParseCompressionType("none"))
	assert.Equal(t, CompressionNone, ParseCompressionType(""))
	assert.Equal(t, CompressionZstd, ParseCompressionType("unknown"))
}

func TestStationToRow(t *testing.T) {
	entries := table(t, false, map[string][]int16{"X": {-32, -10}}).Entries()
	row, err := StationToRow(&entries[0])
	require.NoError(t, err)

	assert.Equal(t, "X", row.Name)
	assert.InDelta(t, -3.2, row.Min, 1e-9)
	assert.InDelta(t, -2.1, row.Mean, 1e-9)
	assert.InDelta(t, -1.0, row.Max, 1e-9)
	assert.Equal(t, int64(2), row.Count)
	assert.Equal(t, int64(-42), row.Sum)
	assert.Nil(t, row.P50)

	bad := fastbrc.Entry{Name: []byte{0xff}, Station: fastbrc.Station{Count: 1}}
	_, err = StationToRow(&bad)
	assert.ErrorIs(t, err, fastbrc.ErrEncoding)
}

func TestWriteParquet(t *testing.T) {
	tbl := table(t, false, map[string][]int16{
		"Hamburg": {120, 140},
		"Berlin":  {85},
	})

	for _, compression := range []string{"zstd", "snappy", "gzip", "lz4", "none"} {
		t.Run(compression, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", "stations.parquet")
			require.NoError(t, WriteParquet(path, tbl.Sorted(), ParseCompressionType(compression)))

			rows, err := ReadParquet(path)
			require.NoError(t, err)
			require.Len(t, rows, 2)

			assert.Equal(t, "Berlin", rows[0].Name)
			assert.Equal(t, "Hamburg", rows[1].Name)
			assert.InDelta(t, 13.0, rows[1].Mean, 1e-9)
			assert.Equal(t, int64(2), rows[1].Count)
			assert.Equal(t, int64(260), rows[1].Sum)
			assert.Nil(t, rows[1].P50)
		})
	}
}

func TestWriteParquetPercentiles(t *testing.T) {
	values := make([]int16, 0, 1000)
	for i := range 1000 {
		values = append(values, int16(i))
	}
	tbl := table(t, true, map[string][]int16{"X": values})

	path := filepath.Join(t.TempDir(), "stations.parquet")
	require.NoError(t, WriteParquet(path, tbl.Sorted(), CompressionZstd))

	rows, err := ReadParquet(path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].P50)
	require.NotNil(t, rows[0].P99)
	assert.InEpsilon(t, 50.0, *rows[0].P50, 0.03)
	assert.InEpsilon(t, 90.0, *rows[0].P90, 0.03)
	assert.InEpsilon(t, 99.0, *rows[0].P99, 0.03)
}
