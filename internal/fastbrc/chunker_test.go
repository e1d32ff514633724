package fastbrc

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// readAll drains c, copying each chunk before releasing it.
func readAll(t *testing.T, c *Chunker) [][]byte {
	t.Helper()
	var chunks [][]byte
	for {
		chunk, err := c.Next()
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		require.NotEmpty(t, *chunk)
		chunks = append(chunks, bytes.Clone(*chunk))
		c.Release(chunk)
	}
}

func requireWholeRecords(t *testing.T, input []byte, chunks [][]byte) {
	t.Helper()
	for i, chunk := range chunks {
		if i < len(chunks)-1 || bytes.HasSuffix(input, []byte("\n")) {
			require.Equalf(t, byte('\n'), chunk[len(chunk)-1], "chunk %d: %q", i, chunk)
		}
	}
	assert.Equal(t, input, bytes.Join(chunks, nil))
}

func TestChunkerMano(t *testing.T) {
	b := make([]byte, 0, 64*1024+128)
	line := []byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa;12.3\n")
	for range 1024*4 + 128 {
		b = append(b, line...)
	}

	r := bufio.NewReaderSize(bytes.NewReader(b), 1024*1024)
	chunks := readAll(t, NewChunker(r, 255))
	requireWholeRecords(t, b, chunks)
}

func TestChunkerBoundaries(t *testing.T) {
	const chunkSize = 64
	line := "ab;12.3\n" // 8 bytes, chunkSize is a multiple of it
	lines := func(n int) string { return strings.Repeat(line, n) }

	tcs := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"one record", line},
		{"exactly one buffer", lines(8)},
		{"exactly two buffers", lines(16)},
		{"one byte more than a buffer", lines(8) + "x"},
		{"one byte less than a buffer", lines(8)[:chunkSize-1]},
		{"no trailing newline", lines(3) + "ab;1.0"},
		{"records straddling buffers", strings.Repeat("abc;-12.3\n", 50)},
		{"single record without newline", "ab;1.0"},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			readers := map[string]io.Reader{
				"plain":    strings.NewReader(tc.input),
				"half":     iotest.HalfReader(strings.NewReader(tc.input)),
				"one byte": iotest.OneByteReader(strings.NewReader(tc.input)),
			}
			for rname, r := range readers {
				c := NewChunker(r, chunkSize)
				chunks := readAll(t, c)
				if tc.input == "" {
					assert.Empty(t, chunks, rname)
					continue
				}
				requireWholeRecords(t, []byte(tc.input), chunks)
				assert.Equal(t, int64(len(tc.input)), c.BytesRead(), rname)
				assert.Equal(t, int64(len(chunks)), c.Chunks(), rname)
			}
		})
	}
}

func TestChunkerExactBufferFill(t *testing.T) {
	input := strings.Repeat("ab;12.3\n", 16)
	chunks := readAll(t, NewChunker(strings.NewReader(input), 64))
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 64)
	assert.Len(t, chunks[1], 64)
}

func TestChunkerLeftoversAlone(t *testing.T) {
	// the tail after the last '\n' comes out as its own final chunk
	chunks := readAll(t, NewChunker(strings.NewReader("a;1.0\nb;2.0"), 64))
	require.Len(t, chunks, 2)
	assert.Equal(t, "a;1.0\n", string(chunks[0]))
	assert.Equal(t, "b;2.0", string(chunks[1]))
}

func TestChunkerReadError(t *testing.T) {
	boom := errors.New("boom")
	r := io.MultiReader(strings.NewReader("a;1.0\n"), iotest.ErrReader(boom))
	c := NewChunker(r, 64)

	_, err := c.Next()
	assert.ErrorIs(t, err, ErrSourceRead)
	assert.ErrorIs(t, err, boom)
}

func TestChunkerRecordTooLong(t *testing.T) {
	c := NewChunker(strings.NewReader("a very long station name;1.0\n"), 8)
	_, err := c.Next()
	assert.ErrorIs(t, err, ErrRecordTooLong)
	assert.ErrorIs(t, err, ErrRecordFormat)
}

func TestChunkerRun(t *testing.T) {
	input := []byte(strings.Repeat("Hamburg;12.0\nBerlin;8.5\n", 100))
	c := NewChunker(bytes.NewReader(input), 100)
	out := make(chan *[]byte, 2)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Run(context.Background(), out)
	}()

	var got []byte
	for chunk := range out {
		got = append(got, *chunk...)
		c.Release(chunk)
	}
	assert.NoError(t, <-errCh)
	assert.Equal(t, input, got)
}

func TestChunkerRunCanceled(t *testing.T) {
	c := NewChunker(strings.NewReader(strings.Repeat("a;1.0\n", 100)), 16)
	out := make(chan *[]byte) // nobody receives

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := c.Run(ctx, out)
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := <-out
	assert.False(t, ok, "out must be closed")
}

func BenchmarkChunker(b *testing.B) {
	input := bytes.Repeat([]byte("Station number 42;-12.3\n"), 1<<16)
	for _, chunkSize := range []int{64 << 10, 256 << 10, 1024 << 10} {
		b.Run(fmt.Sprintf("chunksize%04dk", chunkSize>>10), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(input)))
			for range b.N {
				c := NewChunker(bytes.NewReader(input), chunkSize)
				for {
					chunk, err := c.Next()
					if err == io.EOF {
						break
					}
					if err != nil {
						b.Fatal(err)
					}
					c.Release(chunk)
				}
			}
		})
	}
}
