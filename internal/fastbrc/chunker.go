package fastbrc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

// DefaultChunkSize is the capacity of one chunk buffer.
const DefaultChunkSize = 1024 * 1024

// Chunker cuts a reader into chunks that only hold whole records. Every chunk
// but possibly the last ends with '\n'; the partial record after the last
// '\n' of a read is carried over to the start of the next chunk.
//
// Buffers come from a pool: a consumer done with a chunk hands it back with
// Release so memory stays bounded by the number of chunks in flight.
type Chunker struct {
	r         io.Reader
	chunkSize int
	p         sync.Pool
	leftovers []byte
	eof       bool

	bytesRead int64
	chunks    int64
}

func NewChunker(r io.Reader, chunkSize int) *Chunker {
	return &Chunker{
		r:         r,
		chunkSize: chunkSize,
		leftovers: make([]byte, 0, 256),
		p: sync.Pool{
			New: func() any {
				b := make([]byte, 0, chunkSize)
				return &b
			},
		},
	}
}

func (c *Chunker) getChunk() *[]byte {
	b := c.p.Get().(*[]byte)
	*b = (*b)[:0] // reset
	return b
}

// Release returns a chunk obtained from Next to the pool.
func (c *Chunker) Release(chunk *[]byte) {
	c.p.Put(chunk)
}

// BytesRead returns how many bytes were read from the source so far.
func (c *Chunker) BytesRead() int64 {
	return c.bytesRead
}

// Chunks returns how many chunks Next produced so far.
func (c *Chunker) Chunks() int64 {
	return c.chunks
}

// Next returns the next chunk, or io.EOF once the source is exhausted and no
// leftovers remain. Read failures are wrapped in ErrSourceRead.
func (c *Chunker) Next() (*[]byte, error) {
	chunk := c.getChunk()
	buf := (*chunk)[:c.chunkSize] // extend to use all cap

	currentReadStartPos := copy(buf, c.leftovers) // leftovers at beginning of chunk
	c.leftovers = c.leftovers[:0]

	var n int
	if !c.eof {
		var err error
		n, err = io.ReadFull(c.r, buf[currentReadStartPos:])
		switch err {
		case nil:
		case io.EOF, io.ErrUnexpectedEOF:
			c.eof = true
		default:
			c.Release(chunk)
			return nil, fmt.Errorf("%w: %w", ErrSourceRead, err)
		}
		c.bytesRead += int64(n)
	}

	end := currentReadStartPos + n
	if end == 0 {
		c.Release(chunk)
		return nil, io.EOF
	}

	if n == 0 {
		// nothing read: the leftovers are the final chunk
		*chunk = buf[:end]
		c.chunks++
		return chunk, nil
	}

	lastnl := bytes.LastIndexByte(buf[:end], '\n')
	if lastnl == -1 {
		if !c.eof {
			c.Release(chunk)
			return nil, fmt.Errorf("%w: no '\\n' in %d bytes", ErrRecordTooLong, end)
		}
		lastnl = end - 1
	}

	c.leftovers = append(c.leftovers, buf[lastnl+1:end]...)
	*chunk = buf[:lastnl+1]
	c.chunks++
	return chunk, nil
}

// Run pushes every chunk to out, blocking while out is full. It closes out
// when it returns, whether the source is exhausted, Next failed or ctx is done.
func (c *Chunker) Run(ctx context.Context, out chan<- *[]byte) error {
	defer close(out)
	for {
		chunk, err := c.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		select {
		case out <- chunk:
		case <-ctx.Done():
			c.Release(chunk)
			return ctx.Err()
		}
	}
}
