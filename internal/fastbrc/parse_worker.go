package fastbrc

import (
	"bytes"
	"context"
	"fmt"
)

type ChunkReleaser interface {
	Release(*[]byte)
}

// ParseChunk feeds every record of chunk into table and returns how many
// records it saw. A trailing '\n' does not start a new record.
func ParseChunk(table *Table, chunk []byte) (int64, error) {
	var n int64
	for len(chunk) > 0 {
		var record []byte
		nl := bytes.IndexByte(chunk, '\n')
		if nl < 0 {
			record, chunk = chunk, nil
		} else {
			record, chunk = chunk[:nl], chunk[nl+1:]
		}

		name, m, err := ParseRecord(record)
		if err != nil {
			return n, err
		}
		if err := table.NewMeasurement(name, m); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// ParseWorker consumes chunks into table until chunks is closed, a record
// fails to parse or ctx is done. Each chunk is released once parsed. A panic
// while parsing is returned as ErrWorkerPanic.
func ParseWorker(ctx context.Context, chunks <-chan *[]byte, releaser ChunkReleaser, table *Table) (records int64, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrWorkerPanic, p)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return records, ctx.Err()
		case chunkPtr, ok := <-chunks:
			if !ok {
				return records, nil
			}

			n, err := ParseChunk(table, *chunkPtr)
			records += n
			releaser.Release(chunkPtr)
			if err != nil {
				return records, err
			}
		}
	}
}
