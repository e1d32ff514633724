package brc

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"
)

type readCloser struct {
	io.Reader
	io.Closer
}

// NewMmapReader maps inputFile in memory and reads it sequentially.
func NewMmapReader(inputFile string) (io.ReadCloser, error) {
	mm, err := mmap.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("mmap.Open: %w", err)
	}

	reader := io.NewSectionReader(mm, 0, int64(mm.Len()))

	return readCloser{Reader: reader, Closer: mm}, nil
}

// OpenSource opens inputFile for sequential reading, memory mapped when
// useMmap is set.
func OpenSource(inputFile string, useMmap bool) (io.ReadCloser, error) {
	if useMmap {
		return NewMmapReader(inputFile)
	}
	f, err := os.Open(inputFile)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	return f, nil
}
