package fastbrc

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceRead is returned when the underlying reader fails mid-read.
	ErrSourceRead = errors.New("source read failure")

	// ErrRecordFormat is returned for a record without a ';' separator or
	// without any digit in its value.
	ErrRecordFormat = errors.New("record format failure")

	// ErrRecordTooLong means a full chunk buffer did not contain a single '\n'.
	ErrRecordTooLong = fmt.Errorf("record longer than chunk size: %w", ErrRecordFormat)

	// ErrEncoding is returned when a station name is not valid UTF-8.
	ErrEncoding = errors.New("encoding failure")

	// ErrEmptyInput is returned when the source holds no records at all.
	ErrEmptyInput = errors.New("empty input")

	// ErrNoTables is returned by Merge when called without any table.
	ErrNoTables = errors.New("no tables to merge")

	ErrWorkerPanic    = errors.New("worker panic")
	ErrInvalidOptions = errors.New("invalid options")
)

// maxExcerpt bounds how much of a bad record ends up in an error message.
const maxExcerpt = 64

func recordError(reason string, record []byte) error {
	if len(record) > maxExcerpt {
		return fmt.Errorf("%w: %s: %q...", ErrRecordFormat, reason, record[:maxExcerpt])
	}
	return fmt.Errorf("%w: %s: %q", ErrRecordFormat, reason, record)
}
