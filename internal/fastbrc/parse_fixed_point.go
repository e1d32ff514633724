package fastbrc

import (
	"bytes"
	"math"
)

// ParseRecord splits a record (without its '\n') at the first ';' and parses
// the value with ParseFixedPoint16. The returned name aliases record.
func ParseRecord(record []byte) ([]byte, int16, error) {
	delim := bytes.IndexByte(record, ';')
	if delim < 0 {
		return nil, 0, recordError("';' not found", record)
	}

	m, err := ParseFixedPoint16(record[delim+1:])
	if err != nil {
		return nil, 0, err
	}
	return record[:delim], m, nil
}

// ParseFixedPoint16 parses input as a number with one decimal place and
// returns it scaled by 10, i.e. "-12.3" -> -123.
//
// A leading '-' negates the result, every digit is accumulated and any other
// byte (the '.') is skipped. The scale is therefore only right when the input
// carries exactly one fractional digit: "12" parses as 1.2 and "1.23" as 12.3.
func ParseFixedPoint16(input []byte) (int16, error) {
	if len(input) == 0 {
		return 0, recordError("empty value", input)
	}

	digits := input
	negative := input[0] == '-'
	if negative {
		digits = input[1:]
	}

	var value int32
	var ndigits int
	for _, b := range digits {
		if b < '0' || b > '9' {
			continue
		}
		value = value*10 + int32(b-'0')
		ndigits++
		if value > math.MaxInt16 {
			return 0, recordError("value out of range", input)
		}
	}

	if ndigits == 0 {
		return 0, recordError("no digits in value", input)
	}

	if negative {
		value = -value
	}
	return int16(value), nil
}
