package fastbrc

import (
	"fmt"
	"unicode/utf8"
)

// Format renders t as {name=min/mean/max, ...} sorted by name byte-wise.
// Every number has one decimal; the mean is rounded half away from zero.
func Format(t *Table) (string, error) {
	if t.Len() == 0 {
		return "", ErrEmptyInput
	}

	entries := t.Sorted()
	out := make([]byte, 0, len(entries)*32)
	out = append(out, '{')
	for i := range entries {
		e := &entries[i]
		if !utf8.Valid(e.Name) {
			return "", fmt.Errorf("%w: station name %q is not valid UTF-8", ErrEncoding, e.Name)
		}
		if i > 0 {
			out = append(out, ", "...)
		}
		out = append(out, e.Name...)
		out = append(out, '=')
		out = e.Station.appendFancy(out)
	}
	out = append(out, '}')
	return string(out), nil
}
