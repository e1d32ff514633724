package brc

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"stationstats/internal/fastbrc"
)

// Baseline aggregates input on a single goroutine with bufio.Scanner and
// strconv.ParseFloat. It shares no parsing code with fastbrc and serves as a
// reference to check the parallel pipeline against.
func Baseline(input io.Reader) (map[string]fastbrc.Station, error) {
	stations := make(map[string]fastbrc.Station)
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		name, value, ok := strings.Cut(line, ";")
		if !ok {
			return nil, fmt.Errorf("%w: invalid line: %q", fastbrc.ErrRecordFormat, line)
		}
		m, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", fastbrc.ErrRecordFormat, err)
		}

		station := stations[name]
		station.NewMeasurement(int16(math.Round(m * 10)))
		stations[name] = station
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", fastbrc.ErrSourceRead, err)
	}
	if len(stations) == 0 {
		return nil, fastbrc.ErrEmptyInput
	}
	return stations, nil
}

// BaselineReport formats the Baseline result the same way fastbrc.Format does.
func BaselineReport(input io.Reader) (string, error) {
	stations, err := Baseline(input)
	if err != nil {
		return "", err
	}

	keys := make([]string, 0, len(stations))
	for k := range stations {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(stations))
	for _, k := range keys {
		station := stations[k]
		out = append(out, fmt.Sprintf("%s=%s", k, station.FancyPrint()))
	}
	return "{" + strings.Join(out, ", ") + "}", nil
}
