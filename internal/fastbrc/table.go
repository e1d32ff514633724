package fastbrc

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/DataDog/sketches-go/ddsketch"
	"github.com/cespare/xxhash/v2"
)

// sketchAccuracy is the relative accuracy of per-station quantile sketches.
const sketchAccuracy = 0.01

// Entry is one station of a Table.
type Entry struct {
	Name    []byte
	Station Station
	// Sketch is nil unless the table tracks quantiles.
	Sketch *ddsketch.DDSketch
}

// Quantiles returns the sketched temperatures at qs, in degrees.
func (e *Entry) Quantiles(qs ...float64) ([]float64, error) {
	if e.Sketch == nil {
		return nil, nil
	}
	return e.Sketch.GetValuesAtQuantiles(qs)
}

type slot struct {
	used  bool
	hash  uint64
	entry Entry
}

// Table maps station names to their aggregate. It is an open addressing
// table keyed by the xxhash of the name, so a lookup of an already known
// station does not allocate. A Table must not be shared between goroutines.
type Table struct {
	slots     []slot
	mask      uint64
	n         int
	quantiles bool
}

// NewTable returns a table sized for about sizeHint stations. When quantiles
// is set, each station also keeps a DDSketch of its values.
func NewTable(sizeHint int, quantiles bool) *Table {
	nslots := 16
	for nslots < sizeHint*2 {
		nslots <<= 1
	}
	return &Table{
		slots:     make([]slot, nslots),
		mask:      uint64(nslots - 1),
		quantiles: quantiles,
	}
}

// Len returns the number of stations.
func (t *Table) Len() int {
	return t.n
}

// NewMeasurement records m for name. name is copied on first sight only.
func (t *Table) NewMeasurement(name []byte, m int16) error {
	e, err := t.getOrCreate(xxhash.Sum64(name), name)
	if err != nil {
		return err
	}
	e.Station.NewMeasurement(m)
	if e.Sketch != nil {
		if err := e.Sketch.Add(float64(m) / 10); err != nil {
			return fmt.Errorf("sketch add %q: %w", name, err)
		}
	}
	return nil
}

// Get returns the aggregate of name.
func (t *Table) Get(name []byte) (Station, bool) {
	s := t.find(xxhash.Sum64(name), name)
	if s == nil {
		return Station{}, false
	}
	return s.entry.Station, true
}

func (t *Table) find(h uint64, name []byte) *slot {
	for i := h & t.mask; ; i = (i + 1) & t.mask {
		s := &t.slots[i]
		if !s.used {
			return nil
		}
		if s.hash == h && bytes.Equal(s.entry.Name, name) {
			return s
		}
	}
}

func (t *Table) getOrCreate(h uint64, name []byte) (*Entry, error) {
	i := h & t.mask
	for ; t.slots[i].used; i = (i + 1) & t.mask {
		s := &t.slots[i]
		if s.hash == h && bytes.Equal(s.entry.Name, name) {
			return &s.entry, nil
		}
	}

	if (t.n+1)*2 > len(t.slots) {
		t.grow()
		return t.getOrCreate(h, name)
	}

	s := &t.slots[i]
	s.used = true
	s.hash = h
	s.entry.Name = bytes.Clone(name)
	if t.quantiles {
		sketch, err := ddsketch.NewDefaultDDSketch(sketchAccuracy)
		if err != nil {
			return nil, fmt.Errorf("new sketch: %w", err)
		}
		s.entry.Sketch = sketch
	}
	t.n++
	return &s.entry, nil
}

func (t *Table) grow() {
	old := t.slots
	t.slots = make([]slot, len(old)*2)
	t.mask = uint64(len(t.slots) - 1)
	for _, s := range old {
		if !s.used {
			continue
		}
		i := s.hash & t.mask
		for t.slots[i].used {
			i = (i + 1) & t.mask
		}
		t.slots[i] = s
	}
}

// Absorb merges every station of other into t. other must not be used
// afterwards: its names and sketches now belong to t.
func (t *Table) Absorb(other *Table) error {
	for i := range other.slots {
		src := &other.slots[i]
		if !src.used {
			continue
		}

		dst := t.find(src.hash, src.entry.Name)
		if dst == nil {
			t.insert(src)
			continue
		}

		dst.entry.Station.Combine(src.entry.Station)
		if err := mergeSketch(&dst.entry, src.entry.Sketch); err != nil {
			return fmt.Errorf("merge %q: %w", dst.entry.Name, err)
		}
	}
	return nil
}

func (t *Table) insert(src *slot) {
	if (t.n+1)*2 > len(t.slots) {
		t.grow()
	}
	i := src.hash & t.mask
	for t.slots[i].used {
		i = (i + 1) & t.mask
	}
	t.slots[i] = *src
	t.n++
}

func mergeSketch(dst *Entry, src *ddsketch.DDSketch) error {
	switch {
	case src == nil:
		return nil
	case dst.Sketch == nil:
		dst.Sketch = src
		return nil
	default:
		return dst.Sketch.MergeWith(src)
	}
}

// Entries returns the stations in table order.
func (t *Table) Entries() []Entry {
	out := make([]Entry, 0, t.n)
	for i := range t.slots {
		if t.slots[i].used {
			out = append(out, t.slots[i].entry)
		}
	}
	return out
}

// Sorted returns the stations ordered byte-wise by name.
func (t *Table) Sorted() []Entry {
	out := t.Entries()
	slices.SortFunc(out, func(a, b Entry) int {
		return bytes.Compare(a.Name, b.Name)
	})
	return out
}
