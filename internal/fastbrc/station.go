package fastbrc

import "strconv"

// Station holds running statistics for one station. Temperatures are
// fixed-point values scaled by 10; nothing here touches floating point.
type Station struct {
	Min   int16
	Max   int16
	Sum   int64
	Count uint64
}

// NewMeasurement records one observation. The first observation initializes
// min and max.
func (s *Station) NewMeasurement(m int16) {
	if s.Count == 0 {
		*s = Station{Min: m, Max: m, Sum: int64(m), Count: 1}
		return
	}
	s.Min = min(s.Min, m)
	s.Max = max(s.Max, m)
	s.Sum += int64(m)
	s.Count++
}

// Combine merges other into s. It is associative and commutative, and a
// zero Station is its identity.
func (s *Station) Combine(other Station) {
	if other.Count == 0 {
		return
	}
	if s.Count == 0 {
		*s = other
		return
	}
	s.Min = min(s.Min, other.Min)
	s.Max = max(s.Max, other.Max)
	s.Sum += other.Sum
	s.Count += other.Count
}

// MeanTenths returns sum/count rounded half away from zero, still scaled by 10.
func (s *Station) MeanTenths() int64 {
	if s.Count == 0 {
		return 0
	}
	// doubling Sum is safe while |Sum| < 2^62.
	n := int64(s.Count)
	if s.Sum >= 0 {
		return (2*s.Sum + n) / (2 * n)
	}
	return -((-2*s.Sum + n) / (2 * n))
}

// FancyPrint renders min/mean/max with one decimal each.
func (s *Station) FancyPrint() string {
	return string(s.appendFancy(make([]byte, 0, 24)))
}

func (s *Station) appendFancy(b []byte) []byte {
	b = appendTenths(b, int64(s.Min))
	b = append(b, '/')
	b = appendTenths(b, s.MeanTenths())
	b = append(b, '/')
	return appendTenths(b, int64(s.Max))
}

// appendTenths appends i/10 with exactly one decimal: -5 -> "-0.5".
func appendTenths(b []byte, i int64) []byte {
	if i < 0 {
		b = append(b, '-')
		i = -i
	}
	b = strconv.AppendInt(b, i/10, 10)
	b = append(b, '.')
	return append(b, byte('0'+i%10))
}
