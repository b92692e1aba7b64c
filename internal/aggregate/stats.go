package aggregate

import (
	"math"
	"sort"
)

// Percentile returns the p-th percentile (0-100) of vals using linear
// interpolation between closest ranks: index = p/100 * (n-1), interpolated
// between the floor and ceiling elements of the sorted sample. vals is not
// modified. An empty sample yields 0.
func Percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	return percentileSorted(sorted, p)
}

func percentileSorted(sorted []float64, p float64) float64 {
	p = min(max(p, 0), 100)
	idx := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// Distribution summarizes a numeric sample.
type Distribution struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	P25    float64 `json:"p25"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
	StdDev float64 `json:"std_dev"`
}

// Describe computes a Distribution over vals with every statistic rounded to
// one decimal. It returns nil for an empty sample.
func Describe(vals []float64) *Distribution {
	if len(vals) == 0 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	mean := meanOf(sorted)
	return &Distribution{
		Count:  len(sorted),
		Min:    round1(sorted[0]),
		Max:    round1(sorted[len(sorted)-1]),
		Mean:   round1(mean),
		Median: round1(percentileSorted(sorted, 50)),
		P25:    round1(percentileSorted(sorted, 25)),
		P75:    round1(percentileSorted(sorted, 75)),
		P90:    round1(percentileSorted(sorted, 90)),
		StdDev: round1(stdDev(sorted, mean)),
	}
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// medianOf returns the median of vals without modifying them.
func medianOf(vals []float64) float64 {
	return Percentile(vals, 50)
}

// stdDev is the sample standard deviation; 0 for fewer than two values.
func stdDev(vals []float64, mean float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)-1))
}

// rate returns part/total as a percentage rounded to one decimal, or 0 when
// total is 0.
func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }

// Bucket is one bar of the duration histogram.
type Bucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// durationEdges are the upper bounds (exclusive, minutes) of every bucket
// but the last.
var durationEdges = []struct {
	label string
	upper float64
}{
	{"<1min", 1},
	{"1-5min", 5},
	{"5-15min", 15},
	{"15-30min", 30},
	{"30-60min", 60},
}

const overflowLabel = "60min+"

// DurationHistogram buckets durations (minutes) into fixed ranges. Every
// bucket is present, in ascending order, even when empty.
func DurationHistogram(durations []float64) []Bucket {
	buckets := make([]Bucket, 0, len(durationEdges)+1)
	for _, e := range durationEdges {
		buckets = append(buckets, Bucket{Label: e.label})
	}
	buckets = append(buckets, Bucket{Label: overflowLabel})

	for _, d := range durations {
		i := len(durationEdges)
		for j, e := range durationEdges {
			if d < e.upper {
				i = j
				break
			}
		}
		buckets[i].Count++
	}
	return buckets
}
