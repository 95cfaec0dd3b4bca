// Package factor holds the value types of the factor search and the pure,
// sequential pieces of it: exact integer square root, range partitioning
// and the per-chunk divisor scan.
package factor

import (
	"fmt"
	"math/bits"
	"sort"
)

// FactorPair is one factorization a*b = N with Factor1 <= Factor2.
// Pairs are plain values; equality is structural.
type FactorPair struct {
	Factor1 int
	Factor2 int
}

// String formats the pair as "(a, b)".
func (p FactorPair) String() string {
	return fmt.Sprintf("(%d, %d)", p.Factor1, p.Factor2)
}

// WorkItem is an inclusive range [Start, End] of candidate divisors of
// Number. It is created by Partition and scanned once by a single worker.
type WorkItem struct {
	Number int
	Start  int
	End    int
}

// Len returns the number of candidates in the range.
func (w WorkItem) Len() int {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start + 1
}

// String formats the item for logs.
func (w WorkItem) String() string {
	return fmt.Sprintf("[%d..%d] of %d", w.Start, w.End, w.Number)
}

// Scan tests every candidate of the range and returns the pairs found, in
// increasing order of the tested divisor. The scan runs to completion; it
// has no suspension points.
func (w WorkItem) Scan() []FactorPair {
	var pairs []FactorPair
	for i := w.Start; i <= w.End; i++ {
		if w.Number%i == 0 {
			pairs = append(pairs, FactorPair{Factor1: i, Factor2: w.Number / i})
		}
	}
	return pairs
}

// IntSqrt returns floor(sqrt(n)) for n >= 0 and 0 for negative n.
// It is exact for the whole int range, unlike a float64 round trip.
func IntSqrt(n int) int {
	if n <= 0 {
		return 0
	}
	// Initial guess 2^ceil(bitlen/2) is >= sqrt(n); Newton descends from above.
	x := 1 << ((bits.Len(uint(n)) + 1) / 2)
	for {
		y := (x + n/x) / 2
		if y >= x {
			return x
		}
		x = y
	}
}

// Partition splits [1, floor(sqrt(number))] into contiguous, non-overlapping
// work items of at most chunkSize candidates each, in ascending order. The
// last item may be shorter. It returns nil when number < 1 or chunkSize < 1.
func Partition(number, chunkSize int) []WorkItem {
	if number < 1 || chunkSize < 1 {
		return nil
	}
	limit := IntSqrt(number)
	// ceil(limit/chunkSize) without limit+chunkSize, which overflows for
	// chunk sizes near math.MaxInt.
	items := make([]WorkItem, 0, (limit-1)/chunkSize+1)
	for start := 1; start <= limit; {
		end := limit
		if limit-start >= chunkSize {
			end = start + chunkSize - 1
		}
		items = append(items, WorkItem{Number: number, Start: start, End: end})
		if end == limit {
			break
		}
		start = end + 1
	}
	return items
}

// Expected enumerates the factor pairs of number sequentially. It is the
// reference result the concurrent search must reproduce.
func Expected(number int) []FactorPair {
	if number < 1 {
		return nil
	}
	return WorkItem{Number: number, Start: 1, End: IntSqrt(number)}.Scan()
}

// SortPairs orders pairs by Factor1 ascending, in place.
func SortPairs(pairs []FactorPair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Factor1 < pairs[j].Factor1
	})
}
