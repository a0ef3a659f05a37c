package archiver

import (
	"sort"

	"permanode/internal/ids"
)

// Range is a half-open milestone index range [From, To).
type Range struct {
	From, To ids.MilestoneIndex
}

func (r Range) contains(m ids.MilestoneIndex) bool {
	return m >= r.From && m < r.To
}

// processedRanges tracks the Archiver's pairwise-disjoint, sealed ranges,
// sorted descending by start. Lookup is linear: spec.md §4.3 notes ranges
// are few and usually contiguous.
type processedRanges struct {
	ranges []Range
}

func (p *processedRanges) covers(m ids.MilestoneIndex) bool {
	for _, r := range p.ranges {
		if r.contains(m) {
			return true
		}
	}
	return false
}

func (p *processedRanges) push(r Range) {
	p.ranges = append(p.ranges, r)
	sort.Slice(p.ranges, func(i, j int) bool { return p.ranges[i].From > p.ranges[j].From })
}
