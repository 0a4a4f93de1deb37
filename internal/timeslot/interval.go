// Package timeslot provides timezone-aware interval arithmetic over
// half-open [start, end) ranges. All functions are pure and do no I/O.
package timeslot

import (
	"fmt"
	"sort"
	"time"
)

// Interval is a half-open [Start, End) range of absolute instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds an interval, rejecting zero-length or negative ranges.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("malformed interval: end %s is not after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Interval{Start: start, End: end}, nil
}

// Duration returns the interval length.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints do not overlap.
func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && o.Start.Before(iv.End)
}

// Contains reports whether o lies entirely within iv.
func (iv Interval) Contains(o Interval) bool {
	return !o.Start.Before(iv.Start) && !o.End.After(iv.End)
}

// Intersect returns the overlapping part of two intervals, if any.
func (iv Interval) Intersect(o Interval) (Interval, bool) {
	start := iv.Start
	if o.Start.After(start) {
		start = o.Start
	}
	end := iv.End
	if o.End.Before(end) {
		end = o.End
	}
	if !end.After(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

// Pad extends the interval by before and after. Negative paddings are
// clamped to zero.
func (iv Interval) Pad(before, after time.Duration) Interval {
	if before < 0 {
		before = 0
	}
	if after < 0 {
		after = 0
	}
	return Interval{Start: iv.Start.Add(-before), End: iv.End.Add(after)}
}

// Union merges a set of intervals into a sorted, non-overlapping set.
// Adjacent intervals are coalesced.
func Union(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Subtract removes busy intervals from base, returning the remaining free
// intervals. Inputs need not be sorted.
func Subtract(base, busy []Interval) []Interval {
	free := Union(base)
	for _, b := range Union(busy) {
		var next []Interval
		for _, f := range free {
			if !f.Overlaps(b) {
				next = append(next, f)
				continue
			}
			if f.Start.Before(b.Start) {
				next = append(next, Interval{Start: f.Start, End: b.Start})
			}
			if b.End.Before(f.End) {
				next = append(next, Interval{Start: b.End, End: f.End})
			}
		}
		free = next
	}
	return free
}
