package scheduling

import (
	"sort"
	"time"
)

// DefaultTolerance is the minimum idle time between consecutive offered
// slots when the caller does not override it.
const DefaultTolerance = 10 * time.Minute

// Interval is a half-open [Start, End) window on the timeline.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps uses strict interval overlap: touching endpoints do not conflict.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// clipTo bounds the interval to the given window. The second return is false
// when nothing remains.
func (i Interval) clipTo(bound Interval) (Interval, bool) {
	if !i.Overlaps(bound) {
		return Interval{}, false
	}
	out := i
	if out.Start.Before(bound.Start) {
		out.Start = bound.Start
	}
	if out.End.After(bound.End) {
		out.End = bound.End
	}
	return out, true
}

// mergeIntervals coalesces overlapping or touching intervals into a minimal
// sorted set. Busy intervals are not guaranteed disjoint at write time (an
// appointment block can coexist with a wider vacation block), so merging
// before the sweep is required for a correct result.
func mergeIntervals(in []Interval) []Interval {
	if len(in) <= 1 {
		return in
	}

	sorted := make([]Interval, len(in))
	copy(sorted, in)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// ComputeSlots sweeps one work range and returns every slot of length
// required that fits between the busy intervals, consecutive slots separated
// by tolerance. Busy intervals are clipped to the range and merged first.
func ComputeSlots(workRange Interval, busy []Interval, required, tolerance time.Duration) []Slot {
	clipped := make([]Interval, 0, len(busy))
	for _, iv := range busy {
		if c, ok := iv.clipTo(workRange); ok {
			clipped = append(clipped, c)
		}
	}
	merged := mergeIntervals(clipped)

	step := required + tolerance

	var slots []Slot
	sweep := func(gap Interval) {
		for cursor := gap.Start; !cursor.Add(required).After(gap.End); cursor = cursor.Add(step) {
			slots = append(slots, Slot{Start: cursor, End: cursor.Add(required)})
		}
	}

	cursor := workRange.Start
	for _, iv := range merged {
		sweep(Interval{Start: cursor, End: iv.Start})
		cursor = iv.End
	}
	sweep(Interval{Start: cursor, End: workRange.End})

	return slots
}

// ComputeDaySlots runs the sweep over every work range of the day
// independently, supporting split shifts, and returns the union ordered by
// start time.
func ComputeDaySlots(wd WorkDay, date time.Time, busy []Interval, required, tolerance time.Duration) []Slot {
	if !wd.Active {
		return nil
	}

	var slots []Slot
	for _, r := range wd.Ranges {
		start, end := r.On(date)
		slots = append(slots, ComputeSlots(Interval{Start: start, End: end}, busy, required, tolerance)...)
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
	return slots
}

// coveredByWorkDay reports whether the interval lies entirely inside one of
// the day's work ranges on the given date.
func coveredByWorkDay(wd WorkDay, date time.Time, iv Interval) bool {
	if !wd.Active {
		return false
	}
	for _, r := range wd.Ranges {
		start, end := r.On(date)
		if !iv.Start.Before(start) && !iv.End.After(end) {
			return true
		}
	}
	return false
}
