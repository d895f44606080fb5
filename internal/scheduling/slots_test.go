package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(hour, min int) time.Time {
	return time.Date(2030, time.January, 7, hour, min, 0, 0, time.UTC)
}

func TestComputeSlotsFullRange(t *testing.T) {
	workRange := Interval{Start: day(9, 0), End: day(18, 0)}

	slots := ComputeSlots(workRange, nil, 60*time.Minute, 10*time.Minute)

	require.Len(t, slots, 7)
	assert.Equal(t, day(9, 0), slots[0].Start)
	assert.Equal(t, day(10, 0), slots[0].End)
	assert.Equal(t, day(10, 10), slots[1].Start)
	assert.Equal(t, day(11, 10), slots[1].End)

	last := slots[len(slots)-1]
	assert.False(t, last.End.After(day(18, 0)), "last slot must end inside the work range")

	for i, s := range slots {
		assert.Equal(t, 60*time.Minute, s.End.Sub(s.Start), "slot %d has wrong length", i)
		if i > 0 {
			gap := s.Start.Sub(slots[i-1].End)
			assert.GreaterOrEqual(t, gap, 10*time.Minute, "slot %d too close to predecessor", i)
		}
	}
}

func TestComputeSlotsAroundBlock(t *testing.T) {
	workRange := Interval{Start: day(9, 0), End: day(18, 0)}
	busy := []Interval{{Start: day(12, 0), End: day(13, 0)}}

	slots := ComputeSlots(workRange, busy, 60*time.Minute, 10*time.Minute)

	require.NotEmpty(t, slots)
	for _, s := range slots {
		assert.False(t, Interval{Start: s.Start, End: s.End}.Overlaps(busy[0]),
			"slot %v overlaps the busy interval", s)
	}

	// The sweep restarts right at the end of the busy interval.
	found := false
	for _, s := range slots {
		if s.Start.Equal(day(13, 0)) {
			found = true
		}
	}
	assert.True(t, found, "expected a slot starting at 13:00")
}

func TestComputeSlotsMergesOverlappingBusyIntervals(t *testing.T) {
	workRange := Interval{Start: day(9, 0), End: day(18, 0)}
	// A vacation block and an appointment block that overlap each other.
	busy := []Interval{
		{Start: day(10, 0), End: day(12, 0)},
		{Start: day(11, 0), End: day(13, 0)},
		{Start: day(11, 30), End: day(11, 45)}, // nested
	}

	slots := ComputeSlots(workRange, busy, 60*time.Minute, 10*time.Minute)

	merged := Interval{Start: day(10, 0), End: day(13, 0)}
	for _, s := range slots {
		assert.False(t, Interval{Start: s.Start, End: s.End}.Overlaps(merged),
			"slot %v lands inside the merged busy window", s)
	}
}

func TestComputeSlotsExactFitGap(t *testing.T) {
	workRange := Interval{Start: day(9, 0), End: day(18, 0)}
	busy := []Interval{
		{Start: day(9, 0), End: day(10, 0)},
		{Start: day(11, 0), End: day(18, 0)},
	}

	slots := ComputeSlots(workRange, busy, 60*time.Minute, 10*time.Minute)

	require.Len(t, slots, 1)
	assert.Equal(t, day(10, 0), slots[0].Start)
	assert.Equal(t, day(11, 0), slots[0].End)
}

func TestComputeSlotsBusyIntervalOutsideRangeIsIgnored(t *testing.T) {
	workRange := Interval{Start: day(9, 0), End: day(12, 0)}
	busy := []Interval{{Start: day(14, 0), End: day(15, 0)}}

	slots := ComputeSlots(workRange, busy, 60*time.Minute, 10*time.Minute)
	withoutBusy := ComputeSlots(workRange, nil, 60*time.Minute, 10*time.Minute)

	assert.Equal(t, withoutBusy, slots)
}

func TestComputeDaySlotsSplitShift(t *testing.T) {
	wd := WorkDay{
		Active: true,
		Ranges: []TimeRange{
			{StartMinute: 9 * 60, EndMinute: 13 * 60},
			{StartMinute: 14 * 60, EndMinute: 18 * 60},
		},
	}

	slots := ComputeDaySlots(wd, day(0, 0), nil, 60*time.Minute, 10*time.Minute)

	require.Len(t, slots, 6)
	// Ordered across both ranges, nothing inside 13:00-14:00.
	for i, s := range slots {
		if i > 0 {
			assert.True(t, s.Start.After(slots[i-1].Start))
		}
		lunch := Interval{Start: day(13, 0), End: day(14, 0)}
		assert.False(t, Interval{Start: s.Start, End: s.End}.Overlaps(lunch))
	}
	assert.Equal(t, day(14, 0), slots[3].Start)
}

func TestComputeDaySlotsInactiveDay(t *testing.T) {
	wd := WorkDay{Active: false, Ranges: []TimeRange{{StartMinute: 9 * 60, EndMinute: 18 * 60}}}

	slots := ComputeDaySlots(wd, day(0, 0), nil, 60*time.Minute, 10*time.Minute)
	assert.Empty(t, slots)
}

func TestIntervalOverlapIsStrict(t *testing.T) {
	a := Interval{Start: day(9, 0), End: day(10, 0)}
	b := Interval{Start: day(10, 0), End: day(11, 0)}

	assert.False(t, a.Overlaps(b), "touching intervals must not conflict")
	assert.False(t, b.Overlaps(a))

	c := Interval{Start: day(9, 59), End: day(10, 30)}
	assert.True(t, a.Overlaps(c))
	assert.True(t, c.Overlaps(a))
}

func TestMergeIntervals(t *testing.T) {
	in := []Interval{
		{Start: day(15, 0), End: day(16, 0)},
		{Start: day(9, 0), End: day(10, 0)},
		{Start: day(10, 0), End: day(11, 0)}, // touches the first
		{Start: day(9, 30), End: day(9, 45)}, // nested
	}

	merged := mergeIntervals(in)

	require.Len(t, merged, 2)
	assert.Equal(t, day(9, 0), merged[0].Start)
	assert.Equal(t, day(11, 0), merged[0].End)
	assert.Equal(t, day(15, 0), merged[1].Start)
}
