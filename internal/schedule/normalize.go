package schedule

import (
	"slices"
)

// Normalize converts one raw group into its canonical GroupSchedule.
//
// Intervals are validated, sorted and merged (overlapping or touching windows
// become one); zero-length intervals are dropped. Outage lists are
// complemented into available windows after merging. Several raw entries for
// the same day are combined before normalization.
func Normalize(raw RawGroup) (GroupSchedule, error) {
	group, err := ParseGroup(raw.Label)
	if err != nil {
		return GroupSchedule{}, malformed(raw.Label, "unknown group")
	}

	var today, tomorrow *DaySchedule
	for _, day := range []Day{Today, Tomorrow} {
		entries := entriesFor(raw.Days, day)
		if len(entries) == 0 {
			continue
		}
		ds, err := normalizeDay(raw.Label, day, entries)
		if err != nil {
			return GroupSchedule{}, err
		}
		if day == Today {
			today = &ds
		} else {
			tomorrow = &ds
		}
	}
	if today == nil {
		return GroupSchedule{}, malformed(raw.Label, "no schedule for today")
	}

	return GroupSchedule{Group: group, Today: *today, Tomorrow: tomorrow}, nil
}

func entriesFor(days []RawDay, day Day) []RawDay {
	var out []RawDay
	for _, d := range days {
		if d.Day == day {
			out = append(out, d)
		}
	}
	return out
}

func normalizeDay(label string, day Day, entries []RawDay) (DaySchedule, error) {
	outage := entries[0].Outage
	var ivs []Interval
	for _, e := range entries {
		if e.Outage != outage {
			return DaySchedule{}, malformed(label, "%s mixes outage and availability lists", day)
		}
		for _, r := range e.Intervals {
			if r.Start < StartOfDay || r.End > EndOfDay {
				return DaySchedule{}, malformed(label, "%s interval %s-%s outside the day", day, r.Start, r.End)
			}
			if r.End < r.Start {
				return DaySchedule{}, malformed(label, "%s interval ends at %s before it starts at %s", day, r.End, r.Start)
			}
			if r.End == r.Start {
				continue
			}
			ivs = append(ivs, Interval{Start: r.Start, End: r.End})
		}
	}

	merged := merge(ivs)
	if outage {
		merged = complement(merged)
	}
	for _, iv := range merged {
		if iv.End <= iv.Start {
			return DaySchedule{}, malformed(label, "%s interval %s is empty after merging", day, iv)
		}
	}
	return DaySchedule{Windows: merged}, nil
}

// merge sorts intervals and joins those that overlap or touch.
func merge(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return []Interval{}
	}
	sorted := slices.Clone(ivs)
	slices.SortFunc(sorted, func(a, b Interval) int {
		if a.Start != b.Start {
			return int(a.Start - b.Start)
		}
		return int(a.End - b.End)
	})

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if iv.Start <= last.End {
			last.End = max(last.End, iv.End)
			continue
		}
		out = append(out, iv)
	}
	return out
}

// complement returns the parts of the day not covered by ivs, which must
// already be canonical.
func complement(ivs []Interval) []Interval {
	out := []Interval{}
	cursor := StartOfDay
	for _, iv := range ivs {
		if iv.Start > cursor {
			out = append(out, Interval{Start: cursor, End: iv.Start})
		}
		cursor = max(cursor, iv.End)
	}
	if cursor < EndOfDay {
		out = append(out, Interval{Start: cursor, End: EndOfDay})
	}
	return out
}
