package schedule

// ChangeKind classifies how one day's schedule moved between two snapshots.
type ChangeKind uint8

const (
	Unchanged ChangeKind = iota
	// Changed means both snapshots carry the day and the windows differ.
	Changed
	// Published means the day was absent before and is present now.
	Published
	// Withdrawn means the day was present before and is absent now.
	Withdrawn
)

func (k ChangeKind) String() string {
	switch k {
	case Changed:
		return "changed"
	case Published:
		return "published"
	case Withdrawn:
		return "withdrawn"
	default:
		return "unchanged"
	}
}

// DayDiff is the change of one day. Added holds windows where power is now
// available that were not before; Removed holds windows that lost power.
// Both are canonical and only set when Kind is Changed.
type DayDiff struct {
	Kind    ChangeKind
	Added   []Interval
	Removed []Interval
}

// DiffDay compares two canonical schedules of the same calendar day, treating
// them as sets of minutes. A window that shrank or grew is reported as the
// changed fragment only.
func DiffDay(prev, cur DaySchedule) DayDiff {
	added := subtract(cur.Windows, prev.Windows)
	removed := subtract(prev.Windows, cur.Windows)
	if len(added) == 0 && len(removed) == 0 {
		return DayDiff{Kind: Unchanged}
	}
	return DayDiff{Kind: Changed, Added: added, Removed: removed}
}

// DiffOptional is DiffDay for a day that may be absent on either side.
func DiffOptional(prev, cur *DaySchedule) DayDiff {
	switch {
	case prev == nil && cur == nil:
		return DayDiff{Kind: Unchanged}
	case prev == nil:
		return DayDiff{Kind: Published}
	case cur == nil:
		return DayDiff{Kind: Withdrawn}
	default:
		return DiffDay(*prev, *cur)
	}
}

// DiffGroup diffs today and tomorrow of two schedules of the same group.
func DiffGroup(prev, cur GroupSchedule) (today, tomorrow DayDiff) {
	return DiffDay(prev.Today, cur.Today), DiffOptional(prev.Tomorrow, cur.Tomorrow)
}

// subtract returns the minutes of a not covered by b. Both inputs must be
// canonical; the result is canonical.
func subtract(a, b []Interval) []Interval {
	out := []Interval{}
	j := 0
	for _, iv := range a {
		start := iv.Start
		for j < len(b) && b[j].End <= start {
			j++
		}
		for k := j; k < len(b) && b[k].Start < iv.End; k++ {
			if b[k].Start > start {
				out = append(out, Interval{Start: start, End: b[k].Start})
			}
			start = max(start, b[k].End)
			if start >= iv.End {
				break
			}
		}
		if start < iv.End {
			out = append(out, Interval{Start: start, End: iv.End})
		}
	}
	return out
}
