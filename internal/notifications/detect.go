package notifications

import (
	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// Detect compares the current schedule with the persisted record. It returns
// false when the fingerprints match. A nil prev is a first observation.
func Detect(cur schedule.GroupSchedule, prev *schedule.Record) (ChangeSet, bool) {
	cs := ChangeSet{Group: cur.Group, Schedule: cur}
	if prev == nil {
		cs.FirstObservation = true
		return cs, true
	}
	if schedule.Compute(cur) == prev.Fingerprint {
		return ChangeSet{}, false
	}

	previous := prev.Schedule
	cs.Previous = &previous
	cs.Today, cs.Tomorrow = schedule.DiffGroup(previous, cur)
	return cs, true
}
