package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, g RawGroup) GroupSchedule {
	t.Helper()
	s, err := Normalize(g)
	require.NoError(t, err)
	return s
}

func TestFingerprint_IgnoresRawOrdering(t *testing.T) {
	a := mustNormalize(t, RawGroup{Label: "1.1", Days: []RawDay{{Day: Today, Intervals: []RawInterval{
		raw(hm(0, 0), hm(3, 0)), raw(hm(6, 30), hm(9, 0)),
	}}}})
	b := mustNormalize(t, RawGroup{Label: "1.1", Days: []RawDay{{Day: Today, Intervals: []RawInterval{
		raw(hm(6, 30), hm(9, 0)), raw(hm(0, 0), hm(1, 0)), raw(hm(1, 0), hm(3, 0)),
	}}}})

	assert.Equal(t, Compute(a), Compute(b))
}

func TestFingerprint_OneMinuteShiftChangesDigest(t *testing.T) {
	base := mustNormalize(t, RawGroup{Label: "5.2", Days: []RawDay{{Day: Today, Intervals: []RawInterval{
		raw(hm(6, 30), hm(9, 0)),
	}}}})
	shifted := mustNormalize(t, RawGroup{Label: "5.2", Days: []RawDay{{Day: Today, Intervals: []RawInterval{
		raw(hm(6, 31), hm(9, 0)),
	}}}})

	assert.NotEqual(t, Compute(base), Compute(shifted))
}

func TestFingerprint_MetadataChurnIsInvisible(t *testing.T) {
	group := RawGroup{Label: "2.2", Days: []RawDay{{Day: Today, Outage: true, Intervals: []RawInterval{
		raw(hm(8, 0), hm(12, 0)),
	}}}}
	first := Snapshot{Groups: []RawGroup{group}, Metadata: map[string]string{"fetched_at": "2025-11-01T10:00:00Z", "document": "42"}}
	second := Snapshot{Groups: []RawGroup{group}, Metadata: map[string]string{"fetched_at": "2025-11-01T10:05:00Z", "document": "43"}}

	a := mustNormalize(t, first.Groups[0])
	b := mustNormalize(t, second.Groups[0])
	assert.Equal(t, Compute(a), Compute(b))
}

func TestFingerprint_DistinguishesAbsentFromEmptyTomorrow(t *testing.T) {
	absent := GroupSchedule{Group: Group31, Today: DaySchedule{Windows: []Interval{{Start: 0, End: 60}}}}
	empty := absent
	empty.Tomorrow = &DaySchedule{}

	assert.NotEqual(t, Compute(absent), Compute(empty))
}

func TestFingerprint_DistinguishesGroups(t *testing.T) {
	a := GroupSchedule{Group: Group11, Today: DaySchedule{Windows: []Interval{{Start: 0, End: 60}}}}
	b := a
	b.Group = Group12

	assert.NotEqual(t, Compute(a), Compute(b))
}

func TestFingerprint_StringRoundTrip(t *testing.T) {
	f := Compute(GroupSchedule{Group: Group41})
	parsed, err := ParseFingerprint(f.String())
	require.NoError(t, err)
	assert.Equal(t, f, parsed)
	assert.False(t, f.IsZero())

	_, err = ParseFingerprint("abc")
	assert.Error(t, err)
}
