package schedule

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hm(h, m int) Minute { return Minute(h*60 + m) }

func raw(start, end Minute) RawInterval { return RawInterval{Start: start, End: end} }

func TestNormalize_SortsAndMergesOverlappingAndAdjacent(t *testing.T) {
	got, err := Normalize(RawGroup{
		Label: "2.1",
		Days: []RawDay{{Day: Today, Intervals: []RawInterval{
			raw(hm(12, 0), hm(14, 0)),
			raw(hm(0, 0), hm(3, 0)),
			raw(hm(3, 0), hm(4, 0)),   // touches previous
			raw(hm(13, 0), hm(15, 0)), // overlaps
			raw(hm(0, 0), hm(3, 0)),   // duplicate
			raw(hm(20, 0), hm(20, 0)), // zero length
		}}},
	})
	require.NoError(t, err)

	want := []Interval{
		{Start: hm(0, 0), End: hm(4, 0)},
		{Start: hm(12, 0), End: hm(15, 0)},
	}
	assert.Equal(t, Group21, got.Group)
	if diff := cmp.Diff(want, got.Today.Windows); diff != "" {
		t.Errorf("today windows mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, got.Tomorrow)
}

func TestNormalize_OutageListIsComplemented(t *testing.T) {
	got, err := Normalize(RawGroup{
		Label: "1.1",
		Days: []RawDay{
			{Day: Today, Outage: true, Intervals: []RawInterval{
				raw(hm(6, 30), hm(9, 0)),
				raw(hm(3, 0), hm(6, 30)),
				raw(hm(21, 0), EndOfDay),
			}},
			{Day: Tomorrow, Outage: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []Interval{
		{Start: hm(0, 0), End: hm(3, 0)},
		{Start: hm(9, 0), End: hm(21, 0)},
	}, got.Today.Windows)
	require.NotNil(t, got.Tomorrow)
	assert.Equal(t, []Interval{{Start: StartOfDay, End: EndOfDay}}, got.Tomorrow.Windows)
}

func TestNormalize_FullDayOutageLeavesNoWindows(t *testing.T) {
	got, err := Normalize(RawGroup{
		Label: "6.2",
		Days: []RawDay{{Day: Today, Outage: true, Intervals: []RawInterval{
			raw(StartOfDay, hm(12, 0)),
			raw(hm(12, 0), EndOfDay),
		}}},
	})
	require.NoError(t, err)
	assert.Empty(t, got.Today.Windows)
	assert.Equal(t, 24*60, int(got.Today.Unavailable().Minutes()))
}

func TestNormalize_CombinesSplitEntriesForTheSameDay(t *testing.T) {
	got, err := Normalize(RawGroup{
		Label: "3.2",
		Days: []RawDay{
			{Day: Today, Intervals: []RawInterval{raw(hm(1, 0), hm(2, 0))}},
			{Day: Today, Intervals: []RawInterval{raw(hm(2, 0), hm(5, 0))}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []Interval{{Start: hm(1, 0), End: hm(5, 0)}}, got.Today.Windows)
}

func TestNormalize_Malformed(t *testing.T) {
	tests := []struct {
		name string
		in   RawGroup
	}{
		{
			name: "unknown group",
			in:   RawGroup{Label: "7.1", Days: []RawDay{{Day: Today}}},
		},
		{
			name: "end before start",
			in: RawGroup{Label: "1.2", Days: []RawDay{{Day: Today, Intervals: []RawInterval{
				raw(hm(5, 0), hm(4, 0)),
			}}}},
		},
		{
			name: "outside the day",
			in: RawGroup{Label: "1.2", Days: []RawDay{{Day: Today, Intervals: []RawInterval{
				raw(hm(23, 0), EndOfDay+1),
			}}}},
		},
		{
			name: "missing today",
			in:   RawGroup{Label: "1.2", Days: []RawDay{{Day: Tomorrow}}},
		},
		{
			name: "mixed meanings",
			in: RawGroup{Label: "1.2", Days: []RawDay{
				{Day: Today, Outage: true},
				{Day: Today, Outage: false},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.in)
			var me *MalformedScheduleError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, tt.in.Label, me.Group)
		})
	}
}

func TestNormalize_OutputIsAlwaysCanonical(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		var ivs []RawInterval
		for n := rng.Intn(10); n > 0; n-- {
			a := Minute(rng.Intn(int(EndOfDay) + 1))
			b := Minute(rng.Intn(int(EndOfDay) + 1))
			if b < a {
				a, b = b, a
			}
			ivs = append(ivs, raw(a, b))
		}

		got, err := Normalize(RawGroup{
			Label: "4.1",
			Days:  []RawDay{{Day: Today, Outage: rng.Intn(2) == 0, Intervals: ivs}},
		})
		require.NoError(t, err)

		w := got.Today.Windows
		for k := range w {
			require.Less(t, w[k].Start, w[k].End, "case %d: empty window %v", i, w[k])
			if k > 0 {
				require.Less(t, w[k-1].End, w[k].Start, "case %d: windows %v and %v overlap or touch", i, w[k-1], w[k])
			}
		}
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("7:05")
	require.NoError(t, err)
	assert.Equal(t, hm(7, 5), m)

	m, err = ParseClock("24:00")
	require.NoError(t, err)
	assert.Equal(t, EndOfDay, m)
	assert.Equal(t, "24:00", m.String())

	for _, bad := range []string{"", "12", "25:00", "24:01", "10:60", "aa:bb"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}
