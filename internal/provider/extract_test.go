package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

func TestExtractRanges(t *testing.T) {
	ranges, skipped := ExtractRanges("Електроенергії немає з 03:00 до 06:30, з 9:00 до 12:00 та з 21:00 до 24:00. з 25:00 до 26:00")

	assert.Equal(t, []schedule.RawInterval{
		{Start: 180, End: 390},
		{Start: 540, End: 720},
		{Start: 1260, End: schedule.EndOfDay},
	}, ranges)
	assert.Equal(t, []string{"з 25:00 до 26:00"}, skipped)
}

func TestExtractRanges_NoMatches(t *testing.T) {
	ranges, skipped := ExtractRanges("Електроенергія є.")
	assert.Empty(t, ranges)
	assert.Empty(t, skipped)
}

