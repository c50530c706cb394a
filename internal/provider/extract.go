// Package provider holds helpers shared by upstream schedule providers.
package provider

import (
	"regexp"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

// outageRange matches "з 03:00 до 06:30" (from ... until ...).
var outageRange = regexp.MustCompile(`з\s+(\d{1,2}:\d{2})\s+до\s+(\d{1,2}:\d{2})`)

// ExtractRanges pulls every "з HH:MM до HH:MM" range out of free text.
//
// Ranges whose clocks do not parse are returned in skipped so the caller can
// log them; they never reach the normalizer.
func ExtractRanges(text string) (ranges []schedule.RawInterval, skipped []string) {
	for _, m := range outageRange.FindAllStringSubmatch(text, -1) {
		start, err := schedule.ParseClock(m[1])
		if err != nil {
			skipped = append(skipped, m[0])
			continue
		}
		end, err := schedule.ParseClock(m[2])
		if err != nil {
			skipped = append(skipped, m[0])
			continue
		}
		ranges = append(ranges, schedule.RawInterval{Start: start, End: end})
	}
	return ranges, skipped
}

