package notifications

import (
	"fmt"
	"strings"
	"time"

	"github.com/svitlo/svitlo-bot/internal/schedule"
)

const separator = "━━━━━━━━━━━━━━━━━━━━\n\n"

// Render formats cs as Telegram HTML: a header, the changed fragments per day,
// then the full ON/OFF schedule for today and, when published, tomorrow.
func Render(cs ChangeSet) string {
	var b strings.Builder
	b.WriteString("⚡️ <b>Оновлення графіку вимкнень!</b>\n\n")
	fmt.Fprintf(&b, "📍 Група: <b>%s</b>\n\n", cs.Group)

	if !cs.FirstObservation {
		var changes strings.Builder
		writeDayChange(&changes, "Сьогодні", cs.Today)
		writeDayChange(&changes, "Завтра", cs.Tomorrow)
		if changes.Len() > 0 {
			b.WriteString("📊 <b>ЩО ЗМІНИЛОСЬ:</b>\n\n")
			b.WriteString(changes.String())
			b.WriteString(separator)
		}
	}

	b.WriteString("📅 <b>ПОВНИЙ ГРАФІК НА СЬОГОДНІ:</b>\n\n")
	writeDay(&b, cs.Schedule.Today)

	if cs.Schedule.Tomorrow != nil {
		b.WriteString("\n")
		b.WriteString(separator)
		b.WriteString("📅 <b>ЗАВТРА:</b>\n\n")
		writeDay(&b, *cs.Schedule.Tomorrow)
	}

	b.WriteString("\n<i>Графік може змінюватися протягом дня</i>")
	return b.String()
}

func writeDayChange(b *strings.Builder, label string, d schedule.DayDiff) {
	switch d.Kind {
	case schedule.Published:
		fmt.Fprintf(b, "🆕 <b>%s:</b> опубліковано графік\n\n", label)
	case schedule.Withdrawn:
		fmt.Fprintf(b, "↩️ <b>%s:</b> графік відкликано\n\n", label)
	case schedule.Changed:
		fmt.Fprintf(b, "<b>%s</b>\n", label)
		if len(d.Added) > 0 {
			b.WriteString("✅ <b>Світло з'явилось:</b>\n")
			for _, iv := range d.Added {
				writeWindow(b, iv, false)
			}
		}
		if len(d.Removed) > 0 {
			b.WriteString("⚠️ <b>Нові вимкнення:</b>\n")
			for _, iv := range d.Removed {
				writeWindow(b, iv, true)
			}
		}
		b.WriteString("\n")
	}
}

func writeDay(b *strings.Builder, d schedule.DaySchedule) {
	b.WriteString("🟢 <b>Є світло:</b>\n")
	for _, iv := range d.Windows {
		writeWindow(b, iv, false)
	}
	if len(d.Windows) == 0 {
		b.WriteString("  • немає\n")
	}

	b.WriteString("\n🔴 <b>Немає світла:</b>\n")
	outages := d.Outages()
	for _, iv := range outages {
		writeWindow(b, iv, true)
	}
	if len(outages) == 0 {
		b.WriteString("  • немає\n")
		return
	}
	fmt.Fprintf(b, "\n⏱ <b>Загалом вимкнено:</b> %s год\n", formatHours(d.Unavailable()))
}

func writeWindow(b *strings.Builder, iv schedule.Interval, withHours bool) {
	if withHours {
		fmt.Fprintf(b, "  • %s — %s (%s год)\n", iv.Start, iv.End, formatHours(iv.Duration()))
		return
	}
	fmt.Fprintf(b, "  • %s — %s\n", iv.Start, iv.End)
}

// formatHours renders whole hours without a fraction and anything else with
// one decimal place.
func formatHours(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%d", int(d/time.Hour))
	}
	return fmt.Sprintf("%.1f", d.Hours())
}
