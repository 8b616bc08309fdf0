// internal/app/message.go
package app

import (
	"fmt"
	"html"
	"strings"
	"time"

	"cgv_schedule_tracker/internal/domain/schedule"
)

const bookingURLFormat = "https://cgv.co.kr/cnm/cgvChart/movieChart/%s"

type screenGroup struct {
	name    string
	entries []schedule.Entry
}

// FormatScheduleMessage renders the Telegram HTML announcement for the
// entries found on targetDate (YYYYMMDD). Entries are grouped by screen in
// the order each screen first appears.
func FormatScheduleMessage(entries []schedule.Entry, targetDate, movieNo string) string {
	dateStr := targetDate
	if d, err := time.Parse("20060102", targetDate); err == nil {
		dateStr = d.Format("2006-01-02")
	}

	movieName, siteName := "Unknown", "Unknown"
	if len(entries) > 0 {
		movieName = orUnknown(entries[0].MovieName)
		siteName = orUnknown(entries[0].SiteName)
	}

	var b strings.Builder
	b.WriteString("🎬 <b>CGV Schedule Open!</b>\n\n")
	fmt.Fprintf(&b, "📅 Date: %s\n", html.EscapeString(dateStr))
	fmt.Fprintf(&b, "🎥 Movie: %s\n", html.EscapeString(movieName))
	fmt.Fprintf(&b, "📍 Theater: %s\n\n", html.EscapeString(siteName))

	for _, g := range groupByScreen(entries) {
		fmt.Fprintf(&b, "🏢 <b>%s</b>\n", html.EscapeString(g.name))
		for _, e := range g.entries {
			fmt.Fprintf(&b, "  • %s (%s) - Seats: %s/%s\n",
				html.EscapeString(schedule.FormatTime(e.StartTime)),
				html.EscapeString(e.ScreenType),
				e.FreeSeats, e.TotalSeats,
			)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "🔗 Book: "+bookingURLFormat, movieNo)
	return b.String()
}

func groupByScreen(entries []schedule.Entry) []*screenGroup {
	var groups []*screenGroup
	index := make(map[string]*screenGroup)
	for _, e := range entries {
		name := orUnknown(e.ScreenName)
		g, ok := index[name]
		if !ok {
			g = &screenGroup{name: name}
			index[name] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, e)
	}
	return groups
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
