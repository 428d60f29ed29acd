package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/transit-display/octranspo/internal/live"
)

// imminentGlyph marks a GPS-tracked trip arriving within a minute. It
// deliberately contains a colon so the second-time suppression below treats it
// like an absolute time.
const imminentGlyph = ":bus:"

const minRouteColumn = 3

// renderTime formats one predicted departure:
//   - 60 minutes or more away renders as an absolute HH:MM,
//   - within a minute and GPS-tracked renders as the imminent glyph,
//   - GPS-tracked under an hour renders as starred minutes,
//   - schedule-only renders as plain minutes.
//
// The last trip of the schedule is underlined whatever its form.
func renderTime(t live.Trip, now time.Time) string {
	var s string
	switch {
	case t.AdjustedScheduleTime >= 60:
		s = now.Add(time.Duration(t.AdjustedScheduleTime) * time.Minute).Format("15:04")
	case t.GPSAdjusted() && t.AdjustedScheduleTime <= 1:
		s = imminentGlyph
	case t.GPSAdjusted():
		s = fmt.Sprintf("%d*", t.AdjustedScheduleTime)
	default:
		s = fmt.Sprintf("%d", t.AdjustedScheduleTime)
	}
	if t.LastTripOfSchedule {
		s = "__" + s + "__"
	}
	return s
}

// renderTimes renders up to the first two trips. When the first time carries a
// colon (the glyph or an absolute HH:MM) the second is suppressed.
func renderTimes(trips []live.Trip, now time.Time) string {
	if len(trips) == 0 {
		return "-"
	}
	first := renderTime(trips[0], now)
	if len(trips) == 1 || strings.Contains(first, ":") {
		return first
	}
	return first + " & " + renderTime(trips[1], now)
}

// renderBoardRow formats one departure-board line: the route number
// right-aligned in its column, the headsign left-aligned and capped, then the
// next one or two times. Headsigns are bilingual, so the cap and the padding
// count runes rather than bytes.
func renderBoardRow(g RouteGroup, maxRouteWidth int, now time.Time) string {
	routeCol := maxRouteWidth
	if routeCol < minRouteColumn {
		routeCol = minRouteColumn
	}
	headsignCol := 19 - maxRouteWidth
	headsign := []rune(g.Headsign)
	if len(headsign) > headsignCol {
		headsign = headsign[:headsignCol]
	}
	pad := headsignCol - len(headsign)
	if pad < 0 {
		pad = 0
	}
	return fmt.Sprintf("`%*s `  `%s%s` - %s",
		routeCol, g.RouteNo, string(headsign), strings.Repeat(" ", pad),
		renderTimes(g.Trips, now))
}

// renderBoard renders one departure-board page from its slice of groups
func renderBoard(groups []RouteGroup, now time.Time) string {
	maxRouteWidth := 0
	for _, g := range groups {
		if len(g.RouteNo) > maxRouteWidth {
			maxRouteWidth = len(g.RouteNo)
		}
	}

	rows := make([]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, renderBoardRow(g, maxRouteWidth, now))
	}
	return strings.Join(rows, "\n")
}
