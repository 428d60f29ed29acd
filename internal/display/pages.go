package display

import (
	"fmt"
	"time"

	"github.com/transit-display/octranspo/internal/live"
)

// Page is the rendered view model handed to the presentation layer
type Page struct {
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Fields      []PageField  `json:"fields,omitempty"`
	Footer      string       `json:"footer,omitempty"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	URL         string       `json:"url,omitempty"`
}

// PageField is one labelled line on a page
type PageField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Page keys discriminate on their prefix: "r::<n>" is departure-board page n,
// "r:<headsign>:<route>" a single route's next trips, "d:<destination>" a
// single destination's next trips.

func boardKey(page int) string {
	return fmt.Sprintf("r::%d", page)
}

func routeKey(headsign, routeNo string) string {
	return fmt.Sprintf("r:%s:%s", headsign, routeNo)
}

func destinationKey(destination string) string {
	return fmt.Sprintf("d:%s", destination)
}

// buildPages pre-renders every page the display can show: the paginated
// departure board, one next-3 page per route group and one per destination.
func buildPages(stop StopInfo, groups []RouteGroup, dests []string, now time.Time, boardPageSize int) map[string]Page {
	pages := make(map[string]Page)

	boardChunks := chunk(groups, boardPageSize)
	if len(boardChunks) == 0 {
		// The first board page always exists; it is the reset target
		boardChunks = [][]RouteGroup{nil}
	}
	for i, bc := range boardChunks {
		pages[boardKey(i)] = Page{
			Title:       fmt.Sprintf("Departures for %s (%s)", stop.Name, stop.Code),
			Description: renderBoard(bc, now),
			Footer:      fmt.Sprintf("Page %d of %d", i+1, len(boardChunks)),
		}
	}

	for _, g := range groups {
		trips := g.Trips
		if len(trips) > 3 {
			trips = trips[:3]
		}
		pages[routeKey(g.Headsign, g.RouteNo)] = Page{
			Title:     fmt.Sprintf("Next 3 trips for route [%s] %s", g.RouteNo, g.Headsign),
			Fields:    tripFields(trips, now),
			Thumbnail: fmt.Sprintf("/api/routes/%s/icon.png", g.RouteNo),
		}
	}

	for _, d := range dests {
		pages[destinationKey(d)] = Page{
			Title:  fmt.Sprintf("Next 3 trips to %s", d),
			Fields: tripFields(tripsTo(groups, d, 3), now),
		}
	}

	return pages
}

// tripFields renders one field per trip: the absolute arrival time as the
// name, the tracking detail as the value.
func tripFields(trips []live.Trip, now time.Time) []PageField {
	fields := make([]PageField, 0, len(trips))
	for _, t := range trips {
		arrival := now.Add(time.Duration(t.AdjustedScheduleTime) * time.Minute)
		var value string
		if t.GPSAdjusted() {
			value = fmt.Sprintf("GPS-adjusted, %.0fs old", t.AdjustmentAge*60)
		} else {
			value = "scheduled, no GPS fix"
		}
		if t.LastTripOfSchedule {
			value += " (last trip of the schedule)"
		}
		fields = append(fields, PageField{
			Name:  fmt.Sprintf("Route %s at %s", t.RouteNo, arrival.Format("15:04")),
			Value: value,
		})
	}
	return fields
}
