// Package display holds the per-stop presentation state: assembled pages, the
// active sort mode, pagination cursors and the resume tokens embedded in every
// control.
package display

import (
	"sort"
	"strconv"

	"github.com/transit-display/octranspo/internal/live"
)

// RouteGroup is one direction of one route at the stop with its next trips
type RouteGroup struct {
	Headsign string
	RouteNo  string
	Trips    []live.Trip
}

// buildGroups turns a normalized live response into sorted route groups.
// Non-numeric route numbers sort first, numeric ones by integer value; ties
// break on headsign so the order is stable across refreshes.
func buildGroups(resp *live.BusStopResponse) []RouteGroup {
	groups := make([]RouteGroup, 0, len(resp.Routes))
	for _, r := range resp.Routes {
		trips := make([]live.Trip, len(r.Trips))
		copy(trips, r.Trips)
		sort.SliceStable(trips, func(i, j int) bool {
			return trips[i].AdjustedScheduleTime < trips[j].AdjustedScheduleTime
		})
		groups = append(groups, RouteGroup{
			Headsign: r.RouteHeading,
			RouteNo:  r.RouteNo,
			Trips:    trips,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if c := compareRouteNo(groups[i].RouteNo, groups[j].RouteNo); c != 0 {
			return c < 0
		}
		return groups[i].Headsign < groups[j].Headsign
	})
	return groups
}

// compareRouteNo orders route numbers: non-numeric before numeric, numeric by
// integer value, non-numeric lexically among themselves.
func compareRouteNo(a, b string) int {
	an, aerr := strconv.Atoi(a)
	bn, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aerr == nil:
		return 1
	case berr == nil:
		return -1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// destinations collects the distinct trip destinations across all groups,
// sorted alphabetically.
func destinations(groups []RouteGroup) []string {
	seen := make(map[string]bool)
	var out []string
	for _, g := range groups {
		for _, t := range g.Trips {
			if t.TripDestination == "" || seen[t.TripDestination] {
				continue
			}
			seen[t.TripDestination] = true
			out = append(out, t.TripDestination)
		}
	}
	sort.Strings(out)
	return out
}

// tripsTo returns the soonest trips across all groups bound for the given
// destination, at most n.
func tripsTo(groups []RouteGroup, destination string, n int) []live.Trip {
	var out []live.Trip
	for _, g := range groups {
		for _, t := range g.Trips {
			if t.TripDestination == destination {
				out = append(out, t)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AdjustedScheduleTime < out[j].AdjustedScheduleTime
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// chunk splits a slice into fixed-size batches; the final batch may be short
func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}
	var out [][]T
	for size < len(items) {
		out = append(out, items[:size])
		items = items[size:]
	}
	return append(out, items)
}
