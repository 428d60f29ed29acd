package live

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Raw envelope shapes. Fields that arrive in more than one JSON shape are
// held as RawMessage and collapsed by the unwrap helpers; the ambiguity never
// leaves this file.

type rawEnvelope struct {
	Result rawResult `json:"GetRouteSummaryForStopResult"`
}

type rawResult struct {
	StopNo          flexString `json:"StopNo"`
	StopDescription string     `json:"StopDescription"`
	Error           string     `json:"Error"`
	Routes          rawRoutes  `json:"Routes"`
}

type rawRoutes struct {
	Route json.RawMessage `json:"Route"`
}

type rawRoute struct {
	RouteNo      flexString      `json:"RouteNo"`
	RouteHeading string          `json:"RouteHeading"`
	Trips        json.RawMessage `json:"Trips"`
}

type rawTrip struct {
	TripDestination      string     `json:"TripDestination"`
	AdjustedScheduleTime flexString `json:"AdjustedScheduleTime"`
	AdjustmentAge        flexString `json:"AdjustmentAge"`
	LastTripOfSchedule   flexBool   `json:"LastTripOfSchedule"`
}

// ParseResponse turns an upstream body into the normalized shape. The body is
// first parsed as JSON directly; if that fails, the documented recovery for
// XML-preluded responses is applied (last line, split on '>', final segment)
// before giving up with BadResponseError.
func ParseResponse(body []byte) (*BusStopResponse, error) {
	env, err := decodeEnvelope(body)
	if err != nil {
		env, err = decodeEnvelope(stripXMLPrelude(body))
		if err != nil {
			return nil, &BadResponseError{Raw: string(body)}
		}
	}

	if env.Result.StopDescription == "" {
		return nil, ErrNoSuchStop
	}

	routes, err := unwrapRoutes(env.Result.Routes.Route)
	if err != nil {
		return nil, &BadResponseError{Raw: string(body)}
	}
	if len(routes) == 0 {
		return nil, ErrNoRoutesAtStop
	}

	resp := &BusStopResponse{
		StopNo:          string(env.Result.StopNo),
		StopDescription: env.Result.StopDescription,
		Routes:          make([]Route, 0, len(routes)),
	}
	for _, rr := range routes {
		trips, err := unwrapTrips(rr.Trips)
		if err != nil {
			return nil, &BadResponseError{Raw: string(body)}
		}

		route := Route{
			RouteNo:      string(rr.RouteNo),
			RouteHeading: rr.RouteHeading,
			Trips:        make([]Trip, 0, len(trips)),
		}
		for _, rt := range trips {
			route.Trips = append(route.Trips, Trip{
				// The upstream omits RouteNo on trips; copy it down
				RouteNo:              route.RouteNo,
				TripDestination:      rt.TripDestination,
				AdjustedScheduleTime: rt.AdjustedScheduleTime.Int(),
				AdjustmentAge:        rt.AdjustmentAge.Float(),
				LastTripOfSchedule:   bool(rt.LastTripOfSchedule),
			})
		}
		resp.Routes = append(resp.Routes, route)
	}

	return resp, nil
}

func decodeEnvelope(body []byte) (*rawEnvelope, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("empty body")
	}
	var env rawEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// stripXMLPrelude extracts the JSON document the upstream sometimes buries
// after an XML prelude: take the last line, split on '>', keep the final
// segment.
func stripXMLPrelude(body []byte) []byte {
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	last := lines[len(lines)-1]
	parts := strings.Split(last, ">")
	return []byte(parts[len(parts)-1])
}

// unwrapRoutes collapses the Routes.Route field to a list: an array stays
// itself, a single route object becomes a singleton, null or empty string
// means no routes.
func unwrapRoutes(raw json.RawMessage) ([]rawRoute, error) {
	raw = bytes.TrimSpace(raw)
	if emptyValue(raw) {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var list []rawRoute
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	case '{':
		var single rawRoute
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		return []rawRoute{single}, nil
	default:
		return nil, fmt.Errorf("unexpected Routes.Route shape: %s", raw)
	}
}

// unwrapTrips collapses the Trips field to a list. Legal shapes are a list,
// a single trip object, or a {"Trip": ...} wrapper around either; wrappers
// are unwrapped recursively. Idempotent: unwrapping an already-plain list is
// a no-op.
func unwrapTrips(raw json.RawMessage) ([]rawTrip, error) {
	raw = bytes.TrimSpace(raw)
	if emptyValue(raw) {
		return nil, nil
	}
	switch raw[0] {
	case '[':
		var list []rawTrip
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, err
		}
		return list, nil
	case '{':
		var wrapper struct {
			Trip json.RawMessage `json:"Trip"`
		}
		if err := json.Unmarshal(raw, &wrapper); err == nil && len(bytes.TrimSpace(wrapper.Trip)) > 0 {
			return unwrapTrips(wrapper.Trip)
		}
		var single rawTrip
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, err
		}
		return []rawTrip{single}, nil
	default:
		return nil, fmt.Errorf("unexpected Trips shape: %s", raw)
	}
}

func emptyValue(raw []byte) bool {
	s := string(bytes.TrimSpace(raw))
	return s == "" || s == "null" || s == `""` || s == "[]" || s == "{}"
}
