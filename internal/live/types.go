// Package live talks to the OC Transpo next-trips API and normalizes its
// inconsistently shaped responses.
package live

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Errors a caller is expected to classify
var (
	// ErrNoSuchStop means the upstream does not know the stop code
	ErrNoSuchStop = errors.New("no such stop")
	// ErrNoRoutesAtStop means the stop exists but currently has no routes
	ErrNoRoutesAtStop = errors.New("no routes at this stop")
)

// BadResponseError wraps a payload that could not be parsed even after the
// XML-prelude recovery. Raw carries the offending body for diagnostics.
type BadResponseError struct {
	Raw string
}

func (e *BadResponseError) Error() string {
	return fmt.Sprintf("unparseable upstream response (%d bytes)", len(e.Raw))
}

// Trip is one predicted departure. AdjustmentAge of -1 means the prediction
// has no GPS fix and is schedule-only.
type Trip struct {
	RouteNo              string
	TripDestination      string
	AdjustedScheduleTime int
	AdjustmentAge        float64
	LastTripOfSchedule   bool
}

// GPSAdjusted reports whether the prediction is corrected against live
// vehicle telemetry.
func (t Trip) GPSAdjusted() bool {
	return t.AdjustmentAge != -1
}

// Route is one direction of one route at the stop, with its next trips
type Route struct {
	RouteNo      string
	RouteHeading string
	Trips        []Trip
}

// BusStopResponse is the normalized next-trips payload: every route carries a
// plain trip list and every trip carries its parent's RouteNo.
type BusStopResponse struct {
	StopNo          string
	StopDescription string
	Routes          []Route
}

// flexString decodes a JSON value that may arrive as a string or a number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// flexBool decodes a JSON value that may arrive as a bool or a string
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	switch s {
	case "true", `"true"`, `"1"`, "1":
		*f = true
	case "false", `"false"`, `"0"`, "0", "null", `""`:
		*f = false
	default:
		return fmt.Errorf("cannot decode %q as bool", s)
	}
	return nil
}

func (f flexString) Int() int {
	n, err := strconv.Atoi(string(f))
	if err != nil {
		return 0
	}
	return n
}

// Float defaults to -1 (no GPS fix) when the value is absent or unparseable,
// so a malformed AdjustmentAge degrades to the schedule-only rendering.
func (f flexString) Float() float64 {
	n, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return -1
	}
	return n
}
