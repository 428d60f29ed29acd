package display

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// tokenMarker leads every control token so foreign strings are rejected early
const tokenMarker = "★"

// Token is the self-describing identifier embedded in every control. It is
// the authoritative resume point: in-memory display state is a cache of what
// the token plus one live-trips call can reconstruct.
type Token struct {
	StopCode     string
	PageKey      string
	LastActivity time.Time
}

// String encodes the token as ★;<stop_code>;<page_key>;<unix_seconds>
func (t Token) String() string {
	return strings.Join([]string{
		tokenMarker,
		t.StopCode,
		t.PageKey,
		strconv.FormatInt(t.LastActivity.Unix(), 10),
	}, ";")
}

// ParseToken decodes a control token. Page keys may contain colons but never
// semicolons, so a plain 4-way split is unambiguous.
func ParseToken(s string) (Token, error) {
	parts := strings.SplitN(s, ";", 4)
	if len(parts) != 4 || parts[0] != tokenMarker {
		return Token{}, fmt.Errorf("malformed control token %q", s)
	}
	secs, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return Token{}, fmt.Errorf("malformed control token %q: %w", s, err)
	}
	return Token{
		StopCode:     parts[1],
		PageKey:      parts[2],
		LastActivity: time.Unix(secs, 0),
	}, nil
}

// StopResolver resolves a stop code to its stored name
type StopResolver interface {
	ResolveStop(ctx context.Context, code string) (StopInfo, error)
}

// ErrStopUnknown is returned by a StopResolver when the code has no stored
// record. Resume tolerates it: a stop the upstream knows can still be shown
// under its live description even when the last GTFS snapshot missed it.
var ErrStopUnknown = errors.New("stop not in snapshot")

// Resume reconstructs a display from a token after the owning view has timed
// out or the process restarted. Live trips are re-fetched and the display is
// positioned at the token's page key; if that page no longer resolves the
// display falls back to the first board page and a user-visible diagnostic is
// returned alongside it.
func Resume(ctx context.Context, tok Token, stops StopResolver, trips TripFetcher, now time.Time, opts Options) (*StopDisplay, string, error) {
	resp, err := trips.FetchTrips(ctx, tok.StopCode)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch trips for stop %s: %w", tok.StopCode, err)
	}

	stop, err := stops.ResolveStop(ctx, tok.StopCode)
	if err != nil {
		if !errors.Is(err, ErrStopUnknown) {
			return nil, "", fmt.Errorf("failed to resolve stop %s: %w", tok.StopCode, err)
		}
		// Known upstream but missing from the last GTFS snapshot
		stop = StopInfo{Code: tok.StopCode, Name: resp.StopDescription}
	}

	d := New(stop, resp, now, opts)
	if err := d.Select(tok.PageKey, now); err != nil {
		if !errors.Is(err, ErrPageKeyVanished) {
			return nil, "", err
		}
		diag := fmt.Sprintf("The page %q is no longer available for stop %s; showing the departure board instead.", tok.PageKey, tok.StopCode)
		return d, diag, nil
	}
	return d, "", nil
}
