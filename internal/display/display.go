package display

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/transit-display/octranspo/internal/live"
)

// ErrPageKeyVanished means the page a control pointed at no longer exists
// after a rebuild. The display resets to the first board page; the caller
// should surface a diagnostic.
var ErrPageKeyVanished = errors.New("page no longer exists")

// SortMode selects how the select menu groups the stop's trips
type SortMode int

const (
	ByRoute SortMode = iota
	ByDestination
)

func (m SortMode) String() string {
	if m == ByDestination {
		return "destination"
	}
	return "route"
}

// StopInfo is the resolved stop the display is showing
type StopInfo struct {
	Code string
	Name string
}

// TripFetcher re-fetches live trips on refresh and resume
type TripFetcher interface {
	FetchTrips(ctx context.Context, stopCode string) (*live.BusStopResponse, error)
}

// Options bound the display's pagination
type Options struct {
	// ChunkSize is the number of select options offered per chunk
	ChunkSize int
	// BoardPageSize is the number of route groups per departure-board page
	BoardPageSize int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 25
	}
	if o.BoardPageSize <= 0 {
		o.BoardPageSize = 20
	}
	return o
}

// StopDisplay is the per-interaction state: the assembled pages for one stop,
// the active sort mode, the shown page and the select-menu paging group.
// Methods are not safe for concurrent use on their own; a caller handling
// interactions holds the display's lock across the action and the render, so
// actions on one display run serially in arrival order.
type StopDisplay struct {
	mu sync.Mutex

	ID   string
	Stop StopInfo

	SortMode       SortMode
	CurrentPageKey string
	GroupIndex     int
	DeparturePage  int
	LastActivity   time.Time

	groups       []RouteGroup
	groupChunks  [][]RouteGroup
	destinations []string
	destChunks   [][]string
	pages        map[string]Page
	opts         Options
}

// New builds a display for a stop from a normalized live response. The first
// page shown is the departure board.
func New(stop StopInfo, resp *live.BusStopResponse, now time.Time, opts Options) *StopDisplay {
	d := &StopDisplay{
		ID:   uuid.NewString(),
		Stop: stop,
		opts: opts.withDefaults(),
	}
	d.rebuild(resp, now)
	d.SortMode = ByRoute
	d.CurrentPageKey = boardKey(0)
	d.GroupIndex = 0
	d.DeparturePage = 0
	d.LastActivity = now
	return d
}

func (d *StopDisplay) rebuild(resp *live.BusStopResponse, now time.Time) {
	d.groups = buildGroups(resp)
	d.groupChunks = chunk(d.groups, d.opts.ChunkSize)
	d.destinations = destinations(d.groups)
	d.destChunks = chunk(d.destinations, d.opts.ChunkSize)
	d.pages = buildPages(d.Stop, d.groups, d.destinations, now, d.opts.BoardPageSize)
}

// Lock takes the display's interaction lock
func (d *StopDisplay) Lock() { d.mu.Lock() }

// Unlock releases the display's interaction lock
func (d *StopDisplay) Unlock() { d.mu.Unlock() }

// CurrentPage returns the page the display is showing
func (d *StopDisplay) CurrentPage() Page {
	return d.pages[d.CurrentPageKey]
}

// Page looks up a pre-rendered page by key
func (d *StopDisplay) Page(key string) (Page, bool) {
	p, ok := d.pages[key]
	return p, ok
}

// BoardPages returns how many departure-board pages exist
func (d *StopDisplay) BoardPages() int {
	n := 0
	for key := range d.pages {
		if strings.HasPrefix(key, "r::") {
			n++
		}
	}
	return n
}

// Options offered by the select menu for the current sort mode and chunk
func (d *StopDisplay) SelectOptions() []SelectOption {
	if d.SortMode == ByDestination {
		if d.GroupIndex >= len(d.destChunks) {
			return nil
		}
		opts := make([]SelectOption, 0, len(d.destChunks[d.GroupIndex]))
		for _, dest := range d.destChunks[d.GroupIndex] {
			opts = append(opts, SelectOption{Label: dest, Value: destinationKey(dest)})
		}
		return opts
	}
	if d.GroupIndex >= len(d.groupChunks) {
		return nil
	}
	opts := make([]SelectOption, 0, len(d.groupChunks[d.GroupIndex]))
	for _, g := range d.groupChunks[d.GroupIndex] {
		opts = append(opts, SelectOption{
			Label: fmt.Sprintf("[%s] %s", g.RouteNo, g.Headsign),
			Value: routeKey(g.Headsign, g.RouteNo),
		})
	}
	return opts
}

// SelectOption is one entry in the page-picker control
type SelectOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Prev steps back one select chunk and, when the departure board is showing,
// one board page.
func (d *StopDisplay) Prev(now time.Time) {
	d.LastActivity = now
	if d.GroupIndex > 0 {
		d.GroupIndex--
	}
	if strings.HasPrefix(d.CurrentPageKey, "r::") && d.DeparturePage > 0 {
		d.DeparturePage--
		d.CurrentPageKey = boardKey(d.DeparturePage)
	}
}

// Next steps forward one select chunk and, when the departure board is
// showing, one board page.
func (d *StopDisplay) Next(now time.Time) {
	d.LastActivity = now
	chunks := len(d.groupChunks)
	if d.SortMode == ByDestination {
		chunks = len(d.destChunks)
	}
	if d.GroupIndex < chunks-1 {
		d.GroupIndex++
	}
	if strings.HasPrefix(d.CurrentPageKey, "r::") && d.DeparturePage < d.BoardPages()-1 {
		d.DeparturePage++
		d.CurrentPageKey = boardKey(d.DeparturePage)
	}
}

// Refresh re-fetches live trips and rebuilds every page. If the page the user
// was looking at no longer exists the display resets to the first board page
// and ErrPageKeyVanished is returned for the caller to surface.
func (d *StopDisplay) Refresh(ctx context.Context, trips TripFetcher, now time.Time) error {
	d.LastActivity = now
	resp, err := trips.FetchTrips(ctx, d.Stop.Code)
	if err != nil {
		return fmt.Errorf("failed to refresh trips for stop %s: %w", d.Stop.Code, err)
	}

	d.rebuild(resp, now)
	if _, ok := d.pages[d.CurrentPageKey]; !ok {
		d.CurrentPageKey = boardKey(0)
		d.DeparturePage = 0
		d.GroupIndex = 0
		return ErrPageKeyVanished
	}
	return nil
}

// Select shows the page picked from the select menu
func (d *StopDisplay) Select(key string, now time.Time) error {
	d.LastActivity = now
	if _, ok := d.pages[key]; !ok {
		return ErrPageKeyVanished
	}
	d.CurrentPageKey = key
	d.DeparturePage = 0
	if rest, ok := strings.CutPrefix(key, "r::"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			d.DeparturePage = n
		}
	}
	return nil
}

// Swap flips the sort mode and shows the first page of the new mode: the
// first destination when switching to by-destination, the departure board
// when switching back.
func (d *StopDisplay) Swap(now time.Time) {
	d.LastActivity = now
	d.GroupIndex = 0
	if d.SortMode == ByRoute {
		d.SortMode = ByDestination
		if len(d.destinations) > 0 {
			d.CurrentPageKey = destinationKey(d.destinations[0])
			return
		}
	} else {
		d.SortMode = ByRoute
	}
	d.CurrentPageKey = boardKey(0)
	d.DeparturePage = 0
}

// Token returns the resume token for the display's current state
func (d *StopDisplay) Token() Token {
	return Token{
		StopCode:     d.Stop.Code,
		PageKey:      d.CurrentPageKey,
		LastActivity: d.LastActivity,
	}
}
