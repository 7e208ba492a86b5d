package track

import (
	"math"
	"time"
)

// Playback interval bounds. Values outside are clamped.
const (
	DefaultInterval = time.Second
	MinInterval     = 50 * time.Millisecond
	MaxInterval     = time.Minute
)

// State is the run state of a playback.
type State int

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

// Playback replays a route by advancing an index one record per tick.
// It holds no timers; a Player owns the schedule and calls Tick.
// The current position is always route[index] when the route is non-empty.
type Playback struct {
	route    Route
	index    int
	state    State
	interval time.Duration
}

// NewPlayback creates a stopped playback with no route.
func NewPlayback(interval time.Duration) *Playback {
	return &Playback{interval: ClampInterval(interval)}
}

// ClampInterval bounds d to [MinInterval, MaxInterval].
func ClampInterval(d time.Duration) time.Duration {
	if d < MinInterval {
		return MinInterval
	}
	if d > MaxInterval {
		return MaxInterval
	}
	return d
}

// Load replaces the route and rewinds to its first record, stopped.
func (p *Playback) Load(route Route) {
	p.route = route
	p.index = 0
	p.state = Stopped
}

// ToggleRun starts a stopped playback that has records left, or stops a running one.
func (p *Playback) ToggleRun() {
	if p.state == Running {
		p.state = Stopped
		return
	}
	if p.index < len(p.route) {
		p.state = Running
	}
}

// Tick advances one record. Reaching the last record stops playback.
// It reports whether anything changed; ticks while stopped are no-ops.
func (p *Playback) Tick() bool {
	if p.state != Running {
		return false
	}
	if p.index < len(p.route)-1 {
		p.index++
	}
	if p.index >= len(p.route)-1 {
		p.state = Stopped
	}
	return true
}

// Seek jumps to floor(fraction*len) and resumes playback.
// The fraction is clamped to [0, 1]; an empty route is left untouched.
func (p *Playback) Seek(fraction float64) {
	if len(p.route) == 0 {
		return
	}
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	index := int(math.Floor(fraction * float64(len(p.route))))
	if index > len(p.route)-1 {
		index = len(p.route) - 1
	}
	p.index = index
	p.state = Running
}

// Retry rewinds to the first record, stopped.
func (p *Playback) Retry() {
	p.index = 0
	p.state = Stopped
}

// SetInterval changes the tick interval. Callers scheduling ticks apply it on the next schedule.
func (p *Playback) SetInterval(d time.Duration) {
	p.interval = ClampInterval(d)
}

func (p *Playback) Route() Route            { return p.route }
func (p *Playback) Index() int              { return p.index }
func (p *Playback) State() State            { return p.state }
func (p *Playback) Running() bool           { return p.state == Running }
func (p *Playback) Interval() time.Duration { return p.interval }

// Current returns route[index], or false when no route is loaded.
func (p *Playback) Current() (Position, bool) {
	if len(p.route) == 0 {
		return Position{}, false
	}
	return p.route[p.index], true
}

// Frame snapshots the playback.
func (p *Playback) Frame() Frame {
	f := Frame{
		Index:      p.index,
		Total:      len(p.route),
		Running:    p.state == Running,
		IntervalMS: p.interval.Milliseconds(),
	}
	current, ok := p.Current()
	if !ok {
		return f
	}
	f.Current = &current
	f.Progress = math.Min((float64(p.index)+0.1)/float64(len(p.route))*100, 100)
	if p.index < len(p.route)-1 {
		next := p.route[p.index+1]
		heading := Bearing(current.Latitude, current.Longitude, next.Latitude, next.Longitude)
		f.Heading = &heading
	}
	return f
}
