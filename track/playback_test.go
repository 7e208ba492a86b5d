package track

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// createTestRoute returns n positions heading north from Abids, one minute apart.
func createTestRoute(n int) Route {
	start := time.Date(2024, 10, 30, 6, 0, 0, 0, time.UTC)
	route := make(Route, 0, n)
	for i := 0; i < n; i++ {
		route = append(route, Position{
			Latitude:  17.385044 + float64(i)*0.001,
			Longitude: 78.486671,
			Date:      start.Add(time.Duration(i) * time.Minute),
			Location:  "Point " + string(rune('A'+i)),
		})
	}
	return route
}

func TestPlaybackLoad(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	route := createTestRoute(3)

	p.Load(route)

	assert.Equal(t, 0, p.Index())
	assert.Equal(t, Stopped, p.State())
	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, route[0], current)
}

func TestPlaybackLoadEmptyRoute(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.Load(Route{})

	_, ok := p.Current()
	assert.False(t, ok, "empty route has no current position")

	p.ToggleRun()
	assert.Equal(t, Stopped, p.State(), "toggle on an empty route must stay stopped")

	p.Seek(0.5)
	assert.Equal(t, Stopped, p.State(), "seek on an empty route is a no-op")
	assert.Equal(t, 0, p.Index())

	f := p.Frame()
	assert.Nil(t, f.Current)
	assert.Zero(t, f.Progress)
	assert.Zero(t, f.Total)
}

func TestPlaybackLoadStopsRunningPlayback(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.Load(createTestRoute(5))
	p.ToggleRun()
	p.Tick()
	p.Tick()

	p.Load(createTestRoute(2))

	assert.Equal(t, 0, p.Index())
	assert.Equal(t, Stopped, p.State())
}

func TestPlaybackThreeRecordScenario(t *testing.T) {
	route := createTestRoute(3)
	p := NewPlayback(DefaultInterval)
	p.Load(route)
	p.ToggleRun()
	require.Equal(t, Running, p.State())

	assert.True(t, p.Tick())
	current, _ := p.Current()
	assert.Equal(t, route[1], current)
	assert.Equal(t, Running, p.State())

	assert.True(t, p.Tick())
	current, _ = p.Current()
	assert.Equal(t, route[2], current)
	assert.Equal(t, Stopped, p.State(), "reaching the last record stops playback")

	assert.False(t, p.Tick(), "tick while stopped is a no-op")
	assert.Equal(t, 2, p.Index())
}

func TestPlaybackCurrentMatchesIndex(t *testing.T) {
	route := createTestRoute(10)
	p := NewPlayback(DefaultInterval)
	p.Load(route)

	steps := []func(){
		p.ToggleRun,
		func() { p.Tick() },
		func() { p.Seek(0.75) },
		func() { p.Tick() },
		p.ToggleRun,
		func() { p.Tick() },
		p.Retry,
		func() { p.Seek(1) },
		func() { p.Tick() },
	}
	for i, step := range steps {
		step()
		current, ok := p.Current()
		require.True(t, ok)
		assert.Equal(t, route[p.Index()], current, "step %d", i)
		assert.GreaterOrEqual(t, p.Index(), 0)
		assert.Less(t, p.Index(), len(route))
	}
}

func TestPlaybackToggle(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.Load(createTestRoute(3))

	p.ToggleRun()
	assert.Equal(t, Running, p.State())
	p.ToggleRun()
	assert.Equal(t, Stopped, p.State())
}

func TestPlaybackToggleAtLastRecord(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.Load(createTestRoute(2))
	p.ToggleRun()
	p.Tick()
	require.Equal(t, Stopped, p.State())

	p.ToggleRun()
	assert.Equal(t, Running, p.State())
	assert.True(t, p.Tick())
	assert.Equal(t, 1, p.Index(), "tick never advances past the last record")
	assert.Equal(t, Stopped, p.State())
}

func TestPlaybackSingleRecordRoute(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.Load(createTestRoute(1))
	p.ToggleRun()
	p.Tick()

	assert.Equal(t, 0, p.Index())
	assert.Equal(t, Stopped, p.State())
}

func TestPlaybackSeek(t *testing.T) {
	tests := []struct {
		name     string
		length   int
		fraction float64
		expected int
	}{
		{name: "start", length: 10, fraction: 0, expected: 0},
		{name: "middle", length: 10, fraction: 0.5, expected: 5},
		{name: "floor", length: 10, fraction: 0.59, expected: 5},
		{name: "end clamps to last index", length: 10, fraction: 1, expected: 9},
		{name: "above one", length: 10, fraction: 3.5, expected: 9},
		{name: "negative", length: 10, fraction: -0.2, expected: 0},
		{name: "NaN", length: 10, fraction: math.NaN(), expected: 0},
		{name: "three records", length: 3, fraction: 0.7, expected: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPlayback(DefaultInterval)
			p.Load(createTestRoute(tt.length))

			p.Seek(tt.fraction)

			assert.Equal(t, tt.expected, p.Index())
			assert.Equal(t, Running, p.State(), "seek resumes playback")
		})
	}
}

func TestPlaybackRetry(t *testing.T) {
	route := createTestRoute(4)
	p := NewPlayback(DefaultInterval)
	p.Load(route)
	p.Seek(0.9)

	p.Retry()

	assert.Equal(t, 0, p.Index())
	assert.Equal(t, Stopped, p.State())
	current, _ := p.Current()
	assert.Equal(t, route[0], current)
}

func TestClampInterval(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected time.Duration
	}{
		{input: 0, expected: MinInterval},
		{input: -time.Second, expected: MinInterval},
		{input: 10 * time.Millisecond, expected: MinInterval},
		{input: 500 * time.Millisecond, expected: 500 * time.Millisecond},
		{input: 3 * time.Second, expected: 3 * time.Second},
		{input: time.Hour, expected: MaxInterval},
	}

	for _, tt := range tests {
		t.Run(tt.input.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, ClampInterval(tt.input))
		})
	}
}

func TestPlaybackSetInterval(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.SetInterval(2 * time.Second)
	assert.Equal(t, 2*time.Second, p.Interval())

	p.SetInterval(time.Millisecond)
	assert.Equal(t, MinInterval, p.Interval())
}

func TestPlaybackFrame(t *testing.T) {
	route := createTestRoute(4)
	p := NewPlayback(2 * time.Second)
	p.Load(route)
	p.ToggleRun()
	p.Tick()

	f := p.Frame()

	assert.Equal(t, 1, f.Index)
	assert.Equal(t, 4, f.Total)
	assert.True(t, f.Running)
	assert.Equal(t, int64(2000), f.IntervalMS)
	assert.Equal(t, 2*time.Second, f.Interval())
	require.NotNil(t, f.Current)
	assert.Equal(t, route[1], *f.Current)
	assert.InDelta(t, 27.5, f.Progress, 1e-9)
	require.NotNil(t, f.Heading)
	assert.InDelta(t, 0, *f.Heading, 0.01, "route heads due north")
}

func TestPlaybackFrameAtLastRecord(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.Load(createTestRoute(2))
	p.Seek(1)

	f := p.Frame()

	assert.Nil(t, f.Heading, "no heading past the last record")
	assert.InDelta(t, 55, f.Progress, 1e-9)
}

func TestPlaybackFrameProgressCapped(t *testing.T) {
	p := NewPlayback(DefaultInterval)
	p.Load(createTestRoute(1))

	assert.InDelta(t, 10, p.Frame().Progress, 1e-9)
	assert.LessOrEqual(t, p.Frame().Progress, 100.0)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "stopped", Stopped.String())
	assert.Equal(t, "running", Running.String())
}
