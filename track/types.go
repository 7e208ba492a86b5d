package track

import "time"

// DateLayout is the layout of the date keys routes are queried by.
const DateLayout = "2006-01-02"

// Vehicle describes the vehicle a position was recorded for. Every field is optional.
type Vehicle struct {
	Type   *string `json:"type,omitempty"`
	Number *string `json:"number,omitempty"`
	Driver *string `json:"driver,omitempty"`
}

// Position is a single timestamped record of a vehicle route.
// Nil optional fields mean "not applicable", never zero.
type Position struct {
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Date       time.Time `json:"date"`
	Location   string    `json:"location"`
	SpeedKmh   *float64  `json:"speed_kmh,omitempty"`
	Direction  *string   `json:"direction,omitempty"`
	DistanceKm *float64  `json:"distance_km,omitempty"`
	Vehicle    *Vehicle  `json:"vehicle,omitempty"`
}

// DateKey returns the UTC calendar date of the position as YYYY-MM-DD.
func (p Position) DateKey() string {
	return p.Date.UTC().Format(DateLayout)
}

// Route is the ordered list of positions recorded on one calendar day.
type Route []Position

// First returns the start of the route.
func (r Route) First() (Position, bool) {
	if len(r) == 0 {
		return Position{}, false
	}
	return r[0], true
}

// Last returns the end of the route.
func (r Route) Last() (Position, bool) {
	if len(r) == 0 {
		return Position{}, false
	}
	return r[len(r)-1], true
}

// LengthMeters returns the great-circle length of the route path.
func (r Route) LengthMeters() float64 {
	var total float64
	for i := 1; i < len(r); i++ {
		total += Distance(r[i-1].Latitude, r[i-1].Longitude, r[i].Latitude, r[i].Longitude)
	}
	return total
}

// TrackPoint represents a point in a GPX track
type TrackPoint struct {
	Lat  float64   `xml:"lat,attr"`
	Lon  float64   `xml:"lon,attr"`
	Time time.Time `xml:"time"`
	Name string    `xml:"name,omitempty"`
}

// Frame is a snapshot of playback state, emitted after every state change.
type Frame struct {
	Index      int       `json:"index"`
	Total      int       `json:"total"`
	Running    bool      `json:"running"`
	IntervalMS int64     `json:"interval_ms"`
	Current    *Position `json:"current,omitempty"`
	Progress   float64   `json:"progress"`
	Heading    *float64  `json:"heading,omitempty"`
}

// Interval returns the playback interval the frame was taken with.
func (f Frame) Interval() time.Duration {
	return time.Duration(f.IntervalMS) * time.Millisecond
}
