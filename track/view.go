package track

import (
	"fmt"
	"strconv"
	"time"
)

// Map defaults used when there is no position to center on.
var (
	DefaultCenter = [2]float64{17.385044, 78.486671}
	DefaultZoom   = 13
)

// Marker is a map marker with a popup title and lines.
type Marker struct {
	Kind     string     `json:"kind"`
	Position [2]float64 `json:"position"`
	Title    string     `json:"title"`
	Details  []Detail   `json:"details"`
}

// Detail is one labelled line of a marker popup.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// View is everything a map needs to draw a route and the vehicle on it.
type View struct {
	Path     [][2]float64 `json:"path"`
	Start    *Marker      `json:"start,omitempty"`
	End      *Marker      `json:"end,omitempty"`
	Vehicle  *Marker      `json:"vehicle,omitempty"`
	Center   [2]float64   `json:"center"`
	Zoom     int          `json:"zoom"`
	LengthKm float64      `json:"length_km"`
}

// Render builds the view of route with the vehicle at current. The end marker is only
// drawn for routes of more than one record. The view recenters on current when present.
func Render(route Route, current *Position) View {
	v := View{
		Path:     make([][2]float64, 0, len(route)),
		Center:   DefaultCenter,
		Zoom:     DefaultZoom,
		LengthKm: route.LengthMeters() / 1000,
	}
	for _, p := range route {
		v.Path = append(v.Path, latLng(p))
	}
	if first, ok := route.First(); ok {
		v.Start = &Marker{Kind: "start", Position: latLng(first), Title: "Start Point",
			Details: []Detail{{Label: "Location", Value: first.Location}}}
	}
	if last, ok := route.Last(); ok && len(route) > 1 {
		v.End = &Marker{Kind: "end", Position: latLng(last), Title: "End Point",
			Details: []Detail{{Label: "Location", Value: last.Location}}}
	}
	if current != nil {
		v.Vehicle = &Marker{Kind: "vehicle", Position: latLng(*current), Title: "Vehicle Information",
			Details: Popup(*current)}
		v.Center = latLng(*current)
	}
	return v
}

// Popup lists the details of a position. Absent optional fields are left out.
func Popup(p Position) []Detail {
	details := []Detail{
		{Label: "Location", Value: p.Location},
		{Label: "Latitude", Value: formatFloat(p.Latitude)},
		{Label: "Longitude", Value: formatFloat(p.Longitude)},
		{Label: "Timestamp", Value: p.Date.UTC().Format(time.RFC3339)},
	}
	if p.SpeedKmh != nil {
		details = append(details, Detail{Label: "Speed", Value: fmt.Sprintf("%s km/h", formatFloat(*p.SpeedKmh))})
	}
	if p.Direction != nil {
		details = append(details, Detail{Label: "Direction", Value: *p.Direction})
	}
	if p.DistanceKm != nil {
		details = append(details, Detail{Label: "Distance", Value: fmt.Sprintf("%s km", formatFloat(*p.DistanceKm))})
	}
	if vh := p.Vehicle; vh != nil {
		if vh.Type != nil {
			details = append(details, Detail{Label: "Vehicle Type", Value: *vh.Type})
		}
		if vh.Number != nil {
			details = append(details, Detail{Label: "Vehicle Number", Value: *vh.Number})
		}
		if vh.Driver != nil {
			details = append(details, Detail{Label: "Vehicle Driver", Value: *vh.Driver})
		}
	}
	return details
}

func latLng(p Position) [2]float64 {
	return [2]float64{p.Latitude, p.Longitude}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
