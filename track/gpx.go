package track

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
)

// GPX represents the root GPX document structure
type GPX struct {
	XMLName xml.Name   `xml:"gpx"`
	Version string     `xml:"version,attr"`
	Creator string     `xml:"creator,attr"`
	Xmlns   string     `xml:"xmlns,attr"`
	Track   Track      `xml:"trk"`
	Routes  []GPXRoute `xml:"rte"`
}

// Track represents a GPX track
type Track struct {
	Name         string       `xml:"name"`
	TrackSegment TrackSegment `xml:"trkseg"`
}

// TrackSegment represents a segment of a GPX track
type TrackSegment struct {
	TrackPoints []TrackPoint `xml:"trkpt"`
}

// GPXRoute represents a GPX route
type GPXRoute struct {
	Name        string       `xml:"name"`
	RoutePoints []TrackPoint `xml:"rtept"`
}

// NewGPX builds a GPX 1.1 document with one track holding every position of route.
func NewGPX(name string, route Route) *GPX {
	points := make([]TrackPoint, 0, len(route))
	for _, p := range route {
		points = append(points, TrackPoint{
			Lat:  p.Latitude,
			Lon:  p.Longitude,
			Time: p.Date.UTC(),
			Name: p.Location,
		})
	}
	return &GPX{
		Version: "1.1",
		Creator: "go-vehicle-tracker",
		Xmlns:   "http://www.topografix.com/GPX/1/1",
		Track: Track{
			Name:         name,
			TrackSegment: TrackSegment{TrackPoints: points},
		},
	}
}

// WriteGPX encodes route as an indented GPX document, XML header included.
func WriteGPX(w io.Writer, name string, route Route) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return fmt.Errorf("failed to write XML header: %w", err)
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(NewGPX(name, route)); err != nil {
		return fmt.Errorf("failed to encode GPX data: %w", err)
	}
	return nil
}

// ReadGPX parses a GPX document and returns its track points, falling back to the first route.
func ReadGPX(r io.Reader) ([]TrackPoint, error) {
	var gpx GPX
	if err := xml.NewDecoder(r).Decode(&gpx); err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	if len(gpx.Track.TrackSegment.TrackPoints) > 0 {
		return gpx.Track.TrackSegment.TrackPoints, nil
	}
	if len(gpx.Routes) > 0 {
		return gpx.Routes[0].RoutePoints, nil
	}
	return []TrackPoint{}, nil
}

// ReadGPXFile reads a GPX file and converts its points into a route.
func ReadGPXFile(filename string) (Route, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPX file %s: %w", filename, err)
	}
	defer file.Close()

	points, err := ReadGPX(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return RouteFromTrackPoints(points), nil
}

// RouteFromTrackPoints converts GPX points into positions. GPX carries no speed or vehicle
// details, so those stay absent.
func RouteFromTrackPoints(points []TrackPoint) Route {
	route := make(Route, 0, len(points))
	for _, tp := range points {
		route = append(route, Position{
			Latitude:  tp.Lat,
			Longitude: tp.Lon,
			Date:      tp.Time,
			Location:  tp.Name,
		})
	}
	return route
}
