package track

import (
	"fmt"
	"io"
	"math"
	"time"
)

// calculateChecksum calculates the NMEA checksum for a sentence
func calculateChecksum(sentence string) string {
	var checksum byte
	for i := 1; i < len(sentence); i++ { // Skip the '$' character
		checksum ^= sentence[i]
	}
	return fmt.Sprintf("%02X", checksum)
}

// formatNMEA formats a complete NMEA sentence with checksum
func formatNMEA(sentence string) string {
	checksum := calculateChecksum(sentence)
	return fmt.Sprintf("%s*%s\r\n", sentence, checksum)
}

// nmeaCoordinates converts decimal degrees to the DDMM.MMMM,H and DDDMM.MMMM,H fields
func nmeaCoordinates(lat, lon float64) (string, string) {
	latDeg := int(math.Abs(lat))
	latMin := (math.Abs(lat) - float64(latDeg)) * 60
	latHem := "N"
	if lat < 0 {
		latHem = "S"
	}

	lonDeg := int(math.Abs(lon))
	lonMin := (math.Abs(lon) - float64(lonDeg)) * 60
	lonHem := "E"
	if lon < 0 {
		lonHem = "W"
	}

	return fmt.Sprintf("%02d%07.4f,%s", latDeg, latMin, latHem),
		fmt.Sprintf("%03d%07.4f,%s", lonDeg, lonMin, lonHem)
}

// fix is the subset of a frame the sentences are generated from.
type fix struct {
	lat, lon float64
	knots    float64
	course   float64
	at       time.Time
}

func fixFromFrame(f Frame) (fix, bool) {
	if f.Current == nil {
		return fix{}, false
	}
	p := f.Current
	fx := fix{lat: p.Latitude, lon: p.Longitude, at: p.Date.UTC()}
	if p.SpeedKmh != nil {
		fx.knots = KmhToKnots(*p.SpeedKmh)
	}
	if f.Heading != nil {
		fx.course = *f.Heading
	}
	return fx, true
}

// generateGGA generates a GGA (Global Positioning System Fix Data) sentence
func generateGGA(fx fix) string {
	lat, lon := nmeaCoordinates(fx.lat, fx.lon)
	sentence := fmt.Sprintf("$GPGGA,%s,%s,%s,1,08,1.2,0.0,M,0.0,M,,",
		fx.at.Format("150405"), lat, lon)
	return formatNMEA(sentence)
}

// generateRMC generates an RMC (Recommended Minimum) sentence
func generateRMC(fx fix) string {
	lat, lon := nmeaCoordinates(fx.lat, fx.lon)
	sentence := fmt.Sprintf("$GPRMC,%s,A,%s,%s,%.1f,%.1f,%s,,,A",
		fx.at.Format("150405"), lat, lon, fx.knots, fx.course, fx.at.Format("020106"))
	return formatNMEA(sentence)
}

// generateVTG generates a VTG (Track Made Good and Ground Speed) sentence
func generateVTG(fx fix) string {
	sentence := fmt.Sprintf("$GPVTG,%.1f,T,,M,%.1f,N,%.1f,K,A",
		fx.course, fx.knots, fx.knots*1.852)
	return formatNMEA(sentence)
}

// generateGLL generates a GLL (Geographic Position - Latitude/Longitude) sentence
func generateGLL(fx fix) string {
	lat, lon := nmeaCoordinates(fx.lat, fx.lon)
	timeStr := fmt.Sprintf("%02d%02d%02d.%02d",
		fx.at.Hour(), fx.at.Minute(), fx.at.Second(), fx.at.Nanosecond()/10000000)
	sentence := fmt.Sprintf("$GPGLL,%s,%s,%s,A,A", lat, lon, timeStr)
	return formatNMEA(sentence)
}

// Sentences renders the current position of a frame as GGA, RMC, VTG and GLL sentences,
// stamped with the time the position was recorded. A frame without a position renders nothing.
func Sentences(f Frame) []string {
	fx, ok := fixFromFrame(f)
	if !ok {
		return nil
	}
	return []string{generateGGA(fx), generateRMC(fx), generateVTG(fx), generateGLL(fx)}
}

// NMEAWriter writes playback frames to w as NMEA sentences.
type NMEAWriter struct {
	w io.Writer
}

// NewNMEAWriter creates an NMEAWriter.
func NewNMEAWriter(w io.Writer) *NMEAWriter {
	return &NMEAWriter{w: w}
}

// WriteFrame writes the sentences of f.
func (n *NMEAWriter) WriteFrame(f Frame) error {
	for _, sentence := range Sentences(f) {
		if _, err := io.WriteString(n.w, sentence); err != nil {
			return fmt.Errorf("failed to write NMEA sentence: %w", err)
		}
	}
	return nil
}
