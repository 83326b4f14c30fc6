// Package detect turns sampled frames into Detection events. Two producers
// feed the same sink: the Bridge, which drives the decoding engine through
// its memory ABI, and the optional Native adapter, which asks a host
// detector to look at the current surface pixels.
package detect

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Origin names the producer of a detection.
type Origin string

const (
	OriginEngine Origin = "engine"
	OriginNative Origin = "native"
)

// Point is a polygon vertex in surface coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Detection is one decoded symbol. Values are never modified after emission.
type Detection struct {
	Origin     Origin    `json:"origin"`
	Symbol     string    `json:"symbol"`
	Mapped     bool      `json:"mapped"`
	TypeCode   uint32    `json:"type_code,omitempty"`
	Payload    string    `json:"data"`
	Raw        []byte    `json:"-"`
	Polygon    []Point   `json:"polygon"`
	Quality    int32     `json:"quality,omitempty"`
	CacheCount int32     `json:"cache_count,omitempty"`
	EngineTime uint32    `json:"engine_time,omitempty"`
	DetectedAt time.Time `json:"detected_at"`
}

// Matrix reports whether the detection is a two-dimensional symbol as far as
// overlay geometry is concerned.
func (d Detection) Matrix() bool {
	return d.Origin == OriginNative || strings.Contains(strings.ToUpper(d.Symbol), "QR")
}

var symbologies = map[uint32]string{
	8:   "EAN-8",
	9:   "UPC-E",
	10:  "ISBN-10",
	12:  "UPC-A",
	13:  "EAN-13",
	14:  "ISBN-13",
	25:  "Interleaved 2 of 5",
	39:  "Code 39",
	57:  "PDF417",
	64:  "QR Code",
	128: "Code 128",
}

// SymbologyName maps an engine type code to its display name. Codes outside
// the table yield a placeholder label and false.
func SymbologyName(code uint32) (string, bool) {
	if name, ok := symbologies[code]; ok {
		return name, true
	}
	return fmt.Sprintf("unknown(%d)", code), false
}

// NativeSymbol converts a host detector format name ("qr_code") into the
// display form used for native detections ("QR-CODE").
func NativeSymbol(format string) string {
	return strings.ToUpper(strings.ReplaceAll(format, "_", "-"))
}

// DecodePayload returns raw as text. Byte sequences that are not valid UTF-8
// are read as ISO-8859-1, the default character set of QR byte mode.
func DecodePayload(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	s, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}
