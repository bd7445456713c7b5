// Package geo resolves US city/state pairs to coordinates from a static table.
package geo

import (
	"strings"
)

type point struct{ lat, lon float64 }

type city struct {
	name   string
	abbr   string
	state  string
	coords point
}

var cities = []city{
	{"atlanta", "ga", "georgia", point{33.7490, -84.3880}},
	{"austin", "tx", "texas", point{30.2672, -97.7431}},
	{"baltimore", "md", "maryland", point{39.2904, -76.6122}},
	{"boston", "ma", "massachusetts", point{42.3601, -71.0589}},
	{"charlotte", "nc", "north carolina", point{35.2271, -80.8431}},
	{"chicago", "il", "illinois", point{41.8781, -87.6298}},
	{"cincinnati", "oh", "ohio", point{39.1031, -84.5120}},
	{"cleveland", "oh", "ohio", point{41.4993, -81.6944}},
	{"columbus", "oh", "ohio", point{39.9612, -82.9988}},
	{"dallas", "tx", "texas", point{32.7767, -96.7970}},
	{"denver", "co", "colorado", point{39.7392, -104.9903}},
	{"detroit", "mi", "michigan", point{42.3314, -83.0458}},
	{"houston", "tx", "texas", point{29.7604, -95.3698}},
	{"indianapolis", "in", "indiana", point{39.7684, -86.1581}},
	{"jacksonville", "fl", "florida", point{30.3322, -81.6557}},
	{"las vegas", "nv", "nevada", point{36.1699, -115.1398}},
	{"louisville", "ky", "kentucky", point{38.2527, -85.7585}},
	{"memphis", "tn", "tennessee", point{35.1495, -90.0490}},
	{"miami", "fl", "florida", point{25.7617, -80.1918}},
	{"milwaukee", "wi", "wisconsin", point{43.0389, -87.9065}},
	{"nashville", "tn", "tennessee", point{36.1627, -86.7816}},
	{"new orleans", "la", "louisiana", point{29.9511, -90.0715}},
	{"new york", "ny", "new york", point{40.7128, -74.0060}},
	{"oklahoma city", "ok", "oklahoma", point{35.4676, -97.5164}},
	{"philadelphia", "pa", "pennsylvania", point{39.9526, -75.1652}},
	{"phoenix", "az", "arizona", point{33.4484, -112.0740}},
	{"pittsburgh", "pa", "pennsylvania", point{40.4406, -79.9959}},
	{"portland", "or", "oregon", point{45.5152, -122.6784}},
	{"raleigh", "nc", "north carolina", point{35.7796, -78.6382}},
	{"san antonio", "tx", "texas", point{29.4241, -98.4936}},
	{"san diego", "ca", "california", point{32.7157, -117.1611}},
	{"san jose", "ca", "california", point{37.3382, -121.8863}},
	{"seattle", "wa", "washington", point{47.6062, -122.3321}},
	{"st louis", "mo", "missouri", point{38.6270, -90.1994}},
	{"washington", "dc", "d.c.", point{38.9072, -77.0369}},
}

// aliases maps alternative city spellings to the table name.
var aliases = map[string]string{
	"saint louis":   "st louis",
	"st. louis":     "st louis",
	"washington dc": "washington",
	"nyc":           "new york",
	"new york city": "new york",
}

// Table is an in-memory geocoder over a fixed list of US cities.
type Table struct {
	index map[[2]string]point
}

// NewTable builds the lookup index. Every city is reachable by its state
// abbreviation and by the full state name.
func NewTable() *Table {
	t := &Table{index: make(map[[2]string]point, 2*len(cities))}
	for _, c := range cities {
		t.index[[2]string{c.name, c.abbr}] = c.coords
		t.index[[2]string{c.name, c.state}] = c.coords
	}
	return t
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Geocode returns the coordinates of city, state. Matching ignores case and
// surrounding whitespace.
func (t *Table) Geocode(cityName, state string) (lat, lon float64, ok bool) {
	name := normalize(cityName)
	if alias, found := aliases[name]; found {
		name = alias
	}
	p, ok := t.index[[2]string{name, normalize(state)}]
	if !ok {
		return 0, 0, false
	}
	return p.lat, p.lon, true
}

// InUS reports whether a point lies inside the rough continental US bounds.
func InUS(lat, lon float64) bool {
	return lat >= 25 && lat <= 50 && lon >= -125 && lon <= -65
}
