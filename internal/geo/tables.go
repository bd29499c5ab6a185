package geo

import (
	"encoding/json"
	"fmt"
	"os"
)

// Density categories used by the efficiency density bonus.
const (
	DensityHigh   = "high"
	DensityMedium = "medium"
	DensityLow    = "low"
)

// Location is one district in the service area.
type Location struct {
	Code    int     `json:"code"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Density string  `json:"density"`
}

// Weather carries the speed-difficulty divisor and the demand multiplier
// for one weather kind.
type Weather struct {
	Difficulty       float64 `json:"difficulty"`
	DemandMultiplier float64 `json:"demand_multiplier"`
}

// Tables bundles the static reference data. Small and fixed, but loadable
// from a file so deployments are not tied to the built-in service area.
type Tables struct {
	Locations map[string]Location `json:"locations"`
	Weather   map[string]Weather  `json:"weather"`
}

// DefaultTables returns the built-in Seoul service area used by the
// reference deployment.
func DefaultTables() *Tables {
	return &Tables{
		Locations: map[string]Location{
			"gangnam":      {Code: 0, Lat: 37.5172, Lon: 127.0473, Density: DensityHigh},
			"jongno":       {Code: 1, Lat: 37.5735, Lon: 126.9794, Density: DensityHigh},
			"nowon":        {Code: 2, Lat: 37.6542, Lon: 127.0568, Density: DensityMedium},
			"songpa":       {Code: 3, Lat: 37.5145, Lon: 127.1054, Density: DensityHigh},
			"yeongdeungpo": {Code: 4, Lat: 37.5264, Lon: 126.8963, Density: DensityMedium},
			"seongdong":    {Code: 5, Lat: 37.5633, Lon: 127.0367, Density: DensityMedium},
			"gangseo":      {Code: 6, Lat: 37.5509, Lon: 126.8495, Density: DensityLow},
			"mapo":         {Code: 7, Lat: 37.5663, Lon: 126.9018, Density: DensityHigh},
			"seocho":       {Code: 8, Lat: 37.4837, Lon: 127.0324, Density: DensityHigh},
			"junggu":       {Code: 9, Lat: 37.5641, Lon: 126.9979, Density: DensityHigh},
		},
		Weather: map[string]Weather{
			"clear":    {Difficulty: 1.0, DemandMultiplier: 1.0},
			"overcast": {Difficulty: 1.1, DemandMultiplier: 1.1},
			"rain":     {Difficulty: 1.3, DemandMultiplier: 1.4},
			"snow":     {Difficulty: 1.5, DemandMultiplier: 1.6},
		},
	}
}

// LoadTables reads location/weather tables from a JSON file.
func LoadTables(path string) (*Tables, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var t Tables
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("parse tables %s: %w", path, err)
	}
	if len(t.Locations) == 0 {
		return nil, fmt.Errorf("tables %s: no locations", path)
	}
	if len(t.Weather) == 0 {
		t.Weather = DefaultTables().Weather
	}
	return &t, nil
}

// Lookup resolves a location name.
func (t *Tables) Lookup(name string) (Location, bool) {
	loc, ok := t.Locations[name]
	return loc, ok
}

// Difficulty returns the speed divisor for a weather kind, 1.0 when unknown.
func (t *Tables) Difficulty(weather string) float64 {
	if w, ok := t.Weather[weather]; ok {
		return w.Difficulty
	}
	return 1.0
}

// Density returns the density category of a location, "medium" when unset.
func (t *Tables) Density(name string) string {
	loc, ok := t.Locations[name]
	if !ok || loc.Density == "" {
		return DensityMedium
	}
	return loc.Density
}
