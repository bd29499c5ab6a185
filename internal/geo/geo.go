package geo

import (
	"fmt"
	"math"
	"sync"
)

// ErrUnknownLocation marks a name that does not resolve against the
// location table. Requests carrying one are rejected, never guessed.
type ErrUnknownLocation struct{ Name string }

func (e ErrUnknownLocation) Error() string { return fmt.Sprintf("unknown location %q", e.Name) }

const baseSpeedKmh = 25.0

// Estimator converts two named locations plus weather into a travel-time
// estimate in minutes. The wall-clock hour is supplied by the caller so
// the computation stays deterministic under test.
type Estimator struct {
	tables *Tables

	mu      sync.RWMutex
	traffic map[[2]string]float64 // per (from,to) pair, default 1.0
}

func NewEstimator(t *Tables) *Estimator {
	if t == nil {
		t = DefaultTables()
	}
	return &Estimator{tables: t, traffic: make(map[[2]string]float64)}
}

// SetTrafficFactor overrides the congestion multiplier for one road pair.
func (e *Estimator) SetTrafficFactor(from, to string, factor float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.traffic[[2]string{from, to}] = factor
}

func (e *Estimator) trafficFactor(from, to string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if f, ok := e.traffic[[2]string{from, to}]; ok {
		return f
	}
	return 1.0
}

// Tables exposes the reference tables behind this estimator.
func (e *Estimator) Tables() *Tables { return e.tables }

// Estimate returns travel minutes from one district to another under the
// given weather, at the given hour of day.
func (e *Estimator) Estimate(from, to, weather string, hour int) (float64, error) {
	a, ok := e.tables.Lookup(from)
	if !ok {
		return 0, ErrUnknownLocation{Name: from}
	}
	b, ok := e.tables.Lookup(to)
	if !ok {
		return 0, ErrUnknownLocation{Name: to}
	}

	distance := Haversine(a.Lat, a.Lon, b.Lat, b.Lon)

	speed := baseSpeedKmh * hourSpeedFactor(hour)
	speed /= e.tables.Difficulty(weather)

	minutes := (distance / speed) * 60
	minutes *= e.trafficFactor(from, to)
	return minutes, nil
}

// hourSpeedFactor models rush-hour, midday and deep-night traffic.
func hourSpeedFactor(hour int) float64 {
	switch {
	case hour == 8 || hour == 9 || hour == 18 || hour == 19:
		return 0.6
	case hour == 12 || hour == 13:
		return 0.8
	case hour >= 0 && hour <= 5:
		return 1.3
	default:
		return 1.0
	}
}

// Haversine great-circle distance in kilometers.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
