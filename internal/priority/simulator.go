package priority

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Hourly baselines derived from daily totals of the reference fleet:
// roughly 2000 calls, 600 active vehicles and 300 waiting users per day.
const (
	baseCallsPerHour   = 2000.0 / 24
	baseCarsPerHour    = 600.0 / 24
	baseWaitingPerHour = 300.0 / 24
)

// Snapshot is the aggregate demand picture behind one simulated batch.
type Snapshot struct {
	Timestamp    time.Time `json:"timestamp"`
	Hour         int       `json:"hour"`
	Weekday      int       `json:"weekday"`
	Calls        int       `json:"calls"`
	ActiveCars   int       `json:"active_cars"`
	WaitingUsers int       `json:"waiting_users"`
}

// Simulator produces a synthetic real-time demand feed following the
// time-of-day and weekday patterns of the reference data. It stands in
// for the production feed in local runs and load tests.
type Simulator struct {
	Now func() time.Time
	rng *rand.Rand
}

func NewSimulator(seed int64) *Simulator {
	return &Simulator{Now: time.Now, rng: rand.New(rand.NewSource(seed))}
}

// TimeMultiplier scales baseline demand by hour and weekday.
// Deep night halves it, commute peaks double or more, weekends add half.
func TimeMultiplier(hour, weekday int) float64 {
	m := 1.0
	if hour >= 0 && hour < 6 {
		m *= 0.5
	}
	if hour >= 7 && hour < 10 {
		m *= 2.0
	}
	if hour >= 17 && hour < 21 {
		m *= 2.5
	}
	if weekday >= 5 {
		m *= 1.5
	}
	return m
}

// CurrentSnapshot returns the demand aggregates with ±10% jitter.
func (s *Simulator) CurrentSnapshot() Snapshot {
	now := s.Now()
	hour := now.Hour()
	weekday := (int(now.Weekday()) + 6) % 7 // Monday=0 like the reference data
	m := TimeMultiplier(hour, weekday)
	return Snapshot{
		Timestamp:    now,
		Hour:         hour,
		Weekday:      weekday,
		Calls:        s.jitter(baseCallsPerHour * m),
		ActiveCars:   s.jitter(baseCarsPerHour * m),
		WaitingUsers: s.jitter(baseWaitingPerHour * m),
	}
}

// CurrentCalls synthesizes a scored call batch sized by current demand.
func (s *Simulator) CurrentCalls(ctx context.Context) ([]Call, error) {
	snap := s.CurrentSnapshot()
	n := snap.WaitingUsers
	if n > 25 {
		n = 25
	}
	calls := make([]Call, 0, n)
	for i := 0; i < n; i++ {
		calls = append(calls, Call{
			ID:          fmt.Sprintf("sim-%d", i+1),
			WaitMinutes: s.rng.Float64() * 40,
			DistanceKm:  s.rng.Float64() * 15,
			Wheelchair:  s.rng.Float64() < 0.3,
		})
	}
	ScoreCalls(calls)
	return calls, nil
}

func (s *Simulator) jitter(v float64) int {
	out := int(v * (1 + (s.rng.Float64()*0.2 - 0.1)))
	if out < 1 {
		out = 1
	}
	return out
}
