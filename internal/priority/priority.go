package priority

import "context"

// Call is one active demand entry in the real-time feed, with its fused
// priority score in [0,1].
type Call struct {
	ID            string  `json:"id"`
	WaitMinutes   float64 `json:"wait_minutes"`
	DistanceKm    float64 `json:"distance_km"`
	Wheelchair    bool    `json:"wheelchair"`
	PriorityScore float64 `json:"priority_score"`
}

// Feed produces the current call batch. Implementations may hit the
// network; failures degrade to a zero urgency boost at the call site.
type Feed interface {
	CurrentCalls(ctx context.Context) ([]Call, error)
}

// Static is a fixed feed for tests.
type Static struct{ Calls []Call }

func (s Static) CurrentCalls(ctx context.Context) ([]Call, error) { return s.Calls, nil }

// Blend weights for the priority score: queue-order rank, wait time,
// proximity and the flat wheelchair bonus.
const (
	weightRank       = 0.2
	weightWait       = 0.3
	weightDistance   = 0.3
	weightWheelchair = 0.2
)

// ScoreCalls assigns PriorityScore to every call in the batch. Earlier
// queue position, longer wait and shorter distance all rank higher; each
// metric is min-max normalized over the batch. The input order is the
// queue order.
func ScoreCalls(calls []Call) {
	n := len(calls)
	if n == 0 {
		return
	}
	minWait, maxWait := calls[0].WaitMinutes, calls[0].WaitMinutes
	minDist, maxDist := calls[0].DistanceKm, calls[0].DistanceKm
	for _, c := range calls[1:] {
		minWait = min(minWait, c.WaitMinutes)
		maxWait = max(maxWait, c.WaitMinutes)
		minDist = min(minDist, c.DistanceKm)
		maxDist = max(maxDist, c.DistanceKm)
	}
	for i := range calls {
		rank := 1.0
		if n > 1 {
			rank = 1 - float64(i)/float64(n-1)
		}
		score := weightRank * rank
		score += weightWait * normalize(calls[i].WaitMinutes, minWait, maxWait)
		score += weightDistance * (1 - normalize(calls[i].DistanceKm, minDist, maxDist))
		if calls[i].Wheelchair {
			score += weightWheelchair
		}
		calls[i].PriorityScore = clamp01(score)
	}
}

// normalize maps v into [0,1] over the batch range; a degenerate range
// scores the midpoint so a single-entry batch is not an outlier.
func normalize(v, lo, hi float64) float64 {
	if hi <= lo {
		return 0.5
	}
	return (v - lo) / (hi - lo)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
