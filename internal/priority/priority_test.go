package priority

import (
	"context"
	"testing"
	"time"
)

func TestScoreCallsOrdering(t *testing.T) {
	calls := []Call{
		{ID: "a", WaitMinutes: 30, DistanceKm: 1},  // head of queue, long wait, close
		{ID: "b", WaitMinutes: 10, DistanceKm: 8},  // middle
		{ID: "c", WaitMinutes: 0, DistanceKm: 14},  // tail, fresh, far
	}
	ScoreCalls(calls)
	if calls[0].PriorityScore <= calls[1].PriorityScore || calls[1].PriorityScore <= calls[2].PriorityScore {
		t.Fatalf("expected strictly decreasing scores, got %v %v %v",
			calls[0].PriorityScore, calls[1].PriorityScore, calls[2].PriorityScore)
	}
	for _, c := range calls {
		if c.PriorityScore < 0 || c.PriorityScore > 1 {
			t.Fatalf("score out of range for %s: %f", c.ID, c.PriorityScore)
		}
	}
}

func TestScoreCallsWheelchairBonus(t *testing.T) {
	calls := []Call{
		{ID: "plain", WaitMinutes: 10, DistanceKm: 5},
		{ID: "chair", WaitMinutes: 10, DistanceKm: 5, Wheelchair: true},
	}
	ScoreCalls(calls)
	// identical wait/distance, so the gap is exactly the flat wheelchair
	// bonus minus the rank step between the two queue positions
	diff := calls[1].PriorityScore - calls[0].PriorityScore
	want := weightWheelchair - weightRank
	if diff < want-1e-9 || diff > want+1e-9 {
		t.Fatalf("expected gap %f, got %f", want, diff)
	}
}

func TestScoreCallsSingleEntry(t *testing.T) {
	calls := []Call{{ID: "solo", WaitMinutes: 5, DistanceKm: 2, Wheelchair: true}}
	ScoreCalls(calls)
	// rank 1.0, midpoint wait/distance, wheelchair bonus
	want := weightRank + weightWait*0.5 + weightDistance*0.5 + weightWheelchair
	if got := calls[0].PriorityScore; got != want {
		t.Fatalf("expected %f, got %f", want, got)
	}
}

func TestTimeMultiplier(t *testing.T) {
	cases := []struct {
		hour, weekday int
		want          float64
	}{
		{3, 1, 0.5},
		{8, 1, 2.0},
		{18, 1, 2.5},
		{14, 1, 1.0},
		{14, 6, 1.5},
		{18, 5, 3.75},
	}
	for _, c := range cases {
		if got := TimeMultiplier(c.hour, c.weekday); got != c.want {
			t.Fatalf("hour=%d weekday=%d: expected %f, got %f", c.hour, c.weekday, c.want, got)
		}
	}
}

func TestSimulatorDeterministicWithFixedSeed(t *testing.T) {
	mk := func() *Simulator {
		s := NewSimulator(42)
		s.Now = func() time.Time { return time.Date(2024, 3, 4, 18, 0, 0, 0, time.UTC) }
		return s
	}
	a, err := mk().CurrentCalls(context.Background())
	if err != nil {
		t.Fatalf("calls: %v", err)
	}
	b, _ := mk().CurrentCalls(context.Background())
	if len(a) == 0 || len(a) != len(b) {
		t.Fatalf("expected identical non-empty batches, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("batch diverged at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}
