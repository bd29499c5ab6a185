package scoring

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/example/accessible-dispatch/internal/geo"
	"github.com/example/accessible-dispatch/internal/models"
	"github.com/example/accessible-dispatch/internal/predictor"
	"github.com/example/accessible-dispatch/internal/profiles"
)

type fakeProfiles struct {
	user   *models.UserProfile
	driver *models.DriverProfile
	err    error
}

func (f *fakeProfiles) GetUserProfile(ctx context.Context, id string) (*models.UserProfile, error) {
	return f.user, f.err
}
func (f *fakeProfiles) GetDriverProfile(ctx context.Context, id string) (*models.DriverProfile, error) {
	return f.driver, f.err
}
func (f *fakeProfiles) UpdateUserProfile(ctx context.Context, id string, fields map[string]any) error {
	return nil
}

type fakeStats struct {
	serviceRate float64
	dailyRides  int
	avgRides    float64
	fatigue     float64
}

func (f fakeStats) LocationServiceRate(ctx context.Context, loc string) float64 { return f.serviceRate }
func (f fakeStats) DriverDailyRides(ctx context.Context, id string) int         { return f.dailyRides }
func (f fakeStats) AverageDailyRides(ctx context.Context) float64               { return f.avgRides }
func (f fakeStats) DriverFatigue(ctx context.Context, id string) float64        { return f.fatigue }

type errPredictor struct{}

func (errPredictor) Predict(ctx context.Context, f predictor.Features) (float64, error) {
	return 0, errors.New("predictor down")
}

func newTestEngine(p predictor.Predictor, store profiles.Store, stats profiles.FleetStats) *Engine {
	return NewEngine(geo.NewEstimator(nil), p, store, stats, nil)
}

func approx(t *testing.T, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

var eval = time.Date(2024, 3, 5, 17, 0, 0, 0, time.UTC) // hour 17, a Tuesday

func TestUrgencyHospitalWheelchairMedicalAtSeventeen(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 10}, nil, nil)
	req := models.RideRequest{
		ID: "r1", RequestTime: eval, UserID: "u1",
		PickupLocation: "gangnam", Destination: "seocho",
		Wheelchair: true, MedicalAppointment: true,
		DestinationType: models.DestHospital, Weather: "clear",
	}
	// exp(0)*10 = 10, +30 +50 = 90, x2.0 hospital = 180, x1.5 late hospital = 270
	u := e.Urgency(context.Background(), req, eval, e.PredictedWait(context.Background(), req, eval))
	approx(t, u, 270)
}

func TestUrgencyMLBoost(t *testing.T) {
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangnam", Destination: "seocho", Weather: "clear", DestinationType: models.DestGeneral}
	base := newTestEngine(predictor.Fixed{Minutes: 10}, nil, nil)
	boosted := newTestEngine(predictor.Fixed{Minutes: 25}, nil, nil)
	sentinel := newTestEngine(predictor.Fixed{Minutes: predictor.SentinelWait}, nil, nil)

	ctx := context.Background()
	ub := base.Urgency(ctx, req, eval, base.PredictedWait(ctx, req, eval))
	ux := boosted.Urgency(ctx, req, eval, boosted.PredictedWait(ctx, req, eval))
	us := sentinel.Urgency(ctx, req, eval, sentinel.PredictedWait(ctx, req, eval))
	approx(t, ub, 10)
	approx(t, ux, 11)
	// encoding failure sentinel counts as a long wait, not an error
	approx(t, us, 11)
}

func TestUrgencyPredictorFailureScoresWithoutBoost(t *testing.T) {
	e := newTestEngine(errPredictor{}, nil, nil)
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangnam", Destination: "seocho", Weather: "clear"}
	ctx := context.Background()
	w := e.PredictedWait(ctx, req, eval)
	if w.OK {
		t.Fatal("expected degraded prediction")
	}
	approx(t, e.Urgency(ctx, req, eval, w), 10)
}

func TestUrgencySevereWeatherWheelchair(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, nil)
	ctx := context.Background()
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangnam", Destination: "seocho", Wheelchair: true, Weather: "rain", DestinationType: models.DestGeneral}
	// 10 + 30 = 40, x1.5 rain+wheelchair = 60
	approx(t, e.Urgency(ctx, req, eval, Wait{}), 60)

	req.Wheelchair = false
	// no wheelchair: severe weather alone does not multiply
	approx(t, e.Urgency(ctx, req, eval, Wait{}), 10)
}

func TestUrgencyLowReliabilityDampens(t *testing.T) {
	store := &fakeProfiles{user: &models.UserProfile{UserID: "u1", ReliabilityScore: 0.5}}
	e := newTestEngine(predictor.Fixed{Minutes: 0}, store, nil)
	req := models.RideRequest{ID: "r1", RequestTime: eval, UserID: "u1", PickupLocation: "gangnam", Destination: "seocho", Weather: "clear"}
	approx(t, e.Urgency(context.Background(), req, eval, Wait{}), 8)
}

func TestUrgencyGrowsWithWait(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, nil)
	req := models.RideRequest{ID: "r1", RequestTime: eval.Add(-15 * time.Minute), PickupLocation: "gangnam", Destination: "seocho", Weather: "clear"}
	// one e-fold of wait
	approx(t, e.Urgency(context.Background(), req, eval, Wait{}), math.E*10)
}

func TestEfficiencyZeroTravelBase(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, nil)
	driver := models.Driver{ID: "d1", CurrentLocation: "gangseo", Status: models.StatusAvailable}
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangseo", Destination: "gangseo", Weather: "clear"}
	eff, err := e.Efficiency(context.Background(), driver, req, nil, eval)
	if err != nil {
		t.Fatalf("efficiency: %v", err)
	}
	// travel 0 -> base 100; destination gangseo is low density (+0);
	// absent driver profile contributes the default service score (+1.0 x 20)
	approx(t, eff, 120)
}

func TestEfficiencyUnknownLocation(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, nil)
	driver := models.Driver{ID: "d1", CurrentLocation: "nowhere"}
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangnam", Destination: "gangseo", Weather: "clear"}
	if _, err := e.Efficiency(context.Background(), driver, req, nil, eval); err == nil {
		t.Fatal("expected unknown-location error")
	}
}

func TestEfficiencyBundlingBonusCapped(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, nil)
	driver := models.Driver{ID: "d1", CurrentLocation: "gangseo"}
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangseo", Destination: "gangseo", Weather: "clear"}

	active := make([]models.RideRequest, 0, 5)
	for i := 0; i < 5; i++ {
		active = append(active, models.RideRequest{
			ID: string(rune('a' + i)), RequestTime: eval.Add(-time.Minute),
			PickupLocation: "gangseo", Destination: "mapo",
		})
	}
	eff, err := e.Efficiency(context.Background(), driver, req, active, eval)
	if err != nil {
		t.Fatalf("efficiency: %v", err)
	}
	// five qualifying co-located requests, bonus capped at +30
	approx(t, eff, 150)
}

func TestEfficiencyBundlingIgnoresStaleAndForeign(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, nil)
	driver := models.Driver{ID: "d1", CurrentLocation: "gangseo"}
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangseo", Destination: "gangseo", Weather: "clear"}
	active := []models.RideRequest{
		{ID: "stale", RequestTime: eval.Add(-2 * time.Hour), PickupLocation: "gangseo"},
		{ID: "elsewhere", RequestTime: eval, PickupLocation: "mapo"},
		{ID: "r1", RequestTime: eval, PickupLocation: "gangseo"}, // the request itself
	}
	eff, err := e.Efficiency(context.Background(), driver, req, active, eval)
	if err != nil {
		t.Fatalf("efficiency: %v", err)
	}
	approx(t, eff, 120)
}

func TestEfficiencyMatchScoreComponents(t *testing.T) {
	store := &fakeProfiles{driver: &models.DriverProfile{
		DriverID: "d1", ServiceScore: 1.2, SpecialtyAreas: []string{"wheelchair_expert"},
	}}
	e := newTestEngine(predictor.Fixed{Minutes: 0}, store, nil)
	driver := models.Driver{
		ID: "d1", CurrentLocation: "gangseo", WheelchairCapable: true,
		SpecialtyAreas: []string{"gangseo"},
	}
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangseo", Destination: "gangseo", Wheelchair: true, Weather: "clear"}
	eff, err := e.Efficiency(context.Background(), driver, req, nil, eval)
	if err != nil {
		t.Fatalf("efficiency: %v", err)
	}
	// match = 2.0 expert + 1.5 specialty area + 1.2 service = 4.7 -> +94
	approx(t, eff, 100+4.7*20)
}

func TestEfficiencyFatiguePenalty(t *testing.T) {
	stats := fakeStats{serviceRate: 0.85, dailyRides: 10, avgRides: 12, fatigue: 0.8}
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, stats)
	driver := models.Driver{ID: "d1", CurrentLocation: "gangseo"}
	req := models.RideRequest{ID: "r1", RequestTime: eval, PickupLocation: "gangseo", Destination: "gangseo", Weather: "clear"}
	eff, err := e.Efficiency(context.Background(), driver, req, nil, eval)
	if err != nil {
		t.Fatalf("efficiency: %v", err)
	}
	approx(t, eff, 120*0.7)
}

func TestFairnessDefaultsAreNeutral(t *testing.T) {
	e := newTestEngine(predictor.Fixed{Minutes: 0}, nil, nil)
	driver := models.Driver{ID: "d1", CurrentLocation: "gangnam"}
	req := models.RideRequest{ID: "r1", RequestTime: eval, UserID: "u1", PickupLocation: "gangnam", Destination: "seocho", Weather: "clear"}
	approx(t, e.Fairness(context.Background(), driver, req, Wait{}), 50)
}

func TestFairnessAllBonuses(t *testing.T) {
	store := &fakeProfiles{user: &models.UserProfile{UserID: "u1", AvgWaitingTime: 30, ReliabilityScore: 1}}
	stats := fakeStats{serviceRate: 0.7, dailyRides: 5, avgRides: 12, fatigue: 0.5}
	e := newTestEngine(predictor.Fixed{Minutes: 40}, store, stats)
	driver := models.Driver{ID: "d1", CurrentLocation: "gangnam"}
	req := models.RideRequest{ID: "r1", RequestTime: eval, UserID: "u1", PickupLocation: "gangnam", Destination: "seocho", Weather: "clear"}
	w := e.PredictedWait(context.Background(), req, eval)
	// 50 +20 underserved user +15 underserved district +10 underworked driver +10 ML
	approx(t, e.Fairness(context.Background(), driver, req, w), 105)
}
