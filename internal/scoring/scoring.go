package scoring

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/example/accessible-dispatch/internal/geo"
	"github.com/example/accessible-dispatch/internal/models"
	"github.com/example/accessible-dispatch/internal/observability"
	"github.com/example/accessible-dispatch/internal/predictor"
	"github.com/example/accessible-dispatch/internal/profiles"
)

const (
	urgencyWaitScale = 15.0 // minutes per e-fold of the wait exponential

	wheelchairUrgencyBonus = 30.0
	medicalUrgencyBonus    = 50.0

	longWaitThreshold = 25.0 // predicted minutes that trigger ML boosts

	bundleBonusPerRequest = 10.0
	bundleBonusCap        = 30.0
	bundleWaitSlack       = 50.0 // minutes past travel time a co-located request still counts

	matchWeight     = 20.0
	fatigueCutoff   = 0.7
	fatiguePenalty  = 0.7
	lowReliability  = 0.8
	hospitalRushHr  = 16
	severeWeatherUp = 1.5
)

// Wait is a resolved wait-time prediction. OK is false when the predictor
// was unreachable and the ML boosts must not apply.
type Wait struct {
	Minutes float64
	OK      bool
}

// Engine computes the urgency/efficiency/fairness sub-scores for a
// (request, driver) pair. It is stateless; all shared state lives with
// the coordinator and is passed in per call.
type Engine struct {
	Geo       *geo.Estimator
	Predictor predictor.Predictor
	Profiles  profiles.Store
	Stats     profiles.FleetStats
	Logger    *slog.Logger

	PredictTimeout time.Duration
}

func NewEngine(est *geo.Estimator, p predictor.Predictor, store profiles.Store, stats profiles.FleetStats, logger *slog.Logger) *Engine {
	if store == nil {
		store = profiles.NopStore{}
	}
	if stats == nil {
		stats = profiles.DefaultStats()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Geo: est, Predictor: p, Profiles: store, Stats: stats, Logger: logger, PredictTimeout: 2 * time.Second}
}

// PredictedWait consults the wait-time regressor once per dispatch. On
// failure it logs a degraded-mode event and reports OK=false; the
// encoding sentinel (999.0) comes back as a regular long wait.
func (e *Engine) PredictedWait(ctx context.Context, req models.RideRequest, now time.Time) Wait {
	if e.Predictor == nil {
		return Wait{}
	}
	vehicles := req.VehicleCount
	if vehicles <= 0 {
		vehicles = predictor.DefaultVehicleCount
	}
	users := req.UserCount
	if users <= 0 {
		users = predictor.DefaultUserCount
	}
	cctx, cancel := context.WithTimeout(ctx, e.PredictTimeout)
	defer cancel()
	minutes, err := e.Predictor.Predict(cctx, predictor.Features{
		Hour:           now.Hour(),
		PickupLocation: req.PickupLocation,
		Weather:        req.Weather,
		Wheelchair:     req.Wheelchair,
		VehicleCount:   vehicles,
		UserCount:      users,
	})
	if err != nil {
		observability.DegradedEvents.WithLabelValues("predictor").Inc()
		e.Logger.Warn("wait predictor unavailable, scoring without ML boost",
			"request_id", req.ID, "error", err)
		return Wait{}
	}
	return Wait{Minutes: minutes, OK: true}
}

// Urgency scores how time-critical the request is. The exponential wait
// base is adjusted additively for accessibility needs, then multiplied by
// destination, weather, time-of-day, reliability and ML factors, in that
// order.
func (e *Engine) Urgency(ctx context.Context, req models.RideRequest, now time.Time, wait Wait) float64 {
	waitMinutes := now.Sub(req.RequestTime).Minutes()
	u := math.Exp(waitMinutes/urgencyWaitScale) * 10

	if req.Wheelchair {
		u += wheelchairUrgencyBonus
		if req.MedicalAppointment {
			u += medicalUrgencyBonus
		}
	}

	u *= destinationMultiplier(req.DestinationType)

	if severeWeather(req.Weather) && req.Wheelchair {
		u *= severeWeatherUp
	}

	if req.DestinationType == models.DestHospital && now.Hour() >= hospitalRushHr {
		u *= 1.5
	}

	if p := e.userProfile(ctx, req.UserID); p != nil && p.ReliabilityScore < lowReliability {
		u *= 0.8
	}

	if wait.OK && wait.Minutes >= longWaitThreshold {
		u *= 1.1
	}

	return u
}

// Efficiency scores how operationally favorable this driver is: pickup
// travel cost, ride-bundling potential at the destination, driver/user
// match quality, destination density and fatigue.
func (e *Engine) Efficiency(ctx context.Context, driver models.Driver, req models.RideRequest, active []models.RideRequest, now time.Time) (float64, error) {
	travel, err := e.Geo.Estimate(driver.CurrentLocation, req.PickupLocation, req.Weather, now.Hour())
	if err != nil {
		return 0, err
	}

	eff := 100.0 - 2*travel

	if bonus := bundleBonusPerRequest * float64(e.bundledRequests(req, active, travel, now)); bonus > 0 {
		if bonus > bundleBonusCap {
			bonus = bundleBonusCap
		}
		eff += bonus
	}

	eff += e.matchScore(ctx, driver, req) * matchWeight

	eff += densityBonus(e.Geo.Tables().Density(req.Destination))

	if e.Stats.DriverFatigue(ctx, driver.ID) > fatigueCutoff {
		eff *= fatiguePenalty
	}

	if eff < 0 {
		eff = 0
	}
	return eff, nil
}

// Fairness compensates historically underserved users, districts and
// drivers, on a base of 50.
func (e *Engine) Fairness(ctx context.Context, driver models.Driver, req models.RideRequest, wait Wait) float64 {
	f := 50.0

	if p := e.userProfile(ctx, req.UserID); p != nil && p.AvgWaitingTime > 25 {
		f += 20
	}

	if e.Stats.LocationServiceRate(ctx, req.PickupLocation) < 0.8 {
		f += 15
	}

	today := float64(e.Stats.DriverDailyRides(ctx, driver.ID))
	if today < e.Stats.AverageDailyRides(ctx)*0.8 {
		f += 10
	}

	if wait.OK && wait.Minutes >= longWaitThreshold {
		f += 10
	}

	return f
}

// matchScore rewards wheelchair expertise, local knowledge of the pickup
// district and the driver's service record.
func (e *Engine) matchScore(ctx context.Context, driver models.Driver, req models.RideRequest) float64 {
	score := 0.0

	dp := e.driverProfile(ctx, driver.ID)

	if req.Wheelchair && driver.WheelchairCapable && dp != nil && contains(dp.SpecialtyAreas, "wheelchair_expert") {
		score += 2.0
	}

	if contains(driver.SpecialtyAreas, req.PickupLocation) {
		score += 1.5
	}

	if dp != nil {
		score += dp.ServiceScore
	} else {
		score += 1.0
	}

	return score
}

// bundledRequests counts active requests whose pickup is this request's
// destination and whose own wait is still within the driver's arrival
// window.
func (e *Engine) bundledRequests(req models.RideRequest, active []models.RideRequest, travel float64, now time.Time) int {
	n := 0
	for _, other := range active {
		if other.ID == req.ID || other.PickupLocation != req.Destination {
			continue
		}
		if now.Sub(other.RequestTime).Minutes() < travel+bundleWaitSlack {
			n++
		}
	}
	return n
}

func (e *Engine) userProfile(ctx context.Context, userID string) *models.UserProfile {
	if userID == "" {
		return nil
	}
	p, err := e.Profiles.GetUserProfile(ctx, userID)
	if err != nil {
		observability.DegradedEvents.WithLabelValues("profile_store").Inc()
		e.Logger.Warn("user profile lookup failed", "user_id", userID, "error", err)
		return nil
	}
	return p
}

func (e *Engine) driverProfile(ctx context.Context, driverID string) *models.DriverProfile {
	p, err := e.Profiles.GetDriverProfile(ctx, driverID)
	if err != nil {
		observability.DegradedEvents.WithLabelValues("profile_store").Inc()
		e.Logger.Warn("driver profile lookup failed", "driver_id", driverID, "error", err)
		return nil
	}
	return p
}

func destinationMultiplier(destType string) float64 {
	switch destType {
	case models.DestHospital:
		return 2.0
	case models.DestPharmacy:
		return 1.8
	case models.DestGovernment:
		return 1.5
	case models.DestEducation:
		return 1.3
	default:
		return 1.0
	}
}

func densityBonus(density string) float64 {
	switch density {
	case geo.DensityHigh:
		return 15
	case geo.DensityMedium:
		return 5
	default:
		return 0
	}
}

func severeWeather(w string) bool { return w == "rain" || w == "snow" }

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
