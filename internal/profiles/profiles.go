package profiles

import (
	"context"

	"github.com/example/accessible-dispatch/internal/models"
)

// Store looks up optional user/driver history. A nil profile with a nil
// error means "no record"; scoring treats that neutrally.
type Store interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	GetDriverProfile(ctx context.Context, driverID string) (*models.DriverProfile, error)
	UpdateUserProfile(ctx context.Context, userID string, fields map[string]any) error
}

// NopStore has no records. Default until a storage backend is wired.
type NopStore struct{}

func (NopStore) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	return nil, nil
}

func (NopStore) GetDriverProfile(ctx context.Context, driverID string) (*models.DriverProfile, error) {
	return nil, nil
}

func (NopStore) UpdateUserProfile(ctx context.Context, userID string, fields map[string]any) error {
	return nil
}

// FleetStats answers the operational aggregates the scorer consults.
type FleetStats interface {
	LocationServiceRate(ctx context.Context, location string) float64
	DriverDailyRides(ctx context.Context, driverID string) int
	AverageDailyRides(ctx context.Context) float64
	DriverFatigue(ctx context.Context, driverID string) float64
}

// StaticStats returns the reference constants. Keeps scoring well-defined
// when no stats backend is configured.
type StaticStats struct {
	ServiceRate float64
	DailyRides  int
	AvgRides    float64
	Fatigue     float64
}

// DefaultStats mirrors the reference deployment's fixed values.
func DefaultStats() StaticStats {
	return StaticStats{ServiceRate: 0.85, DailyRides: 10, AvgRides: 12.0, Fatigue: 0.5}
}

func (s StaticStats) LocationServiceRate(ctx context.Context, location string) float64 {
	return s.ServiceRate
}
func (s StaticStats) DriverDailyRides(ctx context.Context, driverID string) int { return s.DailyRides }
func (s StaticStats) AverageDailyRides(ctx context.Context) float64             { return s.AvgRides }
func (s StaticStats) DriverFatigue(ctx context.Context, driverID string) float64 {
	return s.Fatigue
}
