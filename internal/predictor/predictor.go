package predictor

import "context"

// SentinelWait is what the serving side answers when it cannot encode the
// location or weather of a request. Callers treat it as a very long wait
// rather than a failure.
const SentinelWait = 999.0

// Defaults for the regional supply/demand hints when a request carries none.
const (
	DefaultVehicleCount = 10
	DefaultUserCount    = 20
)

// Features is the encoded input of the wait-time regressor.
type Features struct {
	Hour           int    `json:"hour"`
	PickupLocation string `json:"pickup_location"`
	Weather        string `json:"weather"`
	Wheelchair     bool   `json:"wheelchair"`
	VehicleCount   int    `json:"num_vehicles"`
	UserCount      int    `json:"num_users"`
}

// Predictor returns the predicted wait in minutes for a request. Calls may
// hit the network; implementations honor ctx deadlines.
type Predictor interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// Fixed always answers the same wait. Used in tests and offline runs.
type Fixed struct{ Minutes float64 }

func (f Fixed) Predict(ctx context.Context, _ Features) (float64, error) {
	return f.Minutes, nil
}
