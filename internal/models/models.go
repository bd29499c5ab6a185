package models

import "time"

// Destination categories recognized by the urgency scorer.
const (
	DestGeneral    = "general"
	DestHospital   = "hospital"
	DestPharmacy   = "pharmacy"
	DestGovernment = "government"
	DestEducation  = "education"
)

// Driver availability states.
const (
	StatusAvailable = "available"
	StatusBusy      = "busy"
	StatusOffline   = "offline"
)

// RideRequest is an accessible-transport pickup request. Pickup and
// Destination must resolve against the location table; the request is
// immutable once created.
type RideRequest struct {
	ID                 string    `json:"request_id"`
	RequestTime        time.Time `json:"request_time"`
	UserID             string    `json:"user_id"`
	PickupLocation     string    `json:"pickup_location"`
	Destination        string    `json:"destination"`
	Wheelchair         bool      `json:"wheelchair"`
	DestinationType    string    `json:"destination_type"`
	MedicalAppointment bool      `json:"medical_appointment"`
	Weather            string    `json:"weather"`

	// Optional regional supply/demand hints for the wait-time predictor.
	VehicleCount int `json:"num_vehicles,omitempty"`
	UserCount    int `json:"num_users,omitempty"`
}

// Driver is a vehicle in the pool. Only status "available" enters scoring.
type Driver struct {
	ID                string    `json:"driver_id"`
	CurrentLocation   string    `json:"current_location"`
	WheelchairCapable bool      `json:"wheelchair_capable"`
	SpecialtyAreas    []string  `json:"specialty_areas,omitempty"`
	Status            string    `json:"status"`
	Updated           time.Time `json:"updated,omitempty"`
}

// Available reports whether the driver can be offered work.
func (d Driver) Available() bool { return d.Status == "" || d.Status == StatusAvailable }

// UserProfile holds optional rider history. Absence is valid and scores
// neutrally.
type UserProfile struct {
	UserID           string   `json:"user_id"`
	TotalRides       int      `json:"total_rides"`
	AvgWaitingTime   float64  `json:"avg_waiting_time"`
	WheelchairUser   bool     `json:"wheelchair_user"`
	ReliabilityScore float64  `json:"reliability_score"`
	SpecialNeeds     []string `json:"special_needs,omitempty"`
}

// DriverProfile holds optional driver history.
type DriverProfile struct {
	DriverID          string   `json:"driver_id"`
	WheelchairCapable bool     `json:"wheelchair_capable"`
	ServiceScore      float64  `json:"service_score"`
	AvgPickupTime     float64  `json:"avg_pickup_time"`
	CompletedRides    int      `json:"completed_rides"`
	SpecialtyAreas    []string `json:"specialty_areas,omitempty"`
}

// ScoreComponents are the sub-scores behind a dispatch decision.
type ScoreComponents struct {
	Urgency    float64 `json:"urgency"`
	Efficiency float64 `json:"efficiency"`
	Fairness   float64 `json:"fairness"`
}

// DispatchCandidate pairs a driver with its scores for one dispatch call.
type DispatchCandidate struct {
	Driver     Driver
	Score      float64
	Components ScoreComponents
}

// DispatchResult is the outcome handed back to the caller.
type DispatchResult struct {
	DriverID            string          `json:"driver_id"`
	EstimatedPickupTime float64         `json:"estimated_pickup_time"`
	DispatchScore       float64         `json:"dispatch_score"`
	DispatchReason      string          `json:"dispatch_reason"`
	UserMessage         string          `json:"user_message"`
	Components          ScoreComponents `json:"components"`
	Emergency           bool            `json:"emergency"`
}

// Assignment is one row of a batch optimization result.
type Assignment struct {
	RequestID string `json:"request_id"`
	DriverID  string `json:"driver_id"`
}

// LocationStatus aggregates per-district state for the status endpoint.
type LocationStatus struct {
	ActiveRequests int     `json:"active_requests"`
	ServiceRate    float64 `json:"service_rate"`
}

// SystemStatus is the read-only snapshot served by the coordinator.
type SystemStatus struct {
	TotalActiveRequests int                       `json:"total_active_requests"`
	LocationStatistics  map[string]LocationStatus `json:"location_statistics"`
	SystemLoad          string                    `json:"system_load"`
	Timestamp           time.Time                 `json:"timestamp"`
}

// DispatchRecord is the persisted trace of a completed decision.
type DispatchRecord struct {
	RequestID string
	UserID    string
	DriverID  string
	Pickup    string
	Dest      string
	Score     float64
	ETA       float64
	Emergency bool
	CreatedAt time.Time
}
