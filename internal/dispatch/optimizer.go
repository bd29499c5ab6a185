package dispatch

import "github.com/example/accessible-dispatch/internal/models"

// Optimizer is the seam for batch assignment. The shipped implementation
// is a placeholder; a real algorithm (weighted bipartite matching, MILP)
// slots in here without touching the scoring code.
type Optimizer interface {
	Assign(requests []models.RideRequest, driverIDs []string) []models.Assignment
}

// RoundRobin assigns drivers cyclically by index. No scoring, no
// constraints; deterministic by construction.
type RoundRobin struct{}

func (RoundRobin) Assign(requests []models.RideRequest, driverIDs []string) []models.Assignment {
	out := make([]models.Assignment, 0, len(requests))
	for i, req := range requests {
		a := models.Assignment{RequestID: req.ID}
		if len(driverIDs) > 0 {
			a.DriverID = driverIDs[i%len(driverIDs)]
		}
		out = append(out, a)
	}
	return out
}
