package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/accessible-dispatch/internal/geo"
	"github.com/example/accessible-dispatch/internal/models"
	"github.com/example/accessible-dispatch/internal/observability"
	"github.com/example/accessible-dispatch/internal/priority"
	"github.com/example/accessible-dispatch/internal/profiles"
	"github.com/example/accessible-dispatch/internal/scoring"
	"github.com/example/accessible-dispatch/internal/storage"
)

// ErrNoAvailableDriver is returned when the wheelchair hard filter (and
// the claim filter) leaves zero candidates, in both dispatch paths.
var ErrNoAvailableDriver = errors.New("no available driver")

// Emergency dispatch bypasses scoring; the sentinel marks such results.
const emergencyScore = 999.0

// Total score weights over the three sub-scores.
const (
	weightUrgency    = 0.4
	weightEfficiency = 0.4
	weightFairness   = 0.2
)

// OfferSender pushes an assignment to the chosen driver, best-effort.
type OfferSender interface {
	Offer(driverID string, result models.DispatchResult) error
}

// Coordinator owns the active-request working set and the driver claim
// table, and orchestrates the dispatch decision.
type Coordinator struct {
	Engine    *scoring.Engine
	Geo       *geo.Estimator
	Feed      priority.Feed
	Stats     profiles.FleetStats
	Profiles  profiles.Store
	Store     storage.DispatchStore
	Notifier  OfferSender
	Optimizer Optimizer
	Logger    *slog.Logger

	Now         func() time.Time
	FeedTimeout time.Duration

	mu      sync.Mutex
	active  map[string]models.RideRequest
	claimed map[string]string // driver id -> request id holding the claim
	pool    map[string]models.Driver
}

func NewCoordinator(engine *scoring.Engine, est *geo.Estimator, feed priority.Feed, stats profiles.FleetStats, store storage.DispatchStore, logger *slog.Logger) *Coordinator {
	if stats == nil {
		stats = profiles.DefaultStats()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		Engine:      engine,
		Geo:         est,
		Feed:        feed,
		Stats:       stats,
		Profiles:    profiles.NopStore{},
		Store:       store,
		Optimizer:   RoundRobin{},
		Logger:      logger,
		Now:         time.Now,
		FeedTimeout: 2 * time.Second,
		active:      make(map[string]models.RideRequest),
		claimed:     make(map[string]string),
		pool:        make(map[string]models.Driver),
	}
}

// Dispatch assigns the best-fit driver to the request, or fails with
// ErrNoAvailableDriver. The decision is emergency (minimum ETA) when the
// boosted urgency exceeds the load-dependent threshold, weighted scoring
// otherwise.
func (c *Coordinator) Dispatch(ctx context.Context, req models.RideRequest, drivers []models.Driver) (*models.DispatchResult, error) {
	started := time.Now()
	now := c.Now()

	if err := c.validate(req); err != nil {
		return nil, err
	}

	eligible, activeCount, activeSnapshot := c.admit(req, drivers)

	wait := c.Engine.PredictedWait(ctx, req, now)
	urgency := c.Engine.Urgency(ctx, req, now, wait)
	urgency *= 1 + 2*c.priorityBoost(ctx, req)

	systemLoad := float64(activeCount) / math.Max(float64(len(eligible)), 1)
	threshold := 30.0
	if systemLoad > 3 {
		threshold = 50.0
	}

	var (
		result *models.DispatchResult
		err    error
	)
	if urgency > threshold {
		result, err = c.emergencyDispatch(req, eligible, now)
	} else {
		result, err = c.normalDispatch(ctx, req, eligible, activeSnapshot, urgency, wait, now)
	}
	if err != nil {
		c.abandon(req.ID)
		observability.DispatchRejections.Inc()
		return nil, err
	}

	c.claim(result.DriverID, req.ID)
	c.record(req, result, now)
	c.notifyDriver(result)

	mode := "normal"
	if result.Emergency {
		mode = "emergency"
	}
	observability.DispatchesTotal.WithLabelValues(mode).Inc()
	observability.DispatchLatency.Observe(time.Since(started).Seconds())
	c.Logger.Info("dispatch decided",
		"request_id", req.ID, "driver_id", result.DriverID, "mode", mode,
		"score", result.DispatchScore, "eta_minutes", result.EstimatedPickupTime,
		"system_load", systemLoad)
	return result, nil
}

// validate rejects requests whose endpoints do not resolve. A malformed
// request is a precondition violation, never guessed around.
func (c *Coordinator) validate(req models.RideRequest) error {
	if _, ok := c.Geo.Tables().Lookup(req.PickupLocation); !ok {
		return fmt.Errorf("pickup: %w", geo.ErrUnknownLocation{Name: req.PickupLocation})
	}
	if _, ok := c.Geo.Tables().Lookup(req.Destination); !ok {
		return fmt.Errorf("destination: %w", geo.ErrUnknownLocation{Name: req.Destination})
	}
	return nil
}

// admit snapshots the working state, registers the request as active and
// filters the offered drivers down to available, unclaimed ones sorted by
// ID (the deterministic tie-break order). The returned active count
// excludes the request being admitted, matching the load formula.
func (c *Coordinator) admit(req models.RideRequest, drivers []models.Driver) (eligible []models.Driver, activeCount int, snapshot []models.RideRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()

	activeCount = len(c.active)
	c.active[req.ID] = req
	observability.ActiveRequests.Set(float64(len(c.active)))

	snapshot = make([]models.RideRequest, 0, len(c.active))
	for _, r := range c.active {
		snapshot = append(snapshot, r)
	}

	eligible = make([]models.Driver, 0, len(drivers))
	for _, d := range drivers {
		c.pool[d.ID] = d
		if !d.Available() {
			continue
		}
		if _, taken := c.claimed[d.ID]; taken {
			continue
		}
		eligible = append(eligible, d)
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible, activeCount, snapshot
}

// priorityBoost fuses the external real-time signal: the matching call's
// score, or zero when the feed is down or silent about this request.
func (c *Coordinator) priorityBoost(ctx context.Context, req models.RideRequest) float64 {
	if c.Feed == nil {
		return 0
	}
	cctx, cancel := context.WithTimeout(ctx, c.FeedTimeout)
	defer cancel()
	calls, err := c.Feed.CurrentCalls(cctx)
	if err != nil {
		observability.DegradedEvents.WithLabelValues("priority_feed").Inc()
		c.Logger.Warn("priority feed unavailable, dispatching without boost",
			"request_id", req.ID, "error", err)
		return 0
	}
	for _, call := range calls {
		if call.ID == req.ID || call.ID == req.UserID {
			return call.PriorityScore
		}
	}
	return 0
}

func (c *Coordinator) emergencyDispatch(req models.RideRequest, eligible []models.Driver, now time.Time) (*models.DispatchResult, error) {
	var (
		best    *models.Driver
		bestETA float64
	)
	for i, d := range eligible {
		if req.Wheelchair && !d.WheelchairCapable {
			continue
		}
		eta, err := c.Geo.Estimate(d.CurrentLocation, req.PickupLocation, req.Weather, now.Hour())
		if err != nil {
			c.Logger.Warn("skipping driver with unresolvable location",
				"driver_id", d.ID, "error", err)
			continue
		}
		if best == nil || eta < bestETA {
			best = &eligible[i]
			bestETA = eta
		}
	}
	if best == nil {
		return nil, ErrNoAvailableDriver
	}
	components := models.ScoreComponents{Urgency: emergencyScore, Efficiency: 0, Fairness: 0}
	return c.buildResult(req, *best, emergencyScore, components, bestETA, true), nil
}

func (c *Coordinator) normalDispatch(ctx context.Context, req models.RideRequest, eligible []models.Driver, active []models.RideRequest, urgency float64, wait scoring.Wait, now time.Time) (*models.DispatchResult, error) {
	var best *models.DispatchCandidate
	for _, d := range eligible {
		if req.Wheelchair && !d.WheelchairCapable {
			continue
		}
		efficiency, err := c.Engine.Efficiency(ctx, d, req, active, now)
		if err != nil {
			c.Logger.Warn("skipping driver with unresolvable location",
				"driver_id", d.ID, "error", err)
			continue
		}
		fairness := c.Engine.Fairness(ctx, d, req, wait)

		total := weightUrgency*urgency + weightEfficiency*efficiency + weightFairness*fairness
		// strictly greater keeps the lowest driver ID on ties
		if best == nil || total > best.Score {
			best = &models.DispatchCandidate{
				Driver: d,
				Score:  total,
				Components: models.ScoreComponents{
					Urgency:    urgency,
					Efficiency: efficiency,
					Fairness:   fairness,
				},
			}
		}
	}
	if best == nil {
		return nil, ErrNoAvailableDriver
	}
	eta, err := c.Geo.Estimate(best.Driver.CurrentLocation, req.PickupLocation, req.Weather, now.Hour())
	if err != nil {
		return nil, err
	}
	return c.buildResult(req, best.Driver, best.Score, best.Components, eta, false), nil
}

func (c *Coordinator) buildResult(req models.RideRequest, d models.Driver, score float64, components models.ScoreComponents, eta float64, emergency bool) *models.DispatchResult {
	return &models.DispatchResult{
		DriverID:            d.ID,
		EstimatedPickupTime: round1(eta),
		DispatchScore:       round2(score),
		DispatchReason:      dispatchReason(components),
		UserMessage:         userMessage(eta, req),
		Components:          components,
		Emergency:           emergency,
	}
}

// dispatchReason names which sub-scores drove the decision.
func dispatchReason(c models.ScoreComponents) string {
	var reasons []string
	if c.Urgency > 70 {
		reasons = append(reasons, "priority dispatch")
	}
	if c.Efficiency > 80 {
		reasons = append(reasons, "optimal route")
	}
	if c.Fairness > 60 {
		reasons = append(reasons, "service balance")
	}
	if len(reasons) == 0 {
		return "composite optimization"
	}
	return strings.Join(reasons, ", ")
}

func userMessage(eta float64, req models.RideRequest) string {
	if req.Wheelchair {
		return fmt.Sprintf("A wheelchair-accessible vehicle will arrive in about %d minutes.", int(eta))
	}
	return fmt.Sprintf("A vehicle will arrive in about %d minutes.", int(eta))
}

func (c *Coordinator) claim(driverID, requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.claimed[driverID] = requestID
	observability.DriversClaimed.Set(float64(len(c.claimed)))
}

// Release frees a driver claim, e.g. after ride completion or a declined
// offer.
func (c *Coordinator) Release(driverID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claimed, driverID)
	observability.DriversClaimed.Set(float64(len(c.claimed)))
}

// Complete removes a terminal request from the active working set.
func (c *Coordinator) Complete(requestID string) {
	c.abandon(requestID)
}

func (c *Coordinator) abandon(requestID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.active, requestID)
	observability.ActiveRequests.Set(float64(len(c.active)))
}

// UpdateDriver refreshes the pool entry; a fresh "available" status also
// clears any stale claim.
func (c *Coordinator) UpdateDriver(d models.Driver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pool[d.ID] = d
	if d.Status == models.StatusAvailable {
		delete(c.claimed, d.ID)
		observability.DriversClaimed.Set(float64(len(c.claimed)))
	}
}

func (c *Coordinator) record(req models.RideRequest, res *models.DispatchResult, now time.Time) {
	rec := &models.DispatchRecord{
		RequestID: req.ID,
		UserID:    req.UserID,
		DriverID:  res.DriverID,
		Pickup:    req.PickupLocation,
		Dest:      req.Destination,
		Score:     res.DispatchScore,
		ETA:       res.EstimatedPickupTime,
		Emergency: res.Emergency,
		CreatedAt: now,
	}
	if err := c.Store.SaveDispatch(rec); err != nil {
		observability.DegradedEvents.WithLabelValues("dispatch_store").Inc()
		c.Logger.Warn("dispatch record not persisted", "request_id", req.ID, "error", err)
	}
}

func (c *Coordinator) notifyDriver(res *models.DispatchResult) {
	if c.Notifier == nil {
		return
	}
	_ = c.Notifier.Offer(res.DriverID, *res) // best-effort push
}

// BatchOptimize delegates to the configured Optimizer.
func (c *Coordinator) BatchOptimize(requests []models.RideRequest, driverIDs []string) []models.Assignment {
	return c.Optimizer.Assign(requests, driverIDs)
}

// SystemStatus reports the read-only aggregate over the working state.
func (c *Coordinator) SystemStatus(ctx context.Context) models.SystemStatus {
	c.mu.Lock()
	perPickup := make(map[string]int, len(c.active))
	for _, r := range c.active {
		perPickup[r.PickupLocation]++
	}
	activeCount := len(c.active)
	c.mu.Unlock()

	stats := make(map[string]models.LocationStatus, len(c.Geo.Tables().Locations))
	for name := range c.Geo.Tables().Locations {
		stats[name] = models.LocationStatus{
			ActiveRequests: perPickup[name],
			ServiceRate:    c.Stats.LocationServiceRate(ctx, name),
		}
	}

	load := "normal"
	if activeCount > 100 {
		load = "high"
	}
	return models.SystemStatus{
		TotalActiveRequests: activeCount,
		LocationStatistics:  stats,
		SystemLoad:          load,
		Timestamp:           c.Now(),
	}
}

// UpdateProfile acknowledges a profile update. Persistence is delegated
// to the profile store, which is a no-op until a backend is configured.
func (c *Coordinator) UpdateProfile(ctx context.Context, userID string, fields map[string]any) error {
	if err := c.Profiles.UpdateUserProfile(ctx, userID, fields); err != nil {
		return err
	}
	c.Logger.Info("profile update acknowledged", "user_id", userID, "fields", len(fields))
	return nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
