package profiles

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/example/accessible-dispatch/internal/models"
)

// RedisStore reads profiles from the hash layout the ingestion pipeline
// maintains: user:profile:<id> and driver:profile:<id>.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr, password string) *RedisStore {
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: addr, Password: password})}
}

func userKey(id string) string   { return "user:profile:" + id }
func driverKey(id string) string { return "driver:profile:" + id }

func (s *RedisStore) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	m, err := s.client.HGetAll(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	p := &models.UserProfile{UserID: userID, ReliabilityScore: 1.0}
	if v, ok := m["total_rides"]; ok {
		p.TotalRides, _ = strconv.Atoi(v)
	}
	if v, ok := m["avg_waiting_time"]; ok {
		p.AvgWaitingTime, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["reliability_score"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.ReliabilityScore = f
		}
	}
	if v, ok := m["wheelchair_user"]; ok {
		p.WheelchairUser = v == "true"
	}
	if v, ok := m["special_needs"]; ok && v != "" {
		p.SpecialNeeds = strings.Split(v, ",")
	}
	return p, nil
}

func (s *RedisStore) GetDriverProfile(ctx context.Context, driverID string) (*models.DriverProfile, error) {
	m, err := s.client.HGetAll(ctx, driverKey(driverID)).Result()
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}
	p := &models.DriverProfile{DriverID: driverID, ServiceScore: 1.0}
	if v, ok := m["wheelchair_capable"]; ok {
		p.WheelchairCapable = v == "true"
	}
	if v, ok := m["service_score"]; ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			p.ServiceScore = f
		}
	}
	if v, ok := m["avg_pickup_time"]; ok {
		p.AvgPickupTime, _ = strconv.ParseFloat(v, 64)
	}
	if v, ok := m["completed_rides"]; ok {
		p.CompletedRides, _ = strconv.Atoi(v)
	}
	if v, ok := m["specialty_areas"]; ok && v != "" {
		p.SpecialtyAreas = strings.Split(v, ",")
	}
	return p, nil
}

func (s *RedisStore) UpdateUserProfile(ctx context.Context, userID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	vals := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		vals[k] = v
	}
	return s.client.HSet(ctx, userKey(userID), vals).Err()
}

// RedisStats serves fleet aggregates from counters the trip pipeline keeps.
// Missing keys fall back to the static reference values.
type RedisStats struct {
	client   *redis.Client
	fallback StaticStats
}

func NewRedisStats(addr, password string) *RedisStats {
	return &RedisStats{
		client:   redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		fallback: DefaultStats(),
	}
}

func (s *RedisStats) LocationServiceRate(ctx context.Context, location string) float64 {
	v, err := s.client.Get(ctx, "stats:service_rate:"+location).Float64()
	if err != nil {
		return s.fallback.ServiceRate
	}
	return v
}

func (s *RedisStats) DriverDailyRides(ctx context.Context, driverID string) int {
	v, err := s.client.Get(ctx, "stats:daily_rides:"+driverID).Int()
	if err != nil {
		return s.fallback.DailyRides
	}
	return v
}

func (s *RedisStats) AverageDailyRides(ctx context.Context) float64 {
	v, err := s.client.Get(ctx, "stats:daily_rides_avg").Float64()
	if err != nil {
		return s.fallback.AvgRides
	}
	return v
}

func (s *RedisStats) DriverFatigue(ctx context.Context, driverID string) float64 {
	v, err := s.client.Get(ctx, "stats:fatigue:"+driverID).Float64()
	if err != nil {
		return s.fallback.Fatigue
	}
	return v
}
