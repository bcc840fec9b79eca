package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/meinhoongagan/clinic-booking/models"
	"github.com/meinhoongagan/clinic-booking/scheduling"
)

// ErrMiss is returned by ScheduleCache.Get when nothing is cached.
var ErrMiss = errors.New("cache miss")

type cachedSchedule struct {
	Schedule    models.ClinicSchedule `json:"schedule"`
	SlotMinutes int                   `json:"slot_minutes"`
}

// ScheduleCache keeps clinic schedules in redis as JSON.
type ScheduleCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewScheduleCache(client *redis.Client, ttl time.Duration) *ScheduleCache {
	return &ScheduleCache{redis: client, ttl: ttl}
}

func (c *ScheduleCache) key(clinicID string) string {
	return fmt.Sprintf("clinic:schedule:%s", clinicID)
}

func (c *ScheduleCache) Get(ctx context.Context, clinicID string) (models.ClinicSchedule, int, error) {
	data, err := c.redis.Get(ctx, c.key(clinicID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.ClinicSchedule{}, 0, ErrMiss
	}
	if err != nil {
		return models.ClinicSchedule{}, 0, fmt.Errorf("cache: get schedule: %w", err)
	}

	var entry cachedSchedule
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.ClinicSchedule{}, 0, fmt.Errorf("cache: unmarshal schedule: %w", err)
	}
	return entry.Schedule, entry.SlotMinutes, nil
}

func (c *ScheduleCache) Set(ctx context.Context, clinicID string, schedule models.ClinicSchedule, slotMinutes int) error {
	data, err := json.Marshal(cachedSchedule{Schedule: schedule, SlotMinutes: slotMinutes})
	if err != nil {
		return fmt.Errorf("cache: marshal schedule: %w", err)
	}
	if err := c.redis.Set(ctx, c.key(clinicID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set schedule: %w", err)
	}
	return nil
}

func (c *ScheduleCache) Invalidate(ctx context.Context, clinicID string) error {
	if c == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(clinicID)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate schedule: %w", err)
	}
	return nil
}

// CachedStore reads clinic schedules through the cache and delegates
// everything else. Redis failures fall back to the store; they are logged,
// never surfaced.
type CachedStore struct {
	scheduling.Store
	cache *ScheduleCache
	log   zerolog.Logger
}

func NewCachedStore(store scheduling.Store, cache *ScheduleCache, log zerolog.Logger) *CachedStore {
	return &CachedStore{Store: store, cache: cache, log: log}
}

func (s *CachedStore) FetchClinicSchedule(ctx context.Context, clinicID string) (models.ClinicSchedule, int, error) {
	schedule, slotMinutes, err := s.cache.Get(ctx, clinicID)
	if err == nil {
		return schedule, slotMinutes, nil
	}
	if !errors.Is(err, ErrMiss) {
		s.log.Warn().Err(err).Str("clinic_id", clinicID).Msg("schedule cache read failed")
	}

	schedule, slotMinutes, err = s.Store.FetchClinicSchedule(ctx, clinicID)
	if err != nil {
		return schedule, slotMinutes, err
	}
	if err := s.cache.Set(ctx, clinicID, schedule, slotMinutes); err != nil {
		s.log.Warn().Err(err).Str("clinic_id", clinicID).Msg("schedule cache write failed")
	}
	return schedule, slotMinutes, nil
}
