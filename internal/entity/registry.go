package entity

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry wraps a Repository with an in-memory cache keyed by unique id.
//
// The cache is loaded by RefreshCache on startup and kept in sync by every
// write. All public methods are thread-safe and return copies.
type Registry struct {
	repo    Repository
	cache   map[string]Sensor
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new sensor registry.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]Sensor),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all sensors from the repository.
func (r *Registry) RefreshCache(ctx context.Context) error {
	sensors, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading sensors: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]Sensor, len(sensors))
	for _, s := range sensors {
		r.cache[s.UniqueID] = s
	}

	r.logger.Info("sensor cache refreshed", "count", len(sensors))
	return nil
}

// Register persists a sensor record and caches it. The creation time of
// an already known sensor is preserved.
func (r *Registry) Register(ctx context.Context, s Sensor) error {
	r.cacheMu.RLock()
	existing, known := r.cache[s.UniqueID]
	r.cacheMu.RUnlock()

	if known {
		s.CreatedAt = existing.CreatedAt
		if !s.UpdatedAt.Valid {
			s.LastValue, s.LastText, s.UpdatedAt = existing.LastValue, existing.LastText, existing.UpdatedAt
		}
	}

	if err := r.repo.Upsert(ctx, &s); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[s.UniqueID] = s
	r.cacheMu.Unlock()

	r.logger.Debug("sensor registered", "unique_id", s.UniqueID, "kind", s.Kind)
	return nil
}

// RecordValue stores the latest state of a registered sensor.
// Returns ErrSensorNotFound for an unknown unique id.
func (r *Registry) RecordValue(ctx context.Context, uniqueID string, value any, at time.Time) error {
	r.cacheMu.RLock()
	s, ok := r.cache[uniqueID]
	r.cacheMu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSensorNotFound, uniqueID)
	}

	s.SetValue(value, at)
	if err := r.repo.UpdateValue(ctx, uniqueID, s.LastValue, s.LastText, at); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[uniqueID] = s
	r.cacheMu.Unlock()
	return nil
}

// Get returns a sensor by unique id, falling back to the repository on a
// cache miss.
func (r *Registry) Get(ctx context.Context, uniqueID string) (Sensor, error) {
	r.cacheMu.RLock()
	s, ok := r.cache[uniqueID]
	r.cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	found, err := r.repo.GetByID(ctx, uniqueID)
	if err != nil {
		return Sensor{}, err
	}

	r.cacheMu.Lock()
	r.cache[uniqueID] = *found
	r.cacheMu.Unlock()
	return *found, nil
}

// List returns all cached sensors ordered by kind, mixer number and key.
func (r *Registry) List() []Sensor {
	r.cacheMu.RLock()
	sensors := make([]Sensor, 0, len(r.cache))
	for _, s := range r.cache {
		sensors = append(sensors, s)
	}
	r.cacheMu.RUnlock()

	sortSensors(sensors)
	return sensors
}

// ListByKind returns the cached sensors of one kind.
func (r *Registry) ListByKind(kind econet.Kind) []Sensor {
	all := r.List()
	return slices.DeleteFunc(all, func(s Sensor) bool { return s.Kind != kind })
}

// Delete removes a sensor from the repository and the cache.
func (r *Registry) Delete(ctx context.Context, uniqueID string) error {
	if err := r.repo.Delete(ctx, uniqueID); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, uniqueID)
	r.cacheMu.Unlock()
	return nil
}

// Count returns the number of cached sensors.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Stats summarises the registry.
type Stats struct {
	Total        int                 `json:"total"`
	ByKind       map[econet.Kind]int `json:"by_kind"`
	WithValue    int                 `json:"with_value"`
	LastUpdateAt *time.Time          `json:"last_update_at,omitempty"`
}

// GetStats returns sensor counts per kind and the most recent update time.
func (r *Registry) GetStats() Stats {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	stats := Stats{Total: len(r.cache), ByKind: make(map[econet.Kind]int)}
	for _, s := range r.cache {
		stats.ByKind[s.Kind]++
		if !s.UpdatedAt.Valid {
			continue
		}
		stats.WithValue++
		if stats.LastUpdateAt == nil || s.UpdatedAt.Time.After(*stats.LastUpdateAt) {
			t := s.UpdatedAt.Time
			stats.LastUpdateAt = &t
		}
	}
	return stats
}

var kindOrder = map[econet.Kind]int{
	econet.KindController: 0,
	econet.KindMixer:      1,
	econet.KindLambda:     2,
}

func sortSensors(sensors []Sensor) {
	slices.SortFunc(sensors, func(a, b Sensor) int {
		return cmp.Or(
			cmp.Compare(kindOrder[a.Kind], kindOrder[b.Kind]),
			cmp.Compare(a.SubIndex, b.SubIndex),
			cmp.Compare(a.Key, b.Key),
		)
	})
}
