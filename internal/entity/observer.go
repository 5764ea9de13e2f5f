package entity

import (
	"context"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
)

// Observer records econet platform events in a Registry.
// It implements econet.Observer.
type Observer struct {
	registry *Registry
	entryID  string
}

var _ econet.Observer = (*Observer)(nil)

// NewObserver creates an observer that registers sensors under entryID.
func NewObserver(registry *Registry, entryID string) *Observer {
	return &Observer{registry: registry, entryID: entryID}
}

// EntityAdded persists the sensor's metadata.
func (o *Observer) EntityAdded(ctx context.Context, s *econet.Sensor) {
	if err := o.registry.Register(ctx, FromSensor(o.entryID, s)); err != nil {
		o.registry.logger.Error("failed to register sensor",
			"unique_id", s.UniqueID(),
			"error", err,
		)
	}
}

// StateWritten persists the sensor's latest state.
func (o *Observer) StateWritten(ctx context.Context, r econet.Reading) {
	if err := o.registry.RecordValue(ctx, r.UniqueID, r.Value, r.Timestamp); err != nil {
		o.registry.logger.Warn("failed to record sensor value",
			"unique_id", r.UniqueID,
			"error", err,
		)
	}
}
