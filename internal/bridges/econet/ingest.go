package econet

import "fmt"

// handleMQTTMessage is the subscription callback for the snapshot topic.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	if err := b.HandleSnapshot(topic, payload); err != nil {
		b.logError("snapshot rejected", err)
	}
}

// HandleSnapshot decodes a snapshot payload and hands it to the coordinator.
// The first accepted snapshot triggers Setup, which registers every
// resolvable entity with the platform; later snapshots refresh the
// registered entities through coordinator listeners.
//
// Parameters:
//   - topic: topic the payload arrived on (used in errors)
//   - payload: JSON snapshot
//
// Returns:
//   - error: wraps ErrInvalidSnapshot or ErrEmptySnapshot; the current
//     snapshot is kept
func (b *Bridge) HandleSnapshot(topic string, payload []byte) error {
	snap, err := DecodeSnapshot(payload)
	if err != nil {
		b.rejected.Add(1)
		return fmt.Errorf("topic %s: %w", topic, err)
	}

	b.coordinator.Update(snap)

	b.setupOnce.Do(func() {
		Setup(b.ctx, b.Entry(), b.platform.AddEntities)
		b.ready.Store(true)
		b.health.SetEntityCount(b.platform.Count())
		if err := b.health.PublishNow(); err != nil {
			b.logError("failed to publish health", err)
		}
	})

	return nil
}
