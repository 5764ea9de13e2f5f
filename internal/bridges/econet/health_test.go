package econet

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSnapshots implements SnapshotSource.
type fakeSnapshots struct {
	last  time.Time
	count uint64
}

func (f fakeSnapshots) LastUpdate() time.Time { return f.last }
func (f fakeSnapshots) UpdateCount() uint64   { return f.count }

func TestHealthReporter_Status(t *testing.T) {
	tests := []struct {
		name      string
		connected bool
		snapshots SnapshotSource
		want      HealthStatus
	}{
		{"mqtt down", false, fakeSnapshots{last: time.Now(), count: 1}, HealthDegraded},
		{"no snapshot yet", true, fakeSnapshots{}, HealthStarting},
		{"fresh snapshot", true, fakeSnapshots{last: time.Now(), count: 3}, HealthHealthy},
		{"stale snapshot", true, fakeSnapshots{last: time.Now().Add(-time.Hour), count: 3}, HealthDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMockMQTT()
			m.setConnected(tt.connected)
			h := NewHealthReporter(HealthReporterConfig{
				BridgeID:   "econet",
				Publisher:  m,
				Snapshots:  tt.snapshots,
				StaleAfter: time.Minute,
			})
			status, _ := h.Status()
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestHealthReporter_MessageAndStop(t *testing.T) {
	m := newMockMQTT()
	last := time.Now().Add(-time.Second)
	h := NewHealthReporter(HealthReporterConfig{
		BridgeID:   "econet",
		InstanceID: "inst-1",
		Version:    "1.2.3",
		Interval:   time.Hour,
		Publisher:  m,
		Snapshots:  fakeSnapshots{last: last, count: 7},
	})
	h.SetEntityCount(12)
	h.Start(context.Background())

	require.NoError(t, h.PublishNow())
	h.Stop()
	h.Stop()

	msgs := m.messagesOn(HealthTopic())
	require.Len(t, msgs, 2)

	var now, final HealthMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &now))
	require.NoError(t, json.Unmarshal(msgs[1].payload, &final))

	assert.Equal(t, HealthHealthy, now.Status)
	assert.Equal(t, 12, now.EntitiesManaged)
	assert.Equal(t, uint64(7), now.SnapshotsReceived)
	assert.Equal(t, "inst-1", now.InstanceID)
	require.NotNil(t, now.LastSnapshot)
	assert.WithinDuration(t, last, *now.LastSnapshot, time.Millisecond)
	assert.Equal(t, HealthStopping, final.Status)
}

func TestHealthReporter_LWT(t *testing.T) {
	h := NewHealthReporter(HealthReporterConfig{BridgeID: "econet"})

	payload, err := h.LWTPayload()
	require.NoError(t, err)
	var msg HealthMessage
	require.NoError(t, json.Unmarshal(payload, &msg))

	assert.Equal(t, HealthOffline, msg.Status)
	assert.Equal(t, HealthTopic(), h.LWTTopic())
	assert.NoError(t, h.PublishNow())
}
