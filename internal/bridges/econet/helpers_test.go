package econet

import (
	"context"
	"fmt"
	"sync"
)

// newTestCoordinator returns a coordinator holding one snapshot.
func newTestCoordinator(reg, sys, edits Params) *DataCoordinator {
	c := NewDataCoordinator()
	c.Update(&Snapshot{RegParams: reg, SysParams: sys, ParamsEdits: edits})
	return c
}

func testEntry(c Coordinator) Entry {
	return Entry{
		ID:          "entry-1",
		Coordinator: c,
		Controller: ControllerInfo{
			UID:             "abc123",
			Host:            "http://192.168.1.50",
			Model:           "ecoNET300",
			ModelID:         "ecoMAX810P-L",
			SoftwareVersion: "3.2.3879",
			HardwareVersion: "1.0",
		},
	}
}

// tablesWithMixers copies DefaultTables with a different mixer catalogue.
func tablesWithMixers(mixers map[int][]string) *Tables {
	t := *DefaultTables
	t.MixerKeys = mixers
	return &t
}

func keysOf(sensors []*Sensor) []string {
	out := make([]string, 0, len(sensors))
	for _, s := range sensors {
		out = append(out, s.Key())
	}
	return out
}

// recordingWriter implements StateWriter.
type recordingWriter struct {
	mu     sync.Mutex
	writes []any
}

func (w *recordingWriter) WriteState(s *Sensor) {
	v, _ := s.Value()
	w.mu.Lock()
	w.writes = append(w.writes, v)
	w.mu.Unlock()
}

func (w *recordingWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.writes)
}

// logEntry is one call captured by recordingLogger.
type logEntry struct {
	level string
	msg   string
	kv    []any
}

// recordingLogger implements Logger.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, kv []any) {
	l.mu.Lock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, kv: kv})
	l.mu.Unlock()
}

func (l *recordingLogger) Debug(msg string, kv ...any) { l.add("debug", msg, kv) }
func (l *recordingLogger) Info(msg string, kv ...any)  { l.add("info", msg, kv) }
func (l *recordingLogger) Warn(msg string, kv ...any)  { l.add("warn", msg, kv) }
func (l *recordingLogger) Error(msg string, kv ...any) { l.add("error", msg, kv) }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

// publishedMessage is one captured MQTT publish.
type publishedMessage struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// mockMQTT implements MQTTClient and Publisher.
type mockMQTT struct {
	mu         sync.Mutex
	connected  bool
	published  []publishedMessage
	handlers   map[string]func(topic string, payload []byte)
	publishErr error
}

func newMockMQTT() *mockMQTT {
	return &mockMQTT{
		connected: true,
		handlers:  make(map[string]func(string, []byte)),
	}
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMessage{topic: topic, payload: payload, qos: qos, retained: retained})
	return nil
}

func (m *mockMQTT) Subscribe(topic string, _ byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[topic] = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *mockMQTT) setConnected(c bool) {
	m.mu.Lock()
	m.connected = c
	m.mu.Unlock()
}

// simulate delivers payload to the handler subscribed on topic.
func (m *mockMQTT) simulate(topic string, payload []byte) error {
	m.mu.Lock()
	h, ok := m.handlers[topic]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("no handler for %s", topic)
	}
	h(topic, payload)
	return nil
}

// messagesOn returns messages published to topic, in order.
func (m *mockMQTT) messagesOn(topic string) []publishedMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedMessage
	for _, p := range m.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// recordingObserver implements Observer.
type recordingObserver struct {
	mu       sync.Mutex
	added    []string
	readings []Reading
}

func (o *recordingObserver) EntityAdded(_ context.Context, s *Sensor) {
	o.mu.Lock()
	o.added = append(o.added, s.UniqueID())
	o.mu.Unlock()
}

func (o *recordingObserver) StateWritten(_ context.Context, r Reading) {
	o.mu.Lock()
	o.readings = append(o.readings, r)
	o.mu.Unlock()
}

func (o *recordingObserver) snapshot() ([]string, []Reading) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.added...), append([]Reading(nil), o.readings...)
}
