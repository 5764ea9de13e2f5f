package econet

import (
	"fmt"
	"sync"
	"time"
)

// Device identity constants.
const (
	// Domain identifies this integration in device identifiers and topics.
	Domain = "econet300"

	// Manufacturer is reported on every device block.
	Manufacturer = "PLUM"

	// ControllerDeviceName is the display name of the controller device.
	ControllerDeviceName = "PLUM ecoNET300"

	// LambdaDeviceName is the display name of the lambda probe module.
	LambdaDeviceName = "Module Lambda"
)

// Kind tags which device a sensor belongs to.
type Kind string

const (
	// KindController is a sensor on the controller device itself.
	KindController Kind = "controller"

	// KindMixer is a sensor on one mixer circuit.
	KindMixer Kind = "mixer"

	// KindLambda is a sensor on the lambda probe module.
	KindLambda Kind = "lambda"
)

// ControllerInfo is the identity of the connected controller, as reported
// by the poller and the bridge configuration.
type ControllerInfo struct {
	UID             string
	Host            string
	Model           string
	ModelID         string
	SoftwareVersion string
	HardwareVersion string
}

// DeviceInfo is the device block attached to every entity.
type DeviceInfo struct {
	Identifiers      []string `json:"identifiers"`
	Name             string   `json:"name"`
	Manufacturer     string   `json:"manufacturer,omitempty"`
	Model            string   `json:"model,omitempty"`
	ModelID          string   `json:"model_id,omitempty"`
	ConfigurationURL string   `json:"configuration_url,omitempty"`
	SoftwareVersion  string   `json:"sw_version,omitempty"`
	HardwareVersion  string   `json:"hw_version,omitempty"`
	ViaDevice        string   `json:"via_device,omitempty"`
}

// StateWriter receives a sensor after every state change.
// The host platform implements it to publish the new value.
type StateWriter interface {
	WriteState(s *Sensor)
}

// Sensor is one telemetry entity. The descriptor, kind and sub-index are
// fixed at construction; the value changes only through SyncState.
//
// Thread Safety: All methods are safe for concurrent use.
type Sensor struct {
	desc        SensorDescriptor
	kind        Kind
	subIndex    int
	coordinator Coordinator
	info        ControllerInfo
	logger      Logger

	mu             sync.RWMutex
	value          any
	hasValue       bool
	updatedAt      time.Time
	writer         StateWriter
	removeListener func()
}

// NewControllerSensor constructs a sensor on the controller device.
func NewControllerSensor(desc SensorDescriptor, entry Entry) *Sensor {
	return newSensor(desc, KindController, 0, entry)
}

// NewLambdaSensor constructs a sensor on the lambda probe module.
func NewLambdaSensor(desc SensorDescriptor, entry Entry) *Sensor {
	return newSensor(desc, KindLambda, 0, entry)
}

// NewMixerSensor constructs a sensor on mixer circuit n.
func NewMixerSensor(desc SensorDescriptor, entry Entry, n int) *Sensor {
	return newSensor(desc, KindMixer, n, entry)
}

func newSensor(desc SensorDescriptor, kind Kind, subIndex int, entry Entry) *Sensor {
	return &Sensor{
		desc:        desc,
		kind:        kind,
		subIndex:    subIndex,
		coordinator: entry.Coordinator,
		info:        entry.Controller,
		logger:      loggerOrNoop(entry.Logger),
	}
}

// Descriptor returns the sensor's metadata.
func (s *Sensor) Descriptor() SensorDescriptor {
	return s.desc
}

// Key returns the register key the sensor reads.
func (s *Sensor) Key() string {
	return s.desc.Key
}

// Kind returns the device kind the sensor belongs to.
func (s *Sensor) Kind() Kind {
	return s.kind
}

// SubIndex returns the mixer number for mixer sensors and 0 otherwise.
func (s *Sensor) SubIndex() int {
	return s.subIndex
}

// UniqueID returns the stable entity id "<uid>-<key>".
func (s *Sensor) UniqueID() string {
	return fmt.Sprintf("%s-%s", s.info.UID, s.desc.Key)
}

// Name returns the entity display name, which is its translation key.
func (s *Sensor) Name() string {
	return s.desc.TranslationKey
}

// Value returns the current value and whether one has been set.
func (s *Sensor) Value() (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.hasValue
}

// UpdatedAt returns when the value last changed, or the zero time.
func (s *Sensor) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

// DeviceInfo returns the device block for the sensor's kind.
func (s *Sensor) DeviceInfo() DeviceInfo {
	switch s.kind {
	case KindMixer:
		return DeviceInfo{
			Identifiers:      []string{fmt.Sprintf("%s-mixer-%d", s.info.UID, s.subIndex)},
			Name:             fmt.Sprintf("Mixer %d", s.subIndex),
			Manufacturer:     Manufacturer,
			Model:            s.info.Model,
			ModelID:          s.info.ModelID,
			ConfigurationURL: s.info.Host,
			SoftwareVersion:  s.info.SoftwareVersion,
			ViaDevice:        s.info.UID,
		}
	case KindLambda:
		return DeviceInfo{
			Identifiers:      []string{s.info.UID + "lambda"},
			Name:             LambdaDeviceName,
			Manufacturer:     Manufacturer,
			Model:            s.info.Model,
			ConfigurationURL: s.info.Host,
			SoftwareVersion:  s.info.SoftwareVersion,
			ViaDevice:        s.info.UID,
		}
	default:
		return DeviceInfo{
			Identifiers:      []string{s.info.UID},
			Name:             ControllerDeviceName,
			Manufacturer:     Manufacturer,
			Model:            s.info.Model,
			ModelID:          s.info.ModelID,
			ConfigurationURL: s.info.Host,
			SoftwareVersion:  s.info.SoftwareVersion,
			HardwareVersion:  s.info.HardwareVersion,
		}
	}
}

// SyncState applies the descriptor's transform to raw, stores the result and
// notifies the attached StateWriter. It is the only mutation path after
// construction.
func (s *Sensor) SyncState(raw any) {
	value := s.desc.Apply(raw)

	s.mu.Lock()
	s.value = value
	s.hasValue = true
	s.updatedAt = time.Now().UTC()
	writer := s.writer
	s.mu.Unlock()

	if writer != nil {
		writer.WriteState(s)
	}
}

// HandleCoordinatorUpdate re-reads the sensor's key after a snapshot update.
// Resolution order is sysParams, regParams, paramsEdits with the truthy
// fallback rule; an unresolved key keeps the previous value.
func (s *Sensor) HandleCoordinatorUpdate() {
	data := s.coordinator.Data()
	key := s.desc.Key

	value := ResolveTruthy(data.SysParams.Get(key), data.RegParams.Get(key), data.ParamsEdits.Get(key))
	if value == nil {
		s.logger.Debug("sensor value unavailable", "key", key, "unique_id", s.UniqueID())
		return
	}
	s.SyncState(value)
}

// AttachTo connects the sensor to its host: subsequent state changes are
// written to w and coordinator updates refresh the value. The initial value
// is the first non-null of sysParams, regParams and paramsEdits; when none
// has the key a warning lists the available keys and no sync happens.
//
// Calling AttachTo again replaces the writer and the listener.
func (s *Sensor) AttachTo(w StateWriter) {
	remove := s.coordinator.AddListener(s.HandleCoordinatorUpdate)

	s.mu.Lock()
	previous := s.removeListener
	s.writer = w
	s.removeListener = remove
	s.mu.Unlock()

	if previous != nil {
		previous()
	}

	data := s.coordinator.Data()
	key := s.desc.Key
	value := ResolveNonNil(data.SysParams.Get(key), data.RegParams.Get(key), data.ParamsEdits.Get(key))
	if value == nil {
		s.logger.Warn("sensor key not found in any parameter source",
			"key", key,
			"sys_params", data.SysParams.Keys(),
			"reg_params", data.RegParams.Keys(),
			"params_edits", data.ParamsEdits.Keys())
		return
	}
	s.SyncState(value)
}

// Detach stops coordinator updates and releases the writer.
func (s *Sensor) Detach() {
	s.mu.Lock()
	remove := s.removeListener
	s.removeListener = nil
	s.writer = nil
	s.mu.Unlock()

	if remove != nil {
		remove()
	}
}
