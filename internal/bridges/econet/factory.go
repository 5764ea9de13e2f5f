package econet

import "context"

// Entry is the shared state handed to the factories: the coordinator, the
// controller identity and optional overrides.
type Entry struct {
	// ID identifies the configuration entry (stable across restarts).
	ID string

	// Coordinator supplies the snapshot. Required.
	Coordinator Coordinator

	// Controller identifies the connected ecoNET300.
	Controller ControllerInfo

	// Tables overrides the metadata catalogue. Nil means DefaultTables.
	Tables *Tables

	// Logger is optional; nil disables logging.
	Logger Logger
}

// Constructor builds the entity for a descriptor. It selects the entity
// kind (controller, mixer or lambda).
type Constructor func(desc SensorDescriptor, entry Entry) *Sensor

// KeyFilter decides whether a key may become an entity.
type KeyFilter func(key string) bool

// AddEntitiesFunc hands created entities to the host platform.
type AddEntitiesFunc func(sensors []*Sensor)

// createOptions configures CreateSensors.
type createOptions struct {
	transform   Transform
	filter      KeyFilter
	constructor Constructor
}

// CreateOption configures CreateSensors.
type CreateOption func(*createOptions)

// WithTransform sets the fallback transform for keys that have no table
// processor.
func WithTransform(t Transform) CreateOption {
	return func(o *createOptions) {
		o.transform = t
	}
}

// WithFilter sets the predicate a key must satisfy before it is resolved.
func WithFilter(f KeyFilter) CreateOption {
	return func(o *createOptions) {
		o.filter = f
	}
}

// WithConstructor sets the entity constructor.
func WithConstructor(c Constructor) CreateOption {
	return func(o *createOptions) {
		o.constructor = c
	}
}

// CreateSensors builds one entity per key that passes the filter and
// currently resolves to a value.
//
// A key resolves to regParams[key], falling back to sysParams[key] when the
// regParams value is nil, false, zero or empty. Keys failing the filter or
// resolving to nil are logged at warn and skipped; this is the only
// recoverable condition and it is never returned as an error.
//
// Parameters:
//   - keys: register keys in the order entities should be created
//   - entry: coordinator, controller identity and optional tables/logger
//   - opts: WithTransform (default Identity), WithFilter (default accept all),
//     WithConstructor (default NewControllerSensor)
//
// Returns:
//   - []*Sensor: at most len(keys) entities, in key order
func CreateSensors(keys []string, entry Entry, opts ...CreateOption) []*Sensor {
	o := createOptions{
		transform:   Identity,
		filter:      func(string) bool { return true },
		constructor: NewControllerSensor,
	}
	for _, opt := range opts {
		opt(&o)
	}

	tables := tablesOrDefault(entry.Tables)
	logger := loggerOrNoop(entry.Logger)
	data := entry.Coordinator.Data()

	sensors := make([]*Sensor, 0, len(keys))
	for _, key := range keys {
		if !o.filter(key) {
			logger.Warn("key does not meet filter condition", "key", key)
			continue
		}

		value := ResolveTruthy(data.RegParams.Get(key), data.SysParams.Get(key))
		if value == nil {
			logger.Warn("key has no value in regParams or sysParams, skipping entity", "key", key)
			continue
		}

		desc := tables.Descriptor(key, o.transform)
		logger.Debug("created sensor descriptor",
			"key", key,
			"unit", desc.Unit,
			"device_class", desc.DeviceClass,
			"state_class", desc.StateClass)

		sensors = append(sensors, o.constructor(desc, entry))
		logger.Debug("created entity", "key", key)
	}

	return sensors
}

// CreateControllerSensors builds the controller entities from the catalogue's
// controller key set.
func CreateControllerSensors(entry Entry) []*Sensor {
	tables := tablesOrDefault(entry.Tables)
	return CreateSensors(tables.Controller(), entry,
		WithTransform(Identity),
		WithConstructor(NewControllerSensor))
}

// CreateMixerSensors builds one entity per mixer circuit, in ascending mixer
// order. A mixer qualifies when every one of its dependent keys is non-null
// in regParams; sysParams is not consulted for this check. The entity reads
// the mixer's primary (first) dependent key and is tagged with the mixer
// number.
func CreateMixerSensors(entry Entry) []*Sensor {
	tables := tablesOrDefault(entry.Tables)
	logger := loggerOrNoop(entry.Logger)
	data := entry.Coordinator.Data()

	keys := make([]string, 0, len(tables.MixerKeys))
	mixerOf := make(map[string]int, len(tables.MixerKeys))
	subKeysOf := make(map[string][]string, len(tables.MixerKeys))
	for _, n := range tables.MixerNumbers() {
		subKeys := tables.MixerSubKeys(n)
		if len(subKeys) == 0 {
			continue
		}
		primary := subKeys[0]
		if _, dup := mixerOf[primary]; dup {
			continue
		}
		keys = append(keys, primary)
		mixerOf[primary] = n
		subKeysOf[primary] = subKeys
	}

	available := func(key string) bool {
		logger.Debug("checking if mixer can be added", "key", key, "mixer", mixerOf[key])
		for _, k := range subKeysOf[key] {
			if data.RegParams.Get(k) == nil {
				return false
			}
		}
		return true
	}

	construct := func(desc SensorDescriptor, e Entry) *Sensor {
		return NewMixerSensor(desc, e, mixerOf[desc.Key])
	}

	return CreateSensors(keys, entry,
		WithTransform(Identity),
		WithFilter(available),
		WithConstructor(construct))
}

// CreateLambdaSensors builds the lambda probe entities, scaling each value
// by 1/10. Returns an empty slice unless sysParams reports a lambda module
// firmware version.
func CreateLambdaSensors(entry Entry) []*Sensor {
	logger := loggerOrNoop(entry.Logger)
	if entry.Coordinator.Data().SysParams.Get(LambdaVersionKey) == nil {
		logger.Info("lambda module not reported, no lambda sensors will be created",
			"key", LambdaVersionKey)
		return []*Sensor{}
	}

	tables := tablesOrDefault(entry.Tables)
	return CreateSensors(tables.Lambda(), entry,
		WithTransform(DivideBy(10)),
		WithConstructor(NewLambdaSensor))
}

// Setup gathers controller, mixer and lambda entities, in that order, and
// hands them to register in a single call. The list may be empty.
//
// Parameters:
//   - entry: shared coordinator and controller identity
//   - register: host callback, invoked exactly once
//
// Returns:
//   - bool: always true
func Setup(_ context.Context, entry Entry, register AddEntitiesFunc) bool {
	sensors := make([]*Sensor, 0)
	sensors = append(sensors, CreateControllerSensors(entry)...)
	sensors = append(sensors, CreateMixerSensors(entry)...)
	sensors = append(sensors, CreateLambdaSensors(entry)...)

	loggerOrNoop(entry.Logger).Info("econet entities gathered",
		"entry_id", entry.ID,
		"count", len(sensors))

	register(sensors)
	return true
}
