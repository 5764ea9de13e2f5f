package econet

import (
	"regexp"
	"slices"
	"strings"
)

// SensorDescriptor is the immutable metadata record of one sensor entity.
// It is built once per entity by BuildDescriptor and never mutated.
//
// Defaults for keys absent from a table:
//   - Icon, Unit, DeviceClass, EntityCategory, Options: empty
//   - Precision: 0
//   - StateClass: StateClassMeasurement
//   - Transform: the fallback passed to BuildDescriptor, or Identity
type SensorDescriptor struct {
	Key            string
	TranslationKey string
	Icon           string
	Unit           string
	DeviceClass    string
	Precision      int
	EntityCategory string
	StateClass     string
	Options        []string
	Transform      Transform
}

// Apply runs the descriptor's transform on raw.
func (d SensorDescriptor) Apply(raw any) any {
	if d.Transform == nil {
		return raw
	}
	return d.Transform(raw)
}

// BuildDescriptor builds the descriptor for key from DefaultTables.
//
// Parameters:
//   - key: ecoNET register key (e.g. "tempCO")
//   - fallback: transform used when the key has no table processor (nil means Identity)
//
// Returns:
//   - SensorDescriptor: never fails; misses yield the documented defaults
func BuildDescriptor(key string, fallback Transform) SensorDescriptor {
	return DefaultTables.Descriptor(key, fallback)
}

// Descriptor builds the descriptor for key from t. Each field is an
// independent lookup; see SensorDescriptor for the defaults.
func (t *Tables) Descriptor(key string, fallback Transform) SensorDescriptor {
	stateClass, ok := t.StateClasses[key]
	if !ok {
		stateClass = StateClassMeasurement
	}

	transform := t.Transforms[key]
	if transform == nil {
		transform = fallback
	}
	if transform == nil {
		transform = Identity
	}

	return SensorDescriptor{
		Key:            key,
		TranslationKey: CamelToSnake(key),
		Icon:           t.Icons[key],
		Unit:           t.Units[key],
		DeviceClass:    t.DeviceClasses[key],
		Precision:      t.Precisions[key],
		EntityCategory: t.Categories[key],
		StateClass:     stateClass,
		Options:        slices.Clone(t.Options[key]),
		Transform:      transform,
	}
}

var (
	camelWordBoundary  = regexp.MustCompile(`(.)([A-Z][a-z]+)`)
	camelUpperBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

// CamelToSnake converts a camelCase register key to snake_case.
// Runs of capitals are kept together: "tempCWUSet" becomes "temp_cwu_set".
func CamelToSnake(key string) string {
	s := camelWordBoundary.ReplaceAllString(key, "${1}_${2}")
	s = camelUpperBoundary.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}
