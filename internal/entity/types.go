package entity

import (
	"fmt"
	"time"

	"github.com/guregu/null"

	"github.com/nerrad567/econet-bridge/internal/bridges/econet"
)

// Sensor is the persisted record of one econet sensor entity.
//
// LastValue holds numeric and boolean states, LastText holds enum states
// such as "heating". Both are null until the first state write.
type Sensor struct {
	UniqueID       string      `json:"unique_id"`
	EntryID        string      `json:"entry_id"`
	Key            string      `json:"key"`
	TranslationKey string      `json:"translation_key"`
	Kind           econet.Kind `json:"kind"`
	SubIndex       int         `json:"sub_index,omitempty"`
	Unit           string      `json:"unit,omitempty"`
	DeviceClass    string      `json:"device_class,omitempty"`
	StateClass     string      `json:"state_class,omitempty"`
	EntityCategory string      `json:"entity_category,omitempty"`
	Icon           string      `json:"icon,omitempty"`
	Precision      int         `json:"precision"`
	LastValue      null.Float  `json:"last_value"`
	LastText       null.String `json:"last_text"`
	UpdatedAt      null.Time   `json:"updated_at"`
	CreatedAt      time.Time   `json:"created_at"`
}

// FromSensor builds a record from a live entity. The entity's current
// value, if any, is carried over.
func FromSensor(entryID string, s *econet.Sensor) Sensor {
	desc := s.Descriptor()
	rec := Sensor{
		UniqueID:       s.UniqueID(),
		EntryID:        entryID,
		Key:            s.Key(),
		TranslationKey: desc.TranslationKey,
		Kind:           s.Kind(),
		SubIndex:       s.SubIndex(),
		Unit:           desc.Unit,
		DeviceClass:    desc.DeviceClass,
		StateClass:     desc.StateClass,
		EntityCategory: desc.EntityCategory,
		Icon:           desc.Icon,
		Precision:      desc.Precision,
	}
	if value, ok := s.Value(); ok {
		rec.SetValue(value, s.UpdatedAt())
	}
	return rec
}

// SetValue stores a transformed state value.
//
// Numbers go to LastValue, booleans to LastValue as 0/1, strings to
// LastText. Other values are stored as text via fmt. nil clears both.
func (s *Sensor) SetValue(value any, at time.Time) {
	s.LastValue = null.Float{}
	s.LastText = null.String{}

	switch v := value.(type) {
	case nil:
	case float64:
		s.LastValue = null.FloatFrom(v)
	case float32:
		s.LastValue = null.FloatFrom(float64(v))
	case int:
		s.LastValue = null.FloatFrom(float64(v))
	case int64:
		s.LastValue = null.FloatFrom(float64(v))
	case bool:
		if v {
			s.LastValue = null.FloatFrom(1)
		} else {
			s.LastValue = null.FloatFrom(0)
		}
	case string:
		s.LastText = null.StringFrom(v)
	default:
		s.LastText = null.StringFrom(fmt.Sprint(v))
	}

	if at.IsZero() {
		s.UpdatedAt = null.Time{}
		return
	}
	s.UpdatedAt = null.TimeFrom(at.UTC())
}

// State returns the stored value: a float64, a string or nil.
func (s *Sensor) State() any {
	switch {
	case s.LastValue.Valid:
		return s.LastValue.Float64
	case s.LastText.Valid:
		return s.LastText.String
	default:
		return nil
	}
}

// Validate checks the fields the repository relies on.
func (s *Sensor) Validate() error {
	if s.UniqueID == "" {
		return fmt.Errorf("%w: unique_id is required", ErrInvalidSensor)
	}
	if s.Key == "" {
		return fmt.Errorf("%w: key is required", ErrInvalidSensor)
	}
	switch s.Kind {
	case econet.KindController, econet.KindMixer, econet.KindLambda:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidSensor, s.Kind)
	}
	if s.Kind == econet.KindMixer && s.SubIndex < 1 {
		return fmt.Errorf("%w: mixer sensor needs a mixer number", ErrInvalidSensor)
	}
	return nil
}
