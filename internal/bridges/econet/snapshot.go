package econet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Params is one parameter map of a controller snapshot, keyed by register key.
// Values are JSON-decoded raw values: float64, bool, string or nil.
type Params map[string]any

// Get returns the value stored under key, or nil when absent.
// Safe to call on a nil map.
func (p Params) Get(key string) any {
	return p[key]
}

// Has reports whether key is present, even with a null value.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Keys returns the keys of p in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot is the latest controller data provided by the poller.
// Snapshots are replaced wholesale and must not be mutated once published
// to a Coordinator.
type Snapshot struct {
	RegParams   Params `json:"regParams"`
	SysParams   Params `json:"sysParams"`
	ParamsEdits Params `json:"paramsEdits,omitempty"`
}

// DecodeSnapshot parses an ingest payload into a Snapshot.
//
// Parameters:
//   - payload: JSON object with regParams, sysParams and optional paramsEdits
//
// Returns:
//   - *Snapshot: decoded snapshot (nil maps are replaced with empty ones)
//   - error: ErrInvalidSnapshot on malformed JSON, ErrEmptySnapshot when
//     both regParams and sysParams are missing
func DecodeSnapshot(payload []byte) (*Snapshot, error) {
	var s Snapshot
	dec := json.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
	}
	if s.RegParams == nil && s.SysParams == nil {
		return nil, ErrEmptySnapshot
	}
	if s.RegParams == nil {
		s.RegParams = Params{}
	}
	if s.SysParams == nil {
		s.SysParams = Params{}
	}
	if s.ParamsEdits == nil {
		s.ParamsEdits = Params{}
	}
	return &s, nil
}

// Truthy reports whether v counts as set under the controller's
// "value or fallback" rule: nil, false, numeric zero and the empty string
// are falsy, everything else is truthy.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}

// ResolveTruthy returns the first truthy value, or the last value when none
// is truthy. This mirrors a chained "a or b or c": a falsy regParams value
// such as 0 falls through to sysParams, and when sysParams has nothing the
// result is nil (absent) rather than 0.
func ResolveTruthy(values ...any) any {
	var last any
	for _, v := range values {
		if Truthy(v) {
			return v
		}
		last = v
	}
	return last
}

// ResolveNonNil returns the first non-nil value, or nil.
func ResolveNonNil(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
