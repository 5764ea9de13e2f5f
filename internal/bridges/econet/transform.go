package econet

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Transform maps a raw snapshot value to the value exposed by a sensor.
// Transforms must be pure and total: any input yields an output, and a value
// a transform cannot interpret is returned unchanged.
type Transform func(raw any) any

// Identity returns raw unchanged.
func Identity(raw any) any {
	return raw
}

// DivideBy returns a transform that scales numeric values by 1/divisor.
// Non-numeric values pass through unchanged.
func DivideBy(divisor float64) Transform {
	return func(raw any) any {
		f, ok := toFloat(raw)
		if !ok || divisor == 0 {
			return raw
		}
		return roundTo(f/divisor, 6)
	}
}

// operationModes maps the controller's "mode" register to enum options.
var operationModes = map[int]string{
	0:  "off",
	1:  "fire_up",
	2:  "operation",
	3:  "work",
	4:  "supervision",
	5:  "halted",
	6:  "stop",
	7:  "burning_off",
	8:  "manual",
	9:  "alarm",
	10: "unsealing",
	11: "chimney",
	12: "stabilization",
	13: "no_transmission",
}

// OperationModes returns the enum options of the "mode" sensor in code order.
func OperationModes() []string {
	out := make([]string, len(operationModes))
	for code, name := range operationModes {
		out[code] = name
	}
	return out
}

// OperationModeName maps a numeric operation mode to its enum option.
// Unknown codes and non-numeric values pass through unchanged.
func OperationModeName(raw any) any {
	f, ok := toFloat(raw)
	if !ok || f != math.Trunc(f) {
		return raw
	}
	if name, found := operationModes[int(f)]; found {
		return name
	}
	return raw
}

// OnOff maps boolean-ish register values to "on" or "off".
// Values that are neither boolean nor numeric pass through unchanged.
func OnOff(raw any) any {
	switch v := raw.(type) {
	case nil:
		return nil
	case bool:
		return onOffString(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "on":
			return "on"
		case "0", "false", "off":
			return "off"
		}
		return raw
	}
	if f, ok := toFloat(raw); ok {
		return onOffString(f != 0)
	}
	return raw
}

func onOffString(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// toFloat converts numeric snapshot values to float64.
// Strings are not parsed: the controller reports numbers as JSON numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// roundTo rounds f to the given number of decimal places, removing the
// binary noise that division by ten introduces (e.g. 4.1000000000000005).
func roundTo(f float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(f*p) / p
}
