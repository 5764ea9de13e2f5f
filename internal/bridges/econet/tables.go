package econet

import (
	"fmt"
	"slices"
	"sort"
)

// Home Assistant sensor vocabulary used in descriptors and discovery payloads.
const (
	StateClassMeasurement     = "measurement"
	StateClassTotalIncreasing = "total_increasing"

	DeviceClassTemperature    = "temperature"
	DeviceClassPower          = "power"
	DeviceClassSignalStrength = "signal_strength"
	DeviceClassEnum           = "enum"

	EntityCategoryDiagnostic = "diagnostic"

	UnitCelsius          = "°C"
	UnitPercent          = "%"
	UnitKilowatt         = "kW"
	UnitKilogramsPerHour = "kg/h"
	UnitDecibelMilliwatt = "dBm"
)

// LambdaVersionKey is the sysParams key whose presence means a lambda probe
// module is installed.
const LambdaVersionKey = "moduleLambdaSoftVer"

// maxMixers is the number of mixer circuits an ecoNET300 can report.
const maxMixers = 6

// Tables holds the static key-to-metadata lookup tables and the key sets the
// factories iterate. A zero-value map means "no entries"; every lookup falls
// back to the documented default on a miss.
//
// Tables are read-only after construction. DefaultTables is the catalogue for
// a standard ecoNET300 installation.
type Tables struct {
	// Icons maps a key to an mdi icon name.
	Icons map[string]string

	// Units maps a key to its native unit of measurement.
	Units map[string]string

	// DeviceClasses maps a key to a Home Assistant sensor device class.
	DeviceClasses map[string]string

	// Precisions maps a key to its suggested display precision.
	Precisions map[string]int

	// Categories maps a key to an entity category.
	Categories map[string]string

	// StateClasses maps a key to a state class. A present entry with an
	// empty value means "no state class"; a miss means measurement.
	StateClasses map[string]string

	// Transforms maps a key to its value processor.
	Transforms map[string]Transform

	// Options maps an enum key to its allowed values.
	Options map[string][]string

	// ControllerKeys is the ordered key set for the controller device.
	ControllerKeys []string

	// MixerKeys maps a mixer number to its dependent sub-keys. The first
	// sub-key is the one exposed as the mixer entity.
	MixerKeys map[int][]string

	// LambdaKeys is the ordered key set for the lambda probe module.
	LambdaKeys []string
}

// DefaultTables is the catalogue used when an Entry does not supply one.
var DefaultTables = newDefaultTables()

// MixerNumbers returns the configured mixer numbers in ascending order.
func (t *Tables) MixerNumbers() []int {
	nums := make([]int, 0, len(t.MixerKeys))
	for n := range t.MixerKeys {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

// MixerSubKeys returns a copy of the dependent keys for mixer n.
func (t *Tables) MixerSubKeys(n int) []string {
	return slices.Clone(t.MixerKeys[n])
}

// Controller returns a copy of the controller key set.
func (t *Tables) Controller() []string {
	return slices.Clone(t.ControllerKeys)
}

// Lambda returns a copy of the lambda key set.
func (t *Tables) Lambda() []string {
	return slices.Clone(t.LambdaKeys)
}

// tablesOrDefault returns t, or DefaultTables when t is nil.
func tablesOrDefault(t *Tables) *Tables {
	if t == nil {
		return DefaultTables
	}
	return t
}

func newDefaultTables() *Tables {
	t := &Tables{
		ControllerKeys: []string{
			"boilerPower",
			"boilerPowerKW",
			"fuelStream",
			"tempFeeder",
			"fuelLevel",
			"tempCO",
			"tempCOSet",
			"tempBack",
			"statusCWU",
			"tempCWU",
			"tempCWUSet",
			"tempFlueGas",
			"mode",
			"fanPower",
			"fanPowerExhaust",
			"thermostat",
			"tempExternalSensor",
			"tempLowerBuffer",
			"tempUpperBuffer",
			"quality",
			"signal",
			"softVer",
			"moduleASoftVer",
			"moduleBSoftVer",
			"modulePanelSoftVer",
			LambdaVersionKey,
			"protocolType",
			"controllerID",
		},
		LambdaKeys: []string{
			"lambdaStatus",
			"lambdaSet",
			"lambdaLevel",
		},
		MixerKeys: make(map[int][]string, maxMixers),
		Icons: map[string]string{
			"boilerPower":        "mdi:fire",
			"boilerPowerKW":      "mdi:fire",
			"fuelStream":         "mdi:grain",
			"tempFeeder":         "mdi:thermometer",
			"fuelLevel":          "mdi:gauge",
			"tempCO":             "mdi:thermometer",
			"tempCOSet":          "mdi:thermometer-chevron-up",
			"tempBack":           "mdi:thermometer-chevron-down",
			"statusCWU":          "mdi:water-boiler",
			"tempCWU":            "mdi:water-thermometer",
			"tempCWUSet":         "mdi:water-thermometer",
			"tempFlueGas":        "mdi:chimney",
			"mode":               "mdi:sync",
			"fanPower":           "mdi:fan",
			"fanPowerExhaust":    "mdi:fan",
			"thermostat":         "mdi:home-thermometer",
			"tempExternalSensor": "mdi:thermometer",
			"tempLowerBuffer":    "mdi:thermometer-low",
			"tempUpperBuffer":    "mdi:thermometer-high",
			"quality":            "mdi:signal",
			"signal":             "mdi:wifi",
			"softVer":            "mdi:alphabet-v",
			"moduleASoftVer":     "mdi:alphabet-v",
			"moduleBSoftVer":     "mdi:alphabet-v",
			"modulePanelSoftVer": "mdi:alphabet-v",
			LambdaVersionKey:     "mdi:alphabet-v",
			"protocolType":       "mdi:swap-horizontal",
			"controllerID":       "mdi:identifier",
			"lambdaStatus":       "mdi:lambda",
			"lambdaSet":          "mdi:lambda",
			"lambdaLevel":        "mdi:lambda",
		},
		Units: map[string]string{
			"boilerPower":        UnitPercent,
			"boilerPowerKW":      UnitKilowatt,
			"fuelStream":         UnitKilogramsPerHour,
			"tempFeeder":         UnitCelsius,
			"fuelLevel":          UnitPercent,
			"tempCO":             UnitCelsius,
			"tempCOSet":          UnitCelsius,
			"tempBack":           UnitCelsius,
			"tempCWU":            UnitCelsius,
			"tempCWUSet":         UnitCelsius,
			"tempFlueGas":        UnitCelsius,
			"fanPower":           UnitPercent,
			"fanPowerExhaust":    UnitPercent,
			"tempExternalSensor": UnitCelsius,
			"tempLowerBuffer":    UnitCelsius,
			"tempUpperBuffer":    UnitCelsius,
			"quality":            UnitPercent,
			"signal":             UnitDecibelMilliwatt,
			"lambdaSet":          UnitPercent,
			"lambdaLevel":        UnitPercent,
		},
		DeviceClasses: map[string]string{
			"boilerPowerKW":      DeviceClassPower,
			"tempFeeder":         DeviceClassTemperature,
			"tempCO":             DeviceClassTemperature,
			"tempCOSet":          DeviceClassTemperature,
			"tempBack":           DeviceClassTemperature,
			"tempCWU":            DeviceClassTemperature,
			"tempCWUSet":         DeviceClassTemperature,
			"tempFlueGas":        DeviceClassTemperature,
			"tempExternalSensor": DeviceClassTemperature,
			"tempLowerBuffer":    DeviceClassTemperature,
			"tempUpperBuffer":    DeviceClassTemperature,
			"signal":             DeviceClassSignalStrength,
			"mode":               DeviceClassEnum,
			"statusCWU":          DeviceClassEnum,
			"thermostat":         DeviceClassEnum,
		},
		Precisions: map[string]int{
			"boilerPowerKW":      1,
			"fuelStream":         1,
			"tempFeeder":         1,
			"tempCO":             1,
			"tempCOSet":          0,
			"tempBack":           1,
			"tempCWU":            1,
			"tempCWUSet":         0,
			"tempFlueGas":        1,
			"tempExternalSensor": 1,
			"tempLowerBuffer":    1,
			"tempUpperBuffer":    1,
			"lambdaSet":          1,
			"lambdaLevel":        1,
		},
		Categories: map[string]string{
			"quality":            EntityCategoryDiagnostic,
			"signal":             EntityCategoryDiagnostic,
			"softVer":            EntityCategoryDiagnostic,
			"moduleASoftVer":     EntityCategoryDiagnostic,
			"moduleBSoftVer":     EntityCategoryDiagnostic,
			"modulePanelSoftVer": EntityCategoryDiagnostic,
			LambdaVersionKey:     EntityCategoryDiagnostic,
			"protocolType":       EntityCategoryDiagnostic,
			"controllerID":       EntityCategoryDiagnostic,
		},
		StateClasses: map[string]string{
			"mode":               "",
			"statusCWU":          "",
			"thermostat":         "",
			"softVer":            "",
			"moduleASoftVer":     "",
			"moduleBSoftVer":     "",
			"modulePanelSoftVer": "",
			LambdaVersionKey:     "",
			"protocolType":       "",
			"controllerID":       "",
			"lambdaStatus":       "",
		},
		Transforms: map[string]Transform{
			"mode":       OperationModeName,
			"statusCWU":  OnOff,
			"thermostat": OnOff,
		},
		Options: map[string][]string{
			"mode":       OperationModes(),
			"statusCWU":  {"on", "off"},
			"thermostat": {"on", "off"},
		},
	}

	for n := 1; n <= maxMixers; n++ {
		temp := fmt.Sprintf("mixerTemp%d", n)
		set := fmt.Sprintf("mixerSetTemp%d", n)
		t.MixerKeys[n] = []string{temp, set}

		t.Icons[temp] = "mdi:thermometer"
		t.Icons[set] = "mdi:thermometer-chevron-up"
		t.Units[temp] = UnitCelsius
		t.Units[set] = UnitCelsius
		t.DeviceClasses[temp] = DeviceClassTemperature
		t.DeviceClasses[set] = DeviceClassTemperature
		t.Precisions[temp] = 1
	}

	return t
}
