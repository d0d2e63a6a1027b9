package check

import "sort"

// UnitPolicy selects how measurement units are compared.
type UnitPolicy int

const (
	// UnitsAllowed accepts any of the spellings listed for a variable.
	UnitsAllowed UnitPolicy = iota
	// UnitsExact accepts only the canonical unit of a variable.
	UnitsExact
)

// ParseUnitPolicy maps "allowed" and "exact" to a UnitPolicy.
func ParseUnitPolicy(s string) (UnitPolicy, bool) {
	switch s {
	case "", "allowed":
		return UnitsAllowed, true
	case "exact":
		return UnitsExact, true
	}
	return UnitsAllowed, false
}

func (p UnitPolicy) String() string {
	if p == UnitsExact {
		return "exact"
	}
	return "allowed"
}

// VariableUnits lists the measurement variables the data check knows about.
// The first unit of each entry is the canonical one.
var VariableUnits = map[string][]string{
	"air_quality_index": {"1"},
	"CO_density":        {"mg/m3", "mg m-3"},
	"NO2_density":       {"ug/m3", "ug m-3"},
	"O3_density":        {"ug/m3", "ug m-3"},
	"PM10_density":      {"ug/m3", "ug m-3"},
	"PM2p5_density":     {"ug/m3", "ug m-3"},
	"SO2_density":       {"ug/m3", "ug m-3"},
}

// Variables returns the known measurement variable names, sorted.
func Variables() []string {
	names := make([]string, 0, len(VariableUnits))
	for name := range VariableUnits {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AcceptedUnits returns the units accepted for name under policy, sorted.
func AcceptedUnits(name string, policy UnitPolicy) []string {
	units, ok := VariableUnits[name]
	if !ok || len(units) == 0 {
		return nil
	}
	if policy == UnitsExact {
		return units[:1]
	}
	sorted := append([]string(nil), units...)
	sort.Strings(sorted)
	return sorted
}
