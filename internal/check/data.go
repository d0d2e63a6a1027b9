package check

import (
	"slices"

	"github.com/rtm0/obscheck/internal/dataset"
)

// DataChecker returns the measurement check for the given unit policy. Every
// known variable present in the dataset must lie along time, carry an
// accepted unit and hold no negative values.
func DataChecker(policy UnitPolicy) Func {
	return func(ds *dataset.Dataset, r *Reporter) {
		var found []*dataset.Variable
		for _, name := range Variables() {
			if v, ok := ds.Get(name); ok {
				found = append(found, v)
			}
		}
		if len(found) == 0 {
			r.Errorf("missing obs found")
			return
		}

		start, hasStart := ds.Get("datetime_start")
		for _, v := range found {
			if !v.HasDims("time") {
				r.Errorf("%s.dims=%s != ('time',)", v.Name, v.DimsString())
			} else if hasStart && v.Size() != start.Size() {
				r.Errorf("%s.size=%d != %s.size=%d", v.Name, v.Size(), start.Name, start.Size())
			}

			accepted := AcceptedUnits(v.Name, policy)
			if units, ok := v.Units(); !ok {
				r.Errorf("missing %s.units", v.Name)
			} else if !slices.Contains(accepted, units) {
				r.Errorf("%s.units='%s' not in %s", v.Name, units, dataset.List(accepted))
			}

			if v.AnyNegative() {
				r.Errorf("%s has negative values", v.Name)
			}
		}
	}
}
