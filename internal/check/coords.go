package check

import (
	"github.com/rtm0/obscheck/internal/dataset"
)

type coordinate struct {
	name   string
	units  string
	ranged bool
	lo, hi float64
}

var coordinates = []coordinate{
	{name: "latitude", units: "degree_north", ranged: true, lo: -90, hi: 90},
	{name: "longitude", units: "degree_east", ranged: true, lo: -180, hi: 180},
	{name: "altitude", units: "m"},
}

// CoordChecker verifies the station position: scalar latitude, longitude and
// altitude with the expected units, and latitude/longitude within range.
func CoordChecker(ds *dataset.Dataset, r *Reporter) {
	for _, c := range coordinates {
		v, ok := ds.Get(c.name)
		if !ok {
			r.Errorf("missing '%s' field", c.name)
			continue
		}
		if n := v.Size(); n != 1 {
			r.Errorf("%s.size=%d != 1", c.name, n)
		}
		if units, ok := v.Units(); !ok {
			r.Errorf("missing %s.units", c.name)
		} else if units != c.units {
			r.Errorf("%s.units='%s' != '%s'", c.name, units, c.units)
		}
		if c.ranged && v.AnyOutside(c.lo, c.hi) {
			r.Errorf("%s out of range [%g, %g]", c.name, c.lo, c.hi)
		}
	}
}
