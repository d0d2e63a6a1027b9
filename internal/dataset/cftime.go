package dataset

import (
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// CF time units have the form "<unit> since <reference>".
const sinceSep = " since "

var cfUnits = map[string]time.Duration{
	"second":  time.Second,
	"seconds": time.Second,
	"sec":     time.Second,
	"secs":    time.Second,
	"s":       time.Second,
	"minute":  time.Minute,
	"minutes": time.Minute,
	"min":     time.Minute,
	"mins":    time.Minute,
	"hour":    time.Hour,
	"hours":   time.Hour,
	"hr":      time.Hour,
	"hrs":     time.Hour,
	"h":       time.Hour,
	"day":     24 * time.Hour,
	"days":    24 * time.Hour,
	"d":       24 * time.Hour,
}

var refLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2",
}

// IsTimeUnits reports whether units looks like a CF time unit string.
func IsTimeUnits(units string) bool {
	return strings.Contains(strings.ToLower(units), sinceSep)
}

// ParseTimeUnits splits a CF time unit string into the step and the reference
// instant. The reference is interpreted as UTC unless it carries an offset.
func ParseTimeUnits(units string) (time.Duration, time.Time, error) {
	lower := strings.ToLower(strings.TrimSpace(units))
	i := strings.Index(lower, sinceSep)
	if i < 0 {
		return 0, time.Time{}, errors.Newf("%q is not a CF time unit", units)
	}
	step, ok := cfUnits[strings.TrimSpace(lower[:i])]
	if !ok {
		return 0, time.Time{}, errors.Newf("unsupported time step %q", units[:i])
	}
	ref := strings.TrimSpace(units[i+len(sinceSep):])
	ref = strings.TrimSuffix(strings.TrimSuffix(ref, " UTC"), " utc")
	for _, layout := range refLayouts {
		if t, err := time.Parse(layout, ref); err == nil {
			return step, t.UTC(), nil
		}
	}
	return 0, time.Time{}, errors.Newf("unsupported reference time %q", ref)
}

// maxOffsetSeconds bounds decoded offsets to roughly ten million years either
// side of the reference.
const maxOffsetSeconds = 1 << 48

// DecodeTimes converts offsets expressed in CF units into timestamps.
// Offsets are applied in whole seconds plus a nanosecond remainder, so
// references centuries away from the data decode exactly.
func DecodeTimes(values []float64, units string) ([]time.Time, error) {
	step, ref, err := ParseTimeUnits(units)
	if err != nil {
		return nil, err
	}
	times := make([]time.Time, len(values))
	for i, x := range values {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, errors.Newf("non-finite time offset at index %d", i)
		}
		secs := x * step.Seconds()
		if math.Abs(secs) > maxOffsetSeconds {
			return nil, errors.Newf("time offset %g %s out of range at index %d", x, units, i)
		}
		whole := math.Floor(secs)
		nanos := math.Round((secs - whole) * 1e9)
		times[i] = time.Unix(ref.Unix()+int64(whole), int64(ref.Nanosecond())+int64(nanos)).UTC()
	}
	return times, nil
}

// EncodeTimes converts timestamps into second offsets since ref and returns
// the matching CF unit string.
func EncodeTimes(times []time.Time, ref time.Time) ([]float64, string) {
	ref = ref.UTC()
	offsets := make([]float64, len(times))
	for i, t := range times {
		offsets[i] = float64(t.Unix()-ref.Unix()) + float64(t.Nanosecond()-ref.Nanosecond())/1e9
	}
	return offsets, "seconds since " + ref.Format("2006-01-02 15:04:05")
}
