package check

import (
	"time"

	"github.com/rtm0/obscheck/internal/dataset"
)

// Frequency is the sampling interval of a time series.
type Frequency string

const (
	Hourly           Frequency = "1H"
	Daily            Frequency = "1D"
	UnknownFrequency Frequency = "?"
)

const day = 24 * time.Hour

// TimeChecker verifies that datetime_start/datetime_stop describe one full
// calendar year of hourly or daily records.
func TimeChecker(ds *dataset.Dataset, r *Reporter) {
	start, okStart := ds.Get("datetime_start")
	if !okStart {
		r.Errorf("missing 'datetime_start' field")
	}
	stop, okStop := ds.Get("datetime_stop")
	if !okStop {
		r.Errorf("missing 'datetime_stop' field")
	}
	if !okStart || !okStop {
		return
	}

	shapeOK := true
	for _, v := range []*dataset.Variable{start, stop} {
		if !v.HasDims("time") {
			r.Errorf("%s.dims=%s != ('time',)", v.Name, v.DimsString())
			shapeOK = false
		}
	}
	if !shapeOK {
		return
	}
	if start.Size() != stop.Size() {
		r.Errorf("%s.size=%d != %s.size=%d", start.Name, start.Size(), stop.Name, stop.Size())
		return
	}
	for _, v := range []*dataset.Variable{start, stop} {
		if !v.IsTime() {
			r.Errorf("%s is not a datetime", v.Name)
			shapeOK = false
		}
	}
	if !shapeOK {
		return
	}

	if !MonotonicallyIncreasing(start.Times) {
		r.Errorf("datetime_start is not monotonically increasing")
	}
	if !MonotonicallyIncreasing(stop.Times) {
		r.Errorf("datetime_stop is not monotonically increasing")
	}
	for i := range start.Times {
		if start.Times[i].After(stop.Times[i]) {
			// Frequency and coverage assume ordered intervals.
			r.Errorf("datetime_start <!= datetime_stop")
			return
		}
	}

	freq := InferFrequency(Deltas(start.Times, stop.Times))
	if freq == UnknownFrequency {
		r.Errorf("not hourly or daily frequency")
	}
	if len(Years(start.Times)) > 1 {
		r.Errorf("different years")
	}
	if freq != UnknownFrequency && start.Size() < ExpectedRecords(start.Times, freq) {
		r.Errorf("not a full year")
	}
}

// MonotonicallyIncreasing reports whether every timestamp is strictly later
// than the previous one.
func MonotonicallyIncreasing(times []time.Time) bool {
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return false
		}
	}
	return true
}

// Deltas returns stop[i]-start[i] for the common prefix of both series.
func Deltas(start, stop []time.Time) []time.Duration {
	n := min(len(start), len(stop))
	deltas := make([]time.Duration, n)
	for i := 0; i < n; i++ {
		deltas[i] = stop[i].Sub(start[i])
	}
	return deltas
}

// diff returns the successive differences of times.
func diff(times []time.Time) []time.Duration {
	if len(times) < 2 {
		return nil
	}
	return Deltas(times[:len(times)-1], times[1:])
}

// InferFrequency classifies a set of intervals: hourly when the time-of-day
// part of every interval is exactly one hour, daily when every interval is
// exactly one day.
func InferFrequency(deltas []time.Duration) Frequency {
	if len(deltas) == 0 {
		return UnknownFrequency
	}
	if all(deltas, func(d time.Duration) bool { return d >= 0 && d%day == time.Hour }) {
		return Hourly
	}
	if all(deltas, func(d time.Duration) bool { return d == day }) {
		return Daily
	}
	return UnknownFrequency
}

func all(deltas []time.Duration, pred func(time.Duration) bool) bool {
	for _, d := range deltas {
		if !pred(d) {
			return false
		}
	}
	return true
}

// Years returns the distinct UTC calendar years present in times.
func Years(times []time.Time) map[int]struct{} {
	years := make(map[int]struct{})
	for _, t := range times {
		years[t.UTC().Year()] = struct{}{}
	}
	return years
}

// ExpectedRecords is the record count of a full year at freq: 365 days, or
// 366 when any timestamp falls in a leap year, times 24 for hourly data.
func ExpectedRecords(times []time.Time, freq Frequency) int {
	days := 365
	for _, t := range times {
		if isLeap(t.UTC().Year()) {
			days = 366
			break
		}
	}
	if freq == Hourly {
		return days * 24
	}
	return days
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
