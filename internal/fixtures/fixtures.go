// Package fixtures builds sample observation datasets, both well-formed and
// deliberately broken, and writes them as netCDF files.
package fixtures

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/rtm0/obscheck/internal/dataset"
)

// Freq is the sampling frequency of a generated series.
type Freq string

const (
	Daily  Freq = "1D"
	Hourly Freq = "1H"
)

// ParseFreq accepts 1D/1H and their long spellings.
func ParseFreq(s string) (Freq, error) {
	switch s {
	case "1D", "daily":
		return Daily, nil
	case "1H", "hourly":
		return Hourly, nil
	}
	return "", errors.Newf("unknown frequency %q (want 1D or 1H)", s)
}

func (f Freq) step() time.Duration {
	if f == Hourly {
		return time.Hour
	}
	return 24 * time.Hour
}

var densityUnits = []struct{ name, units string }{
	{"air_quality_index", "1"},
	{"CO_density", "mg/m3"},
	{"NO2_density", "ug/m3"},
	{"O3_density", "ug/m3"},
	{"PM10_density", "ug/m3"},
	{"PM2p5_density", "ug/m3"},
	{"SO2_density", "ug/m3"},
}

// Times returns the interval bounds covering year at freq: starts from
// Jan 1 00:00 and stops one step later, up to Jan 1 of the next year.
func Times(year int, freq Freq) (start, stop []time.Time) {
	step := freq.step()
	first := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.UTC)
	for t := first; t.Before(end); t = t.Add(step) {
		start = append(start, t)
		stop = append(stop, t.Add(step))
	}
	return start, stop
}

// Valid builds a dataset that passes every check.
func Valid(year int, freq Freq) *dataset.Dataset {
	start, stop := Times(year, freq)
	ds := dataset.New(
		dataset.TimeSeries("datetime_start", "time", start),
		dataset.TimeSeries("datetime_stop", "time", stop),
		dataset.Scalar("latitude", 0, "degree_north"),
		dataset.Scalar("longitude", 0, "degree_east"),
		dataset.Scalar("altitude", 0, "m"),
	)
	for _, d := range densityUnits {
		ds.Add(dataset.Series(d.name, "time", fill(len(start), math.NaN()), d.units))
	}
	return ds
}

// Empty builds a dataset without variables.
func Empty() *dataset.Dataset {
	return dataset.New()
}

// WrongCoords builds a dataset whose coordinates are series instead of
// scalars, out of range and with wrong or missing units.
func WrongCoords(year int, freq Freq) *dataset.Dataset {
	start, _ := Times(year, freq)
	n := len(start)
	return dataset.New(
		dataset.Series("latitude", "time", fill(n, -100), "degN"),
		dataset.Series("longitude", "time", fill(n, 360), "degE"),
		dataset.Series("altitude", "time", fill(n, 0), ""),
	)
}

// WrongDims builds a valid dataset whose time-dependent variables gained
// leading latitude and longitude dimensions.
func WrongDims(year int, freq Freq) *dataset.Dataset {
	ds := Valid(year, freq)
	for _, name := range ds.Names() {
		v, _ := ds.Get(name)
		if !v.HasDims("time") {
			continue
		}
		v.Dims = []string{"latitude", "longitude", "time"}
		v.Shape = []int{1, 1, v.Size()}
	}
	return ds
}

// WrongUnits drops the air_quality_index unit and mislabels CO_density.
func WrongUnits(year int, freq Freq) *dataset.Dataset {
	ds := Valid(year, freq)
	if v, ok := ds.Get("air_quality_index"); ok {
		delete(v.Attrs, "units")
	}
	if v, ok := ds.Get("CO_density"); ok {
		v.SetAttr("units", "ug/m3")
	}
	return ds
}

// NegativeDensity sets every density to -1 and drops air_quality_index.
func NegativeDensity(year int, freq Freq) *dataset.Dataset {
	ds := Valid(year, freq)
	ds.Remove("air_quality_index")
	for _, d := range densityUnits {
		if v, ok := ds.Get(d.name); ok {
			v.Values = fill(len(v.Values), -1)
		}
	}
	return ds
}

// BadTimes rotates datetime_start forward and datetime_stop backward by seven
// records, breaking ordering in both.
func BadTimes(year int, freq Freq) *dataset.Dataset {
	ds := Valid(year, freq)
	start, _ := ds.Get("datetime_start")
	stop, _ := ds.Get("datetime_stop")
	start.Times = roll(start.Times, 7)
	stop.Times = roll(stop.Times, -7)
	return ds
}

// WrongYears copies datetime_stop into datetime_start, so intervals are
// empty and the last record starts in the following year.
func WrongYears(year int, freq Freq) *dataset.Dataset {
	ds := Valid(year, freq)
	stop, _ := ds.Get("datetime_stop")
	start, _ := ds.Get("datetime_start")
	start.Times = append([]time.Time(nil), stop.Times...)
	return ds
}

// Incomplete keeps every other record of a valid dataset.
func Incomplete(year int, freq Freq) *dataset.Dataset {
	ds := Valid(year, freq)
	for _, name := range ds.Names() {
		v, _ := ds.Get(name)
		if !v.HasDims("time") {
			continue
		}
		if v.IsTime() {
			v.Times = everyOther(v.Times)
		} else {
			v.Values = everyOther(v.Values)
		}
	}
	return ds
}

// Builders maps the sample dataset name to its builder.
var Builders = map[string]func(year int, freq Freq) *dataset.Dataset{
	"valid":            Valid,
	"wrong_coords":     WrongCoords,
	"wrong_dims":       WrongDims,
	"wrong_units":      WrongUnits,
	"negative_density": NegativeDensity,
	"bad_times":        BadTimes,
	"wrong_years":      WrongYears,
	"incomplete":       Incomplete,
}

// FileName returns "<name>-<freq>-<year>.nc".
func FileName(name string, year int, freq Freq) string {
	return fmt.Sprintf("%s-%s-%d.nc", name, freq, year)
}

// WriteAll writes every sample dataset plus empty.nc into root. Existing files
// are kept unless overwrite is set. It returns the paths it wrote.
func WriteAll(root string, year int, freq Freq, overwrite bool) ([]string, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "create fixture directory")
	}
	type job struct {
		path string
		ds   *dataset.Dataset
	}
	jobs := []job{{filepath.Join(root, "empty.nc"), Empty()}}
	for _, name := range Names() {
		jobs = append(jobs, job{filepath.Join(root, FileName(name, year, freq)), Builders[name](year, freq)})
	}

	var written []string
	for _, j := range jobs {
		if _, err := os.Stat(j.path); err == nil && !overwrite {
			continue
		}
		if err := dataset.Write(j.path, j.ds); err != nil {
			return written, err
		}
		written = append(written, j.path)
	}
	return written, nil
}

// Names returns the sample dataset names in a fixed order.
func Names() []string {
	return []string{
		"valid", "wrong_coords", "wrong_dims", "wrong_units",
		"negative_density", "bad_times", "wrong_years", "incomplete",
	}
}

func fill(n int, x float64) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = x
	}
	return values
}

// roll shifts elements by k positions with wrap-around, like numpy.roll.
func roll[T any](s []T, k int) []T {
	n := len(s)
	if n == 0 {
		return s
	}
	out := make([]T, n)
	for i := range s {
		out[((i+k)%n+n)%n] = s[i]
	}
	return out
}

func everyOther[T any](s []T) []T {
	out := make([]T, 0, (len(s)+1)/2)
	for i := 0; i < len(s); i += 2 {
		out = append(out, s[i])
	}
	return out
}
