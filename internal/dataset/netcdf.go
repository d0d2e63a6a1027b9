package dataset

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/cdf"
	"github.com/batchatco/go-native-netcdf/netcdf/util"
	"github.com/cockroachdb/errors"
)

// ErrUnsupported marks variables whose data type cannot be represented in a
// Dataset.
var ErrUnsupported = errors.New("unsupported netCDF data")

// Open reads every variable of a netCDF file into memory.
func Open(filePath string) (*Dataset, error) {
	nc, err := netcdf.Open(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", filePath)
	}
	defer nc.Close()

	ds := New()
	for _, name := range nc.ListVariables() {
		v, err := readVariable(nc, name)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: variable %q", filePath, name)
		}
		if v != nil {
			ds.Add(v)
		}
	}
	return ds, nil
}

func readVariable(nc api.Group, name string) (*Variable, error) {
	nv, err := nc.GetVariable(name)
	if err != nil {
		return nil, err
	}
	v := &Variable{
		Name:  name,
		Dims:  append([]string(nil), nv.Dimensions...),
		Attrs: attrStrings(nv.Attributes),
	}
	// Character data (labels, station names) carries no measurements.
	if isText(nv.Values) {
		return nil, nil
	}
	values, shape, err := flatten(nv.Values)
	if err != nil {
		return nil, err
	}
	if len(shape) > 1 {
		v.Shape = shape
	}
	if units, ok := v.Units(); ok && IsTimeUnits(units) {
		v.Times, err = DecodeTimes(values, units)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v.Values = values
	return v, nil
}

func attrStrings(am api.AttributeMap) map[string]string {
	if am == nil {
		return nil
	}
	keys := am.Keys()
	if len(keys) == 0 {
		return nil
	}
	attrs := make(map[string]string, len(keys))
	for _, k := range keys {
		val, ok := am.Get(k)
		if !ok {
			continue
		}
		switch val := val.(type) {
		case string:
			attrs[k] = val
		case []string:
			attrs[k] = strings.Join(val, " ")
		default:
			attrs[k] = fmt.Sprint(val)
		}
	}
	return attrs
}

func isText(values any) bool {
	switch values.(type) {
	case string, []string, [][]string:
		return true
	}
	return false
}

// flatten converts a scalar or nested slice of any numeric type into a flat
// []float64 and the length of every nesting level.
func flatten(values any) ([]float64, []int, error) {
	rv := reflect.ValueOf(values)
	if !rv.IsValid() {
		return nil, nil, errors.Mark(errors.New("no values"), ErrUnsupported)
	}
	var shape []int
	for t := rv; t.Kind() == reflect.Slice; {
		shape = append(shape, t.Len())
		if t.Len() == 0 {
			break
		}
		t = t.Index(0)
	}
	out := make([]float64, 0, product(shape))
	var walk func(reflect.Value) error
	walk = func(v reflect.Value) error {
		switch v.Kind() {
		case reflect.Slice:
			for i := 0; i < v.Len(); i++ {
				if err := walk(v.Index(i)); err != nil {
					return err
				}
			}
		case reflect.Float32, reflect.Float64:
			out = append(out, v.Float())
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out = append(out, float64(v.Int()))
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out = append(out, float64(v.Uint()))
		default:
			return errors.Mark(errors.Newf("%s values", v.Type()), ErrUnsupported)
		}
		return nil
	}
	if err := walk(rv); err != nil {
		return nil, nil, err
	}
	return out, shape, nil
}

func product(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// Write stores ds as a classic netCDF file. Timestamps are written as seconds
// since the first timestamp of the variable, numeric data as doubles.
func Write(filePath string, ds *Dataset) (err error) {
	cw, err := cdf.OpenWriter(filePath)
	if err != nil {
		return errors.Wrapf(err, "create %s", filePath)
	}
	defer func() {
		if cerr := cw.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", filePath)
		}
	}()
	for _, v := range ds.vars {
		nv, err := toNetCDF(v)
		if err != nil {
			return errors.Wrapf(err, "%s: variable %q", filePath, v.Name)
		}
		if err := cw.AddVar(v.Name, nv); err != nil {
			return errors.Wrapf(err, "%s: write %q", filePath, v.Name)
		}
	}
	return nil
}

func toNetCDF(v *Variable) (api.Variable, error) {
	attrs := make(map[string]string, len(v.Attrs)+1)
	for k, val := range v.Attrs {
		attrs[k] = val
	}
	values := v.Values
	if v.IsTime() {
		if len(v.Times) > 0 {
			values, attrs["units"] = EncodeTimes(v.Times, v.Times[0])
		} else {
			values, attrs["units"] = []float64{}, "seconds since 1970-01-01 00:00:00"
		}
	}
	keys := make([]string, 0, len(attrs))
	vals := make(map[string]any, len(attrs))
	for k, val := range attrs {
		keys = append(keys, k)
		vals[k] = val
	}
	sort.Strings(keys)
	am, err := util.NewOrderedMap(keys, vals)
	if err != nil {
		return api.Variable{}, err
	}
	data, err := reshape(values, v.Lengths())
	if err != nil {
		return api.Variable{}, err
	}
	return api.Variable{
		Values:     data,
		Dimensions: append([]string(nil), v.Dims...),
		Attributes: am,
	}, nil
}

// reshape turns flat values into the nested slice matching lengths.
func reshape(values []float64, lengths []int) (any, error) {
	if product(lengths) != len(values) {
		return nil, errors.Newf("%d values do not fit shape %v", len(values), lengths)
	}
	switch len(lengths) {
	case 0:
		return values[0], nil
	case 1:
		return values, nil
	case 2:
		out := make([][]float64, lengths[0])
		for i := range out {
			out[i] = values[i*lengths[1] : (i+1)*lengths[1]]
		}
		return out, nil
	case 3:
		step := lengths[1] * lengths[2]
		out := make([][][]float64, lengths[0])
		for i := range out {
			inner, _ := reshape(values[i*step:(i+1)*step], lengths[1:])
			out[i] = inner.([][]float64)
		}
		return out, nil
	}
	return nil, errors.Mark(errors.Newf("%d dimensions", len(lengths)), ErrUnsupported)
}
