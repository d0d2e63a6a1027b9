package dataset

import (
	"math"
	"strings"
	"time"
)

// Dataset is an in-memory view of one observation file: a collection of named
// variables in file order.
type Dataset struct {
	vars  []*Variable
	index map[string]int
}

// Variable is a named array together with its dimensions and string
// attributes. Numeric data lives in Values, flattened in row-major order;
// variables carrying CF time units are decoded into Times instead.
type Variable struct {
	Name   string
	Dims   []string
	Shape  []int // per-dimension lengths; nil for scalars and 1-D data
	Values []float64
	Times  []time.Time
	Attrs  map[string]string
}

// New creates a dataset holding vars. A later variable replaces an earlier one
// with the same name.
func New(vars ...*Variable) *Dataset {
	ds := &Dataset{index: make(map[string]int)}
	for _, v := range vars {
		ds.Add(v)
	}
	return ds
}

// Add appends v to the dataset or replaces the variable with the same name.
func (ds *Dataset) Add(v *Variable) {
	if ds.index == nil {
		ds.index = make(map[string]int)
	}
	if i, ok := ds.index[v.Name]; ok {
		ds.vars[i] = v
		return
	}
	ds.index[v.Name] = len(ds.vars)
	ds.vars = append(ds.vars, v)
}

// Remove drops the named variable if present.
func (ds *Dataset) Remove(name string) {
	i, ok := ds.index[name]
	if !ok {
		return
	}
	ds.vars = append(ds.vars[:i], ds.vars[i+1:]...)
	delete(ds.index, name)
	for j := i; j < len(ds.vars); j++ {
		ds.index[ds.vars[j].Name] = j
	}
}

// Get returns the named variable. The boolean is false when the dataset does
// not contain it.
func (ds *Dataset) Get(name string) (*Variable, bool) {
	if ds == nil {
		return nil, false
	}
	i, ok := ds.index[name]
	if !ok {
		return nil, false
	}
	return ds.vars[i], true
}

// Names lists the variable names in file order.
func (ds *Dataset) Names() []string {
	names := make([]string, len(ds.vars))
	for i, v := range ds.vars {
		names[i] = v.Name
	}
	return names
}

// Len returns the number of variables.
func (ds *Dataset) Len() int {
	return len(ds.vars)
}

// Scalar creates a dimensionless variable.
func Scalar(name string, value float64, units string) *Variable {
	v := &Variable{Name: name, Values: []float64{value}}
	if units != "" {
		v.Attrs = map[string]string{"units": units}
	}
	return v
}

// Series creates a one-dimensional variable along dim.
func Series(name, dim string, values []float64, units string) *Variable {
	v := &Variable{Name: name, Dims: []string{dim}, Values: values}
	if units != "" {
		v.Attrs = map[string]string{"units": units}
	}
	return v
}

// TimeSeries creates a one-dimensional timestamp variable along dim.
func TimeSeries(name, dim string, times []time.Time) *Variable {
	return &Variable{Name: name, Dims: []string{dim}, Times: times}
}

// Size returns the number of elements held by the variable.
func (v *Variable) Size() int {
	if v.Times != nil {
		return len(v.Times)
	}
	return len(v.Values)
}

// Lengths returns the length of every dimension.
func (v *Variable) Lengths() []int {
	if len(v.Shape) == len(v.Dims) {
		return v.Shape
	}
	switch len(v.Dims) {
	case 0:
		return nil
	case 1:
		return []int{v.Size()}
	}
	// Unknown split: put everything on the last dimension.
	lengths := make([]int, len(v.Dims))
	for i := range lengths {
		lengths[i] = 1
	}
	lengths[len(lengths)-1] = v.Size()
	return lengths
}

// IsScalar reports whether the variable holds exactly one element.
func (v *Variable) IsScalar() bool {
	return v.Size() == 1
}

// IsTime reports whether the variable holds decoded timestamps.
func (v *Variable) IsTime() bool {
	return v.Times != nil
}

// Attr returns the named string attribute.
func (v *Variable) Attr(name string) (string, bool) {
	if v.Attrs == nil {
		return "", false
	}
	s, ok := v.Attrs[name]
	return s, ok
}

// Units returns the "units" attribute.
func (v *Variable) Units() (string, bool) {
	return v.Attr("units")
}

// SetAttr sets a string attribute.
func (v *Variable) SetAttr(name, value string) {
	if v.Attrs == nil {
		v.Attrs = make(map[string]string)
	}
	v.Attrs[name] = value
}

// HasDims reports whether the variable dimensions are exactly dims.
func (v *Variable) HasDims(dims ...string) bool {
	if len(v.Dims) != len(dims) {
		return false
	}
	for i := range dims {
		if v.Dims[i] != dims[i] {
			return false
		}
	}
	return true
}

// DimsString renders the dimension names as a parenthesised tuple, e.g.
// ('latitude', 'longitude', 'time') or ('time',).
func (v *Variable) DimsString() string {
	return Tuple(v.Dims)
}

// Tuple renders names as a parenthesised, quoted tuple.
func Tuple(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	s := strings.Join(quoted, ", ")
	if len(names) == 1 {
		s += ","
	}
	return "(" + s + ")"
}

// List renders names as a bracketed, quoted list, e.g. ['mg m-3', 'mg/m3'].
func List(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// AnyNegative reports whether any value is below zero. NaN is not negative.
func (v *Variable) AnyNegative() bool {
	for _, x := range v.Values {
		if x < 0 {
			return true
		}
	}
	return false
}

// AnyOutside reports whether any value falls outside [lo, hi]. NaN values are
// ignored.
func (v *Variable) AnyOutside(lo, hi float64) bool {
	for _, x := range v.Values {
		if math.IsNaN(x) {
			continue
		}
		if x < lo || x > hi {
			return true
		}
	}
	return false
}
