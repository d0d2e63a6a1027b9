// Package check holds the rules an observation file must satisfy before it
// is archived, and the registry that runs them.
package check

import (
	"fmt"

	"github.com/rtm0/obscheck/internal/dataset"
)

// Record is one violated rule: the check that found it and a message.
type Record struct {
	Check   string
	Message string
}

func (r Record) String() string {
	return r.Check + ": " + r.Message
}

// Reporter collects the records emitted by one check.
type Reporter struct {
	check   string
	records []Record
}

// NewReporter creates a Reporter attributing records to check.
func NewReporter(check string) *Reporter {
	return &Reporter{check: check}
}

// Errorf records a violation.
func (r *Reporter) Errorf(format string, args ...any) {
	r.records = append(r.records, Record{Check: r.check, Message: fmt.Sprintf(format, args...)})
}

// Records returns what has been recorded so far, in emission order.
func (r *Reporter) Records() []Record {
	return r.records
}

// Func inspects a dataset and reports every violation it finds. It must not
// panic on missing variables.
type Func func(ds *dataset.Dataset, r *Reporter)

// Check is a named rule.
type Check struct {
	Name string
	Fn   Func
}

// Registry is an ordered list of checks.
type Registry struct {
	checks []Check
}

// NewRegistry creates a registry running checks in the given order.
func NewRegistry(checks ...Check) *Registry {
	return &Registry{checks: append([]Check(nil), checks...)}
}

// Default returns the time, coordinate and data checks, in that order.
func Default(policy UnitPolicy) *Registry {
	return NewRegistry(
		Check{Name: "time_checker", Fn: TimeChecker},
		Check{Name: "coord_checker", Fn: CoordChecker},
		Check{Name: "data_checker", Fn: DataChecker(policy)},
	)
}

// Register appends a check. Registries are meant to be populated before use.
func (reg *Registry) Register(name string, fn Func) {
	reg.checks = append(reg.checks, Check{Name: name, Fn: fn})
}

// Checks returns a copy of the registered checks.
func (reg *Registry) Checks() []Check {
	return append([]Check(nil), reg.checks...)
}

// Names returns the names of the registered checks in order.
func (reg *Registry) Names() []string {
	names := make([]string, len(reg.checks))
	for i, c := range reg.checks {
		names[i] = c.Name
	}
	return names
}

// Run applies every check to ds and returns all records in registration
// order.
func (reg *Registry) Run(ds *dataset.Dataset) []Record {
	var records []Record
	for _, c := range reg.checks {
		r := NewReporter(c.Name)
		c.Fn(ds, r)
		records = append(records, r.Records()...)
	}
	return records
}
