package report

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"

	"github.com/rtm0/obscheck/internal/check"
	"github.com/rtm0/obscheck/internal/validate"
)

func TestMain(m *testing.M) {
	pterm.DisableColor()
	m.Run()
}

var results = []validate.Result{
	{Path: "valid-1D-2020.nc", Digest: "aa"},
	{
		Path:    "incomplete-1D-2020.nc",
		Digest:  "bb",
		Cached:  true,
		Records: []check.Record{{Check: "time_checker", Message: "not a full year"}},
	},
	{Path: "broken-1D-2020.nc", Err: errors.New("not a netCDF file")},
}

func TestResults(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Results(results)

	out := buf.String()
	assert.Contains(t, out, "valid-1D-2020.nc pass")
	assert.Contains(t, out, "incomplete-1D-2020.nc (cached)")
	assert.Contains(t, out, "time_checker: not a full year")
	assert.Contains(t, out, "broken-1D-2020.nc: not a netCDF file")
	assert.Contains(t, out, "1/3 files pass, 2 failed")
}

func TestAllPass(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, false).Results(results[:1])
	assert.Contains(t, buf.String(), "1/1 files pass\n")
}

func TestQuiet(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Results(results)
	assert.Empty(t, buf.String())
}
