package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtm0/obscheck/internal/checksum"
	"github.com/rtm0/obscheck/internal/fixtures"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	clearCache, concurrency, quiet, verbosity = false, 0, false, 0
	configPath, jsonLogs, configOverwrite = "", false, false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func setup(t *testing.T) string {
	t.Helper()
	pterm.DisableColor()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	_, err := fixtures.WriteAll(filepath.Join(dir, "check_obs"), 2020, fixtures.Daily, false)
	require.NoError(t, err)
	return filepath.Join(dir, "check_obs")
}

func TestReportPass(t *testing.T) {
	root := setup(t)
	out, err := execute(t, "report", "valid", filepath.Join(root, "valid-1D-2020.nc"))
	require.NoError(t, err)
	assert.Contains(t, out, "pass")

	out, err = execute(t, "-q", "report", "valid", filepath.Join(root, "valid-1D-2020.nc"))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestReportIncomplete(t *testing.T) {
	root := setup(t)
	path := filepath.Join(root, "incomplete-1D-2020.nc")

	for _, extra := range [][]string{nil, nil, {"--clear-cache"}} {
		args := append([]string{"report", "incomplete", path}, extra...)
		out, err := execute(t, args...)
		assert.True(t, errors.Is(err, errFailed))
		assert.Contains(t, out, "not a full year")
	}
}

func TestReportInconsistentName(t *testing.T) {
	root := setup(t)
	out, err := execute(t, "report", "valid", filepath.Join(root, "incomplete-1D-2020.nc"))
	assert.True(t, errors.Is(err, errFailed))
	assert.Contains(t, out, "filename does not match")
}

func TestReportGlob(t *testing.T) {
	root := setup(t)
	out, err := execute(t, "report", "wrong", filepath.Join(root, "**", "wrong_*.nc"))
	assert.True(t, errors.Is(err, errFailed))
	assert.Contains(t, out, "different years")
	assert.Contains(t, out, "CO_density.units='ug/m3' not in ['mg m-3', 'mg/m3']")
	assert.Contains(t, out, "0/4 files pass, 4 failed")
}

func TestCacheCommands(t *testing.T) {
	root := setup(t)
	path := filepath.Join(root, "wrong_years-1D-2020.nc")
	_, err := execute(t, "report", "wrong_years", path)
	require.Error(t, err)

	out, err := execute(t, "cache", "show", path, filepath.Join(root, "valid-1D-2020.nc"))
	require.NoError(t, err)
	assert.Contains(t, out, "(2 cached, blocked)")
	assert.Contains(t, out, "valid-1D-2020.nc "+checksum.Bytes(mustRead(t, filepath.Join(root, "valid-1D-2020.nc")))+" (0 cached, clear)")
	assert.Contains(t, out, "time_checker: different years")

	_, err = execute(t, "cache", "clear")
	require.NoError(t, err)

	out, err = execute(t, "cache", "show", path)
	require.NoError(t, err)
	assert.Contains(t, out, "(0 cached, clear)")
}

func mustRead(t *testing.T, path string) []byte {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

func TestExpand(t *testing.T) {
	root := setup(t)
	paths, err := expand([]string{
		filepath.Join(root, "valid-1D-2020.nc"),
		filepath.Join(root, "bad_*.nc"),
		filepath.Join(root, "nothing-*.nc"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "valid-1D-2020.nc"),
		filepath.Join(root, "bad_times-1D-2020.nc"),
		filepath.Join(root, "nothing-*.nc"),
	}, paths)
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "obscheck.toml")
	out, err := execute(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	_, err = execute(t, "config", "init", "--config", path)
	assert.Error(t, err)
}
