package validate

import (
	"path"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/cockroachdb/errors"
)

// Pattern matches the files belonging to one dataset. Files are named
// <dataset>-<frequency>-<year>.nc.
type Pattern struct {
	Dataset string
	file    *regexp.Regexp
	year    *regexp.Regexp
}

// NewPattern compiles the file and year patterns for dataset.
func NewPattern(dataset string) (*Pattern, error) {
	if dataset == "" {
		return nil, errors.New("empty dataset name")
	}
	q := regexp.QuoteMeta(dataset)
	file, err := regexp.Compile(`^` + q + `.*\.nc$`)
	if err != nil {
		return nil, errors.Wrapf(err, "dataset %q", dataset)
	}
	year := regexp.MustCompile(`^` + q + `-(?:1H|1D|hourly|daily)-(\d{4})\.nc$`)
	return &Pattern{Dataset: dataset, file: file, year: year}, nil
}

// String returns the file-name expression.
func (p *Pattern) String() string {
	return p.file.String()
}

// Match reports whether the base name of filePath belongs to the dataset.
func (p *Pattern) Match(filePath string) bool {
	return p.file.MatchString(filepath.Base(filePath))
}

// Year extracts the four-digit year from a conventionally named file.
func (p *Pattern) Year(filePath string) (int, bool) {
	m := p.year.FindStringSubmatch(filepath.Base(filePath))
	if m == nil {
		return 0, false
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return y, true
}

// ObjectKey returns <dataset>/<year>/<file name> for routing archived files by
// year, or <dataset>/<file name> when the name carries no year.
func (p *Pattern) ObjectKey(filePath string) string {
	base := filepath.Base(filePath)
	if y, ok := p.Year(filePath); ok {
		return path.Join(p.Dataset, strconv.Itoa(y), base)
	}
	return path.Join(p.Dataset, base)
}
