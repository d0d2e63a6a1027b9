// Package validate runs the registered checks over observation files and
// caches their failures by content digest, so unchanged bad files are
// reported again without being re-read.
package validate

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rtm0/obscheck/internal/check"
	"github.com/rtm0/obscheck/internal/checksum"
	"github.com/rtm0/obscheck/internal/dataset"
)

// FilenameCheck is the check name attached to file name mismatches.
const FilenameCheck = "filename"

// ErrNotChecked is set on results of files the run never reached because an
// earlier file hit a storage failure.
var ErrNotChecked = errors.New("not checked")

// Store is the error cache used by a Validator.
type Store interface {
	Read(digest string) ([]check.Record, error)
	Save(digest string, records []check.Record) error
	Clear() error
}

// Opener parses a file into a dataset.
type Opener func(path string) (*dataset.Dataset, error)

// Result is the outcome of validating one file.
type Result struct {
	Path    string
	Digest  string
	Records []check.Record
	// Cached is set when Records were replayed from the store.
	Cached bool
	// Skipped is set when the file name does not belong to the dataset.
	Skipped bool
	// Err holds a failure to read, look up or parse the file.
	Err error
}

// Passed reports whether the file was hashed, looked up and checked without
// any violation.
func (r Result) Passed() bool {
	return r.Err == nil && !r.Skipped && r.Digest != "" && len(r.Records) == 0
}

// SafeToUpload is the upload gate: true only for files with no recorded
// errors for their current content.
func (r Result) SafeToUpload() bool {
	return r.Passed()
}

// Validator checks files against a registry, consulting the store first.
type Validator struct {
	checks      *check.Registry
	store       Store
	hasher      *checksum.Hasher
	open        Opener
	logger      *zap.SugaredLogger
	concurrency int
}

// Option customizes a Validator.
type Option func(*Validator)

// WithOpener replaces the netCDF reader.
func WithOpener(open Opener) Option {
	return func(v *Validator) { v.open = open }
}

// WithHasher shares a digest memo with the caller.
func WithHasher(h *checksum.Hasher) Option {
	return func(v *Validator) { v.hasher = h }
}

// WithConcurrency sets how many files are validated at once. Values below 2
// keep processing sequential.
func WithConcurrency(n int) Option {
	return func(v *Validator) { v.concurrency = n }
}

// New creates a Validator.
func New(checks *check.Registry, store Store, logger *zap.SugaredLogger, opts ...Option) *Validator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	v := &Validator{
		checks:      checks,
		store:       store,
		hasher:      checksum.New(),
		open:        dataset.Open,
		logger:      logger,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks a single file. The returned error is non-nil only for
// store failures, which must abort the run; problems with the file itself
// end up in the Result.
func (v *Validator) Validate(p *Pattern, path string) (Result, error) {
	res := Result{Path: path}
	if !p.Match(path) {
		res.Skipped = true
		res.Records = []check.Record{{
			Check:   FilenameCheck,
			Message: fmt.Sprintf("filename does not match '%s'", p),
		}}
		v.logger.Warnw("Skipping file", "path", path, "pattern", p.String())
		return res, nil
	}

	digest, err := v.hasher.Sum(path)
	if err != nil {
		res.Err = err
		v.logger.Errorw("Could not read file", "path", path, "err", err)
		return res, nil
	}
	res.Digest = digest

	cached, err := v.store.Read(digest)
	if err != nil {
		res.Err = errors.Wrapf(err, "look up %s", path)
		return res, res.Err
	}
	if len(cached) > 0 {
		res.Records = cached
		res.Cached = true
		v.logger.Debugw("Cache hit", "path", path, "digest", digest, "errors", len(cached))
		return res, nil
	}

	ds, err := v.open(path)
	if err != nil {
		res.Err = err
		// The file may still be in transit; hash it again next time.
		v.hasher.Forget(path)
		v.logger.Errorw("Could not parse dataset", "path", path, "err", err)
		return res, nil
	}
	res.Records = v.checks.Run(ds)
	if err := v.store.Save(digest, res.Records); err != nil {
		res.Err = errors.Wrapf(err, "store errors for %s", path)
		return res, res.Err
	}
	v.logger.Infow("Checked file", "path", path, "digest", digest, "errors", len(res.Records))
	return res, nil
}

// Run validates paths and returns one result per path, in input order. When
// clearCache is set the whole store is wiped before the first file. A store
// failure stops the run; files it did not reach carry ErrNotChecked.
func (v *Validator) Run(p *Pattern, paths []string, clearCache bool) ([]Result, error) {
	if clearCache {
		if err := v.store.Clear(); err != nil {
			return nil, errors.Wrap(err, "clear cache")
		}
		v.hasher.Reset()
	}
	results := make([]Result, len(paths))
	for i, path := range paths {
		results[i] = Result{Path: path, Err: ErrNotChecked}
	}
	if v.concurrency < 2 {
		for i, path := range paths {
			res, err := v.Validate(p, path)
			results[i] = res
			if err != nil {
				return results, err
			}
		}
		return results, nil
	}

	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(v.concurrency)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res, err := v.Validate(p, path)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// Failed counts results that did not pass.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if !r.Passed() {
			n++
		}
	}
	return n
}
