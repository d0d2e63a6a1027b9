package checksum

import (
	"encoding/hex"
	"io"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"lukechampine.com/blake3"
)

// BlockSize is the read size used when streaming a file into the hash.
const BlockSize = 4096

// Hasher computes BLAKE3 digests of file contents. Digests are memoized per
// path for the lifetime of the Hasher, so a Hasher must not outlive a single
// run if files may change in place.
type Hasher struct {
	mu   sync.Mutex
	sums map[string]string
	hits int
}

// New creates a Hasher with an empty memo.
func New() *Hasher {
	return &Hasher{sums: make(map[string]string)}
}

// Sum returns the hex digest of the file at path.
func (h *Hasher) Sum(path string) (string, error) {
	h.mu.Lock()
	if sum, ok := h.sums[path]; ok {
		h.hits++
		h.mu.Unlock()
		return sum, nil
	}
	h.mu.Unlock()

	sum, err := File(path)
	if err != nil {
		return "", err
	}

	h.mu.Lock()
	h.sums[path] = sum
	h.mu.Unlock()
	return sum, nil
}

// Forget drops the memoized digest of path.
func (h *Hasher) Forget(path string) {
	h.mu.Lock()
	delete(h.sums, path)
	h.mu.Unlock()
}

// Reset drops every memoized digest.
func (h *Hasher) Reset() {
	h.mu.Lock()
	h.sums = make(map[string]string)
	h.hits = 0
	h.mu.Unlock()
}

// Hits returns how many Sum calls were served from the memo.
func (h *Hasher) Hits() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hits
}

// File hashes the file at path without memoization.
func File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "checksum")
	}
	defer f.Close()
	return Reader(f)
}

// Reader hashes everything read from r in BlockSize chunks.
func Reader(r io.Reader) (string, error) {
	hash := blake3.New(32, nil)
	buf := make([]byte, BlockSize)
	if _, err := io.CopyBuffer(hash, onlyReader{r}, buf); err != nil {
		return "", errors.Wrap(err, "checksum")
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// Bytes hashes b.
func Bytes(b []byte) string {
	sum := blake3.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// onlyReader hides WriterTo so that io.CopyBuffer uses the fixed buffer.
type onlyReader struct {
	io.Reader
}
