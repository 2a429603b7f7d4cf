package checksum

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"
)

// Entry is one named piece of content contributing to a fingerprint.
type Entry struct {
	Path    string
	Content []byte
}

// Calculator is an interface for computing content checksums.
// This abstraction allows for different checksum strategies and algorithms.
type Calculator interface {
	// CalculateRaw computes a checksum of the raw, unmodified content.
	CalculateRaw(content []byte) string

	// Fingerprint computes a checksum over a set of entries that is independent
	// of the order they are passed in.
	Fingerprint(entries []Entry) string

	// Digest computes a checksum over an ordered list of strings.
	Digest(parts ...string) string
}

// SHA256 implements checksum calculation using SHA-256.
//
// SHA256 is a zero-size type and is safe for concurrent use by multiple goroutines.
// Using value semantics (pass by value) eliminates heap allocations.
type SHA256 struct{}

var _ Calculator = SHA256{}

// New creates a new SHA-256 based calculator.
// Returns by value to avoid heap allocation (SHA256 is a zero-size type).
func New() SHA256 {
	return SHA256{}
}

// CalculateRaw computes SHA-256 of raw content.
func (c SHA256) CalculateRaw(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Fingerprint hashes entries sorted by path. Every path and content is
// length-prefixed so that no two distinct sets share an input stream.
func (c SHA256) Fingerprint(entries []Entry) string {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	h := sha256.New()
	writeUint(h, uint64(len(sorted)))
	for _, e := range sorted {
		writeField(h, []byte(e.Path))
		writeField(h, e.Content)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Digest hashes parts in the order given, length-prefixed.
func (c SHA256) Digest(parts ...string) string {
	h := sha256.New()
	writeUint(h, uint64(len(parts)))
	for _, p := range parts {
		writeField(h, []byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, b []byte) {
	writeUint(h, uint64(len(b)))
	h.Write(b)
}

func writeUint(h hash.Hash, n uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n)
	h.Write(buf[:])
}
