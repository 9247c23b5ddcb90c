package domain

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// ShortHashLen is the width of a short hash: a u64 rendered in base 36.
const ShortHashLen = 13

// StableHasher produces hashes that are identical across hosts and runs.
// Every value is length-prefixed so concatenations cannot collide.
type StableHasher struct {
	d *xxhash.Digest
}

// NewStableHasher creates an empty StableHasher.
func NewStableHasher() *StableHasher {
	return &StableHasher{d: xxhash.New()}
}

// WriteString hashes a length-prefixed string.
func (h *StableHasher) WriteString(s string) {
	h.WriteUint64(uint64(len(s)))
	_, _ = h.d.WriteString(s)
}

// WriteStrings hashes a slice, prefixed with its length.
func (h *StableHasher) WriteStrings(ss []string) {
	h.WriteUint64(uint64(len(ss)))
	for _, s := range ss {
		h.WriteString(s)
	}
}

// WriteUint64 hashes a little-endian u64.
func (h *StableHasher) WriteUint64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.d.Write(buf[:])
}

// WriteBool hashes a single byte.
func (h *StableHasher) WriteBool(b bool) {
	if b {
		_, _ = h.d.Write([]byte{1})
		return
	}
	_, _ = h.d.Write([]byte{0})
}

// Sum64 returns the current hash value.
func (h *StableHasher) Sum64() uint64 {
	return h.d.Sum64()
}

// ShortHash returns the current hash value as a short hash string.
func (h *StableHasher) ShortHash() string {
	return FormatShortHash(h.d.Sum64())
}

// FormatShortHash renders v in base 36, zero-padded to ShortHashLen characters.
func FormatShortHash(v uint64) string {
	s := strconv.FormatUint(v, 36)
	if len(s) < ShortHashLen {
		s = strings.Repeat("0", ShortHashLen-len(s)) + s
	}
	return s
}

// ShortHash hashes the given parts with a StableHasher and returns the short form.
func ShortHash(parts ...string) string {
	h := NewStableHasher()
	for _, p := range parts {
		h.WriteString(p)
	}
	return h.ShortHash()
}
