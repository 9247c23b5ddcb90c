package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"strings"

	"github.com/zeebo/blake3"
	"go.trai.ch/zerr"
)

// ChecksumAlgorithm names a digest algorithm for package archives.
type ChecksumAlgorithm string

const (
	// ChecksumSHA256 is the default algorithm used by registries.
	ChecksumSHA256 ChecksumAlgorithm = "sha256"
	// ChecksumBlake3 is accepted from registries that publish blake3 digests.
	ChecksumBlake3 ChecksumAlgorithm = "blake3"
)

// Checksum is an algorithm-tagged digest, rendered as "<algo>:<hex>".
type Checksum struct {
	Algorithm ChecksumAlgorithm
	Hex       string
}

// ParseChecksum parses "<algo>:<hex>".
func ParseChecksum(s string) (Checksum, error) {
	algo, digest, ok := strings.Cut(s, ":")
	if !ok {
		return Checksum{}, zerr.With(zerr.Wrap(ErrInvalidChecksum, ""), "checksum", s)
	}
	c := Checksum{Algorithm: ChecksumAlgorithm(algo), Hex: strings.ToLower(digest)}
	switch c.Algorithm {
	case ChecksumSHA256, ChecksumBlake3:
	default:
		return Checksum{}, zerr.With(zerr.Wrap(ErrInvalidChecksum, "unsupported algorithm"), "checksum", s)
	}
	if _, err := hex.DecodeString(c.Hex); err != nil || len(c.Hex) != 64 {
		return Checksum{}, zerr.With(zerr.Wrap(ErrInvalidChecksum, ""), "checksum", s)
	}
	return c, nil
}

// IsZero reports whether no checksum is set.
func (c Checksum) IsZero() bool {
	return c.Hex == ""
}

// String renders the checksum as "<algo>:<hex>".
func (c Checksum) String() string {
	if c.IsZero() {
		return ""
	}
	return string(c.Algorithm) + ":" + c.Hex
}

// NewChecksumHash returns a hash.Hash for algo.
func NewChecksumHash(algo ChecksumAlgorithm) hash.Hash {
	if algo == ChecksumBlake3 {
		return blake3.New()
	}
	return sha256.New()
}

// ComputeChecksum digests r with algo.
func ComputeChecksum(algo ChecksumAlgorithm, r io.Reader) (Checksum, error) {
	h := NewChecksumHash(algo)
	if _, err := io.Copy(h, r); err != nil {
		return Checksum{}, zerr.Wrap(err, ErrFileHashFailed.Error())
	}
	return Checksum{Algorithm: algo, Hex: hex.EncodeToString(h.Sum(nil))}, nil
}

// Verify digests r and compares it with c.
func (c Checksum) Verify(r io.Reader) error {
	got, err := ComputeChecksum(c.Algorithm, r)
	if err != nil {
		return err
	}
	if got.Hex != c.Hex {
		return zerr.With(zerr.With(zerr.Wrap(ErrChecksumMismatch, ""), "expected", c.String()), "actual", got.String())
	}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Checksum) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Checksum) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = Checksum{}
		return nil
	}
	parsed, err := ParseChecksum(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
