// Package tarball reads and writes zstd-compressed package archives.
package tarball

import (
	"archive/tar"
	"bytes"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.trai.ch/scarb/internal/core/domain"
	"go.trai.ch/zerr"
)

// entryMtime is the modification time of every archive entry.
var entryMtime = time.Unix(1, 0)

// reservedNames may not be shipped as package sources.
var reservedNames = []string{domain.VersionFileName, domain.OriginalManifestFileName, domain.OkFileName}

// File is one entry to pack.
type File struct {
	// ArchivePath is the slash-separated path relative to the package root.
	ArchivePath string
	// SourcePath is read from disk when Content is nil.
	SourcePath string
	Content    []byte
}

// Archiver packs and unpacks package tarballs.
type Archiver struct{}

// NewArchiver creates an Archiver.
func NewArchiver() *Archiver {
	return &Archiver{}
}

// CheckReserved fails when sources include a reserved file name at the package root.
func CheckReserved(sources []File) error {
	var offending []string
	for _, f := range sources {
		if slices.Contains(reservedNames, f.ArchivePath) {
			offending = append(offending, f.ArchivePath)
		}
	}
	if len(offending) == 0 {
		return nil
	}
	slices.Sort(offending)
	return zerr.Wrap(domain.ErrTarballReservedName, "reserved files: "+strings.Join(offending, ", "))
}

// Pack writes a deterministic archive of files under the directory prefix.
// VERSION is always the first entry and the rest follow in lexicographic order.
func (a *Archiver) Pack(w io.Writer, prefix string, files []File) error {
	sorted := slices.Clone(files)
	slices.SortFunc(sorted, func(x, y File) int { return strings.Compare(x.ArchivePath, y.ArchivePath) })
	entries := append([]File{{
		ArchivePath: domain.VersionFileName,
		Content:     []byte(domain.TarballFormatVersion + "\n"),
	}}, sorted...)

	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return zerr.Wrap(err, "failed to create zstd encoder")
	}
	tw := tar.NewWriter(enc)

	for _, f := range entries {
		content := f.Content
		if content == nil {
			//nolint:gosec // Source paths come from the package listing
			content, err = os.ReadFile(f.SourcePath)
			if err != nil {
				_ = enc.Close()
				return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", f.SourcePath)
			}
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     path.Join(prefix, f.ArchivePath),
			Mode:     domain.FilePerm,
			Size:     int64(len(content)),
			ModTime:  entryMtime,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			_ = enc.Close()
			return zerr.With(zerr.Wrap(err, "failed to write archive entry"), "entry", hdr.Name)
		}
		if _, err := tw.Write(content); err != nil {
			_ = enc.Close()
			return zerr.With(zerr.Wrap(err, "failed to write archive entry"), "entry", hdr.Name)
		}
	}

	if err := tw.Close(); err != nil {
		_ = enc.Close()
		return zerr.Wrap(err, "failed to finish archive")
	}
	if err := enc.Close(); err != nil {
		return zerr.Wrap(err, "failed to finish archive")
	}
	return nil
}

// PackBytes is Pack into memory.
func (a *Archiver) PackBytes(prefix string, files []File) ([]byte, error) {
	var buf bytes.Buffer
	if err := a.Pack(&buf, prefix, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unpack extracts the archive at archivePath into dest.
// Every entry must live under prefix, which is stripped.
func (a *Archiver) Unpack(archivePath, prefix, dest string) error {
	//nolint:gosec // Archive path is produced by the registry cache
	f, err := os.Open(archivePath)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", archivePath)
	}
	defer f.Close() //nolint:errcheck // Read-only file

	dec, err := zstd.NewReader(f)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrTarballInvalid.Error()), "path", archivePath)
	}
	defer dec.Close()

	tr := tar.NewReader(dec)
	sawVersion := false
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return zerr.With(zerr.Wrap(err, domain.ErrTarballInvalid.Error()), "path", archivePath)
		}

		rel, err := entryPath(hdr.Name, prefix)
		if err != nil {
			return zerr.With(err, "path", archivePath)
		}
		if rel == "" {
			continue
		}
		if rel == domain.VersionFileName {
			sawVersion = true
		}

		target := filepath.Join(dest, filepath.FromSlash(rel))
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, domain.DirPerm); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", target)
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr); err != nil {
				return err
			}
		default:
			return zerr.With(zerr.Wrap(domain.ErrTarballInvalid, "unsupported entry type"), "entry", hdr.Name)
		}
	}

	if !sawVersion {
		return zerr.With(zerr.Wrap(domain.ErrTarballInvalid, "missing VERSION entry"), "path", archivePath)
	}
	return nil
}

func entryPath(name, prefix string) (string, error) {
	clean := path.Clean(name)
	if clean == prefix {
		return "", nil
	}
	rel, ok := strings.CutPrefix(clean, prefix+"/")
	if !ok || path.IsAbs(clean) || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", zerr.With(zerr.Wrap(domain.ErrTarballInvalid, "entry escapes package directory"), "entry", name)
	}
	return rel, nil
}

func writeEntry(target string, r io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create directory"), "path", filepath.Dir(target))
	}
	//nolint:gosec // Target is validated to stay under the destination
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, domain.FilePerm)
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrFileOpenFailed.Error()), "path", target)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		return zerr.With(zerr.Wrap(err, "failed to extract archive entry"), "path", target)
	}
	return out.Close()
}
