package ports

// FileHasher computes content hashes of files.
//
//go:generate mockgen -destination=mocks/hasher_mock.go -package=mocks -source=hasher.go
type FileHasher interface {
	// ComputeFileHash hashes the content of one file.
	ComputeFileHash(path string) (uint64, error)
	// ComputeSourcesHash hashes every file under root with the extension ext,
	// as sorted pairs of relative path and content hash.
	ComputeSourcesHash(root, ext string) (uint64, error)
}
