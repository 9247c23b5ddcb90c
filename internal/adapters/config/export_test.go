package config

// NewLoaderAt returns a Loader whose working directory is fixed to dir.
func NewLoaderAt(dir string) *Loader {
	return &Loader{getwd: func() (string, error) { return dir, nil }}
}
