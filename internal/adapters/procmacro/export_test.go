package procmacro

// FakeLibrary stands in for a dynamic library in tests.
type FakeLibrary struct {
	ABIVersion  uint32
	Expansions  string
	Expand      func(kind, name, callSite, args, item string) string
	PostProcess func(context string) string
	Docs        map[string]string
	Fingerprint func() uint64
}

// NewLoaderWith creates a Loader that opens libraries with open.
func NewLoaderWith(open func(path string) (FakeLibrary, error)) *Loader {
	l := NewLoader()
	l.open = func(path string) (vtable, error) {
		lib, err := open(path)
		if err != nil {
			return vtable{}, err
		}
		return vtable{
			abiVersion:     func() uint32 { return lib.ABIVersion },
			listExpansions: func() string { return lib.Expansions },
			expand:         lib.Expand,
			postProcess:    lib.PostProcess,
			doc: func(name string) (string, bool) {
				d, ok := lib.Docs[name]
				return d, ok
			},
			fingerprint: lib.Fingerprint,
		}, nil
	}
	return l
}
