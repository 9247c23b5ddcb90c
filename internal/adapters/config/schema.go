package config

// UserConfig is the structure of <config dir>/config.yaml.
type UserConfig struct {
	Offline     *bool             `yaml:"offline"`
	Profile     string            `yaml:"profile"`
	TargetDir   string            `yaml:"target-dir"`
	Verbosity   string            `yaml:"verbosity"`
	Incremental *bool             `yaml:"incremental"`
	Jobs        int               `yaml:"jobs"`
	Compiler    string            `yaml:"compiler"`
	Corelib     string            `yaml:"corelib"`
	Net         NetConfig         `yaml:"net"`
	Registries  map[string]string `yaml:"registries"`
}

// NetConfig configures registry and git network access.
type NetConfig struct {
	Retries *int   `yaml:"retries"`
	Timeout string `yaml:"timeout"`
}

// toMap flattens the file into viper keys, skipping unset fields.
func (c *UserConfig) toMap() map[string]any {
	m := map[string]any{}
	if c.Offline != nil {
		m[KeyOffline] = *c.Offline
	}
	if c.Profile != "" {
		m[KeyProfile] = c.Profile
	}
	if c.TargetDir != "" {
		m[KeyTargetDir] = c.TargetDir
	}
	if c.Verbosity != "" {
		m[KeyVerbosity] = c.Verbosity
	}
	if c.Incremental != nil {
		m[KeyIncremental] = *c.Incremental
	}
	if c.Jobs > 0 {
		m[KeyJobs] = c.Jobs
	}
	if c.Compiler != "" {
		m[KeyCompiler] = c.Compiler
	}
	if c.Corelib != "" {
		m[KeyCorelib] = c.Corelib
	}
	if c.Net.Retries != nil {
		m[KeyNetRetries] = *c.Net.Retries
	}
	if c.Net.Timeout != "" {
		m[KeyNetTimeout] = c.Net.Timeout
	}
	return m
}
