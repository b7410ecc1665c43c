package config

// SetPath points the AppConfig at a configuration file (tests)
func (x *AppConfig) SetPath(path string) {
	x.path = path
}
