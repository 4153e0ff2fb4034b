package config

// LoggingConfig selects the log format and level.
type LoggingConfig struct {
	// AppEnv "dev" switches to the console writer.
	AppEnv string `json:"APP_ENV"`
	Level  string `json:"LOG_LEVEL"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}
