package config

import (
	"github.com/dmitrijs2005/tripkeeper/internal/flagx"
	"github.com/dmitrijs2005/tripkeeper/internal/timex"
)

// FileConfig is the on-disk shape of Config.
type FileConfig struct {
	DatabaseDSN    string         `json:"database_dsn" yaml:"database_dsn"`
	LogLevel       string         `json:"log_level" yaml:"log_level"`
	ConnectTimeout timex.Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// parseFile overlays Config with the file named by -c/-config, if any.
// Errors panic; empty keys keep the current value.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var fc FileConfig
	if err := flagx.DecodeFile(path, &fc); err != nil {
		panic(err)
	}

	if fc.DatabaseDSN != "" {
		config.DatabaseDSN = fc.DatabaseDSN
	}
	if fc.LogLevel != "" {
		config.LogLevel = fc.LogLevel
	}
	if fc.ConnectTimeout.Duration > 0 {
		config.ConnectTimeout = fc.ConnectTimeout.Duration
	}
}
