package config

import "time"

// Config holds runtime settings for the tripkeeper client.
//
// RemoteDSN may be empty, in which case the client runs offline only and
// journaled mutations stay in the outbox.
type Config struct {
	DatabasePath        string
	RemoteDSN           string
	CompanyID           string
	OnlineCheckInterval time.Duration
	SyncBatchSize       int
	RetryBaseDelay      time.Duration
	PageSize            int
	LogFile             string
	LogLevel            string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "trips.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.SyncBatchSize = 50
	c.RetryBaseDelay = 2 * time.Second
	c.PageSize = 10
	c.LogFile = "tripkeeper.log"
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// a config file (if given) and command-line flags. Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)
	parseFlags(cfg)
	return cfg
}
