package config

import (
	"github.com/dmitrijs2005/tripkeeper/internal/flagx"
	"github.com/dmitrijs2005/tripkeeper/internal/timex"
)

// FileConfig mirrors Config for JSON and YAML files. Durations accept either
// strings like "3s" or integer nanoseconds.
type FileConfig struct {
	DatabasePath        string         `json:"database_path" yaml:"database_path"`
	RemoteDSN           string         `json:"remote_dsn" yaml:"remote_dsn"`
	CompanyID           string         `json:"company_id" yaml:"company_id"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval" yaml:"online_check_interval"`
	SyncBatchSize       int            `json:"sync_batch_size" yaml:"sync_batch_size"`
	RetryBaseDelay      timex.Duration `json:"retry_base_delay" yaml:"retry_base_delay"`
	PageSize            int            `json:"page_size" yaml:"page_size"`
	LogFile             string         `json:"log_file" yaml:"log_file"`
	LogLevel            string         `json:"log_level" yaml:"log_level"`
}

// parseFile overlays Config with the file named by -c/-config. Keys missing
// from the file keep their current value. Read and decode errors panic.
func parseFile(cfg *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}

	var fc FileConfig
	if err := flagx.DecodeFile(path, &fc); err != nil {
		panic(err)
	}

	setString(&cfg.DatabasePath, fc.DatabasePath)
	setString(&cfg.RemoteDSN, fc.RemoteDSN)
	setString(&cfg.CompanyID, fc.CompanyID)
	setString(&cfg.LogFile, fc.LogFile)
	setString(&cfg.LogLevel, fc.LogLevel)
	if fc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = fc.OnlineCheckInterval.Duration
	}
	if fc.RetryBaseDelay.Duration > 0 {
		cfg.RetryBaseDelay = fc.RetryBaseDelay.Duration
	}
	if fc.SyncBatchSize > 0 {
		cfg.SyncBatchSize = fc.SyncBatchSize
	}
	if fc.PageSize > 0 {
		cfg.PageSize = fc.PageSize
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
