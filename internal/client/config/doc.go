// Package config loads runtime configuration for the tripkeeper client.
//
// Sources, later ones winning:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file given with -c or -config.
//  3. Command-line flags.
//
// Supported flags
//
//	-f string       local database file (default "trips.db")
//	-d string       backend DSN; empty keeps the client offline
//	-company string company id used for new trips and listings
//	-i int          online check interval in seconds
//	-b int          outbox entries pushed per batch
//	-l string       log file (rotated)
//	-level string   log level
//
// A YAML file looks like:
//
//	database_path: /var/lib/tripkeeper/trips.db
//	remote_dsn: postgres://app@db/trips
//	company_id: acme
//	online_check_interval: 5s
//	retry_base_delay: 2s
package config
