package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name:     "all flags",
			args:     []string{"cmd", "-d", "postgres://db/x", "-level", "debug", "-t", "5"},
			expected: &Config{DatabaseDSN: "postgres://db/x", LogLevel: "debug", ConnectTimeout: 5 * time.Second},
		},
		{name: "bad timeout", args: []string{"cmd", "-t", "soon"}, expectPanic: true},
	}

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := &Config{}

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected, config))
		})
	}
}

func Test_parseFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	path := dir + "/server.yaml"
	require.NoError(t, os.WriteFile(path, []byte("database_dsn: postgres://file\nconnect_timeout: 1m\n"), 0o600))
	os.Args = []string{"testbin", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFile(cfg)

	assert.Equal(t, "postgres://file", cfg.DatabaseDSN)
	assert.Equal(t, time.Minute, cfg.ConnectTimeout)
	assert.Equal(t, "info", cfg.LogLevel)
}
