package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "trips.db", c.DatabasePath)
	assert.Empty(t, c.RemoteDSN)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 50, c.SyncBatchSize)
	assert.Equal(t, 2*time.Second, c.RetryBaseDelay)
	assert.Equal(t, 10, c.PageSize)
	assert.Equal(t, "tripkeeper.log", c.LogFile)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_FileThenFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTemp(t, "cfg.yaml", "company_id: from-file\nremote_dsn: postgres://file\n")
	os.Args = []string{"testbin", "-c", path, "-company", "from-flag"}

	cfg := LoadConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "from-flag", cfg.CompanyID)
	assert.Equal(t, "postgres://file", cfg.RemoteDSN)
	assert.Equal(t, "trips.db", cfg.DatabasePath)
}
