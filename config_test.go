package delay_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/delay"
)

func TestDefaultConfig(t *testing.T) {
	cfg := delay.DefaultConfig()
	assert.Equal(t, delay.BackendFile, cfg.Store.Backend)
	assert.Equal(t, delay.DefaultFilePath, cfg.Store.Path)
	assert.Equal(t, "delay", cfg.Command.Name)
	assert.Equal(t, 4, cfg.Command.PermissionLevel)
	assert.Equal(t, int64(delay.DefaultAutosaveTicks), cfg.Autosave.EveryTicks)
	assert.Equal(t, delay.DefaultNotifySubject, cfg.Notify.Subject)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := delay.LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Equal(t, delay.DefaultConfig(), cfg)

	cfg, err = delay.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, delay.DefaultConfig(), cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "delay.toml")
	content := `
[store]
backend = "redis"
addr = "cache:6379"
prefix = "world1"

[store.s3]
bucket = "saves"

[autosave]
every_ticks = 1200
save_timeout = "5s"

[command]
name = "later"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DELAY_COMMAND_PERMISSION_LEVEL", "2")
	t.Setenv("DELAY_STORE_PREFIX", "world2")
	t.Setenv("DELAY_NOTIFY_NATS_URL", "nats://bus:4222")

	cfg, err := delay.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, delay.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, "cache:6379", cfg.Store.Addr)
	assert.Equal(t, "world2", cfg.Store.Prefix)
	assert.Equal(t, "saves", cfg.Store.S3.Bucket)
	assert.Equal(t, delay.DefaultS3Region, cfg.Store.S3.Region)
	assert.Equal(t, int64(1200), cfg.Autosave.EveryTicks)
	assert.Equal(t, 5*time.Second, cfg.Autosave.SaveTimeout)
	assert.Equal(t, delay.DefaultAutosaveQueueSize, cfg.Autosave.MaxQueueSize)
	assert.Equal(t, "later", cfg.Command.Name)
	assert.Equal(t, 2, cfg.Command.PermissionLevel)
	assert.Equal(t, "nats://bus:4222", cfg.Notify.NATSURL)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte("[store\n"), 0o600))
	_, err := delay.LoadConfig(bad)
	assert.Error(t, err)

	t.Setenv("DELAY_AUTOSAVE_EVERY_TICKS", "often")
	_, err = delay.LoadConfig("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := delay.DefaultConfig()
	cfg.Command.Name = ""
	assert.Error(t, cfg.Validate())

	cfg = delay.DefaultConfig()
	cfg.Command.PermissionLevel = -1
	assert.Error(t, cfg.Validate())

	cfg = delay.DefaultConfig()
	cfg.Autosave.EveryTicks = -5
	assert.Error(t, cfg.Validate())
}
