package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_FirstExistingFileWinsAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[mainConfig]
port = 9100
tlsRedirect = true

[kafkaConfig]
messageMode = "kafka"
timeout = 3

[cacheConfig]
conversationListTTL = 120
`)
	t.Setenv(EnvJWTSecret, "")

	cfg, err := Load(filepath.Join(dir, "missing.toml"), path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.MainConfig.Port)
	assert.True(t, cfg.MainConfig.TLSRedirect)
	assert.Equal(t, "kafka", cfg.KafkaConfig.MessageMode)
	assert.Equal(t, 2*time.Minute, cfg.CacheConfig.ConversationListTTLDuration())
	// 文件未给出的字段保留默认值
	assert.Equal(t, "0.0.0.0", cfg.MainConfig.Host)
	assert.Equal(t, 4096, cfg.CacheConfig.MembershipLRUSize)
	assert.Equal(t, 3*time.Second, cfg.MysqlConfig.QueryTimeoutDuration())
}

func TestLoad_EnvOverridesSecrets(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.toml", `
[jwtConfig]
secret = "from-file"

[mysqlConfig]
password = "file-pass"
`)
	t.Setenv(EnvJWTSecret, "from-env")
	t.Setenv(EnvMysqlPassword, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWTConfig.Secret)
	assert.Equal(t, "file-pass", cfg.MysqlConfig.Password)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "nope.toml"))
	assert.Error(t, err)

	bad := writeFile(t, dir, "bad.toml", "[mainConfig\nport = ")
	_, err = Load(bad)
	assert.ErrorContains(t, err, "parse config")
}

func TestQueryTimeoutDuration(t *testing.T) {
	assert.Equal(t, 250*time.Millisecond, MysqlConfig{QueryTimeout: 250}.QueryTimeoutDuration())
	assert.Equal(t, 3*time.Second, MysqlConfig{}.QueryTimeoutDuration())
}
