package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := CreateConfig("")

	assert.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestConfigLoadWithoutExistence(t *testing.T) {
	_, err := CreateConfig("nonexistent.yml")

	assert.Error(t, err)
}

func TestConfigLoadWithInvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	assert.NoError(t, os.WriteFile(filepath.Join(tmpDir, "invalid.yml"), []byte("invalid"), 0644))

	_, err := CreateConfig(filepath.Join(tmpDir, "invalid.yml"))

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot unmarshal")
}

func TestConfigLoadWithValidYAML(t *testing.T) {
	tmpDir := t.TempDir()

	assert.NoError(t, os.WriteFile(filepath.Join(tmpDir, "valid.yml"), []byte("backend: sqlite\nsqlite_path: data/kv.db\nidle_timeout: 30s\nhttp_addr: \"\"\n"), 0644))

	cfg, err := CreateConfig(filepath.Join(tmpDir, "valid.yml"))

	assert.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "data/kv.db", cfg.SQLitePath)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.Equal(t, "", cfg.HTTPAddr)
	assert.Equal(t, ":6379", cfg.RespAddr)
	assert.NoError(t, cfg.Validate())
}

func TestConfigApplyEnv(t *testing.T) {
	cfg := Default()

	err := cfg.ApplyEnv(lookupFrom(map[string]string{
		"KVSERVER_BACKEND":      "sqlite",
		"KVSERVER_AOF_PATH":     "db.aof",
		"KVSERVER_IDLE_TIMEOUT": "1m",
		"OTHER":                 "ignored",
	}))

	assert.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, "db.aof", cfg.AofPath)
	assert.Equal(t, time.Minute, cfg.IdleTimeout)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
}

func TestConfigApplyEnvInvalidDuration(t *testing.T) {
	cfg := Default()

	err := cfg.ApplyEnv(lookupFrom(map[string]string{"KVSERVER_IDLE_TIMEOUT": "soon"}))

	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	cfg := Default()
	cfg.Backend = "redis"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Backend = BackendSQLite
	cfg.SQLitePath = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.RespAddr = ""
	cfg.HTTPAddr = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadDotEnv(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))

	path := filepath.Join(t.TempDir(), ".env")
	assert.NoError(t, os.WriteFile(path, []byte("KVSERVER_TEST_DOTENV=loaded\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("KVSERVER_TEST_DOTENV") })

	assert.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "loaded", os.Getenv("KVSERVER_TEST_DOTENV"))
}
