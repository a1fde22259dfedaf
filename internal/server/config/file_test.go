package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseFile_JSONOverlaysOnlySetFields(t *testing.T) {
	path := writeTemp(t, "server.json", `{
		"database_dsn": "postgres://db",
		"review_window": "24h",
		"counter_window": 3600000000000,
		"admin_user_ids": ["root"],
		"allow_concurrent_resolutions": true
	}`)

	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"server", "-c", path}

	var got Config
	got.LoadDefaults()
	parseFile(&got)

	want := Config{}
	want.LoadDefaults()
	want.DatabaseDSN = "postgres://db"
	want.ReviewWindow = 24 * time.Hour
	want.CounterWindow = time.Hour
	want.AdminUserIDs = []string{"root"}
	want.AllowConcurrentResolutions = true

	assert.Empty(t, cmp.Diff(want, got))
}

func TestParseFile_YAML(t *testing.T) {
	path := writeTemp(t, "server.yaml", `
endpoint_addr_grpc: ":7000"
grace_window: 168h
lapse_policy: escalate
redis_addr: redis:6379
`)

	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"server", "-config", path}

	var got Config
	got.LoadDefaults()
	parseFile(&got)

	assert.Equal(t, ":7000", got.EndpointAddrGRPC)
	assert.Equal(t, 168*time.Hour, got.GraceWindow)
	assert.Equal(t, LapseEscalate, got.LapsePolicy)
	assert.Equal(t, "redis:6379", got.RedisAddr)
	assert.Equal(t, 72*time.Hour, got.ReviewWindow)
}

func TestParseFile_NoFlagIsNoop(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"server"}

	var got Config
	got.LoadDefaults()
	parseFile(&got)

	var want Config
	want.LoadDefaults()
	assert.Equal(t, want, got)
}

func TestParseFile_MissingFilePanics(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"server", "-c", filepath.Join(t.TempDir(), "missing.json")}

	var c Config
	assert.Panics(t, func() { parseFile(&c) })
}

func TestParseFile_MalformedYAMLPanics(t *testing.T) {
	path := writeTemp(t, "bad.yml", "review_window: [not, a, duration]\n")

	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = []string{"server", "-c", path}

	var c Config
	assert.Panics(t, func() { parseFile(&c) })
}

func TestLoadFile(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, LapseFavorSubmitter, cfg.LapsePolicy)

	path := writeTemp(t, "ops.yml", "database_dsn: postgres://ops\nlapse_policy: escalate\n")
	cfg, err = LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://ops", cfg.DatabaseDSN)
	assert.Equal(t, LapseEscalate, cfg.LapsePolicy)

	path = writeTemp(t, "bad.json", `{"lapse_policy": "coinflip"}`)
	_, err = LoadFile(path)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
