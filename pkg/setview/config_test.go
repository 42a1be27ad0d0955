package setview

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigFile = `
listen_address: ":9000"
data_dir: /var/lib/setview
max_retries: 3
retry_backoff: 2s
groups:
  beers:
    views:
      all:
        map: "function(doc) { emit(doc._id, null) }"
`

func TestNewConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "setview.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigFile), 0o600))

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("SETVIEW_DATA_DIR", "/data")
	t.Setenv("SETVIEW_SCRIPT_TIMEOUT", "1s")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddress)
	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, uint64(3), cfg.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
	assert.Equal(t, time.Second, cfg.ScriptTimeout)
	assert.Contains(t, cfg.Groups, "beers")

	fs := flag.NewFlagSet("setviewd", flag.ContinueOnError)
	cfg.FlagSet(fs)
	require.NoError(t, fs.Parse([]string{"-addr", ":9001", "-max-retries", "0"}))
	assert.Equal(t, ":9001", cfg.ListenAddress)
	assert.Equal(t, uint64(0), cfg.MaxRetries)
}

func TestNewConfig_InvalidEnv(t *testing.T) {
	t.Setenv("SETVIEW_MAX_RETRIES", "many")
	_, err := NewConfig()
	assert.Error(t, err)
}

func TestNewConfig_MissingFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := NewConfig()
	assert.Error(t, err)
}

func TestBuildSetview(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ReadFileData([]byte(testConfigFile)))
	cfg.DataDir = t.TempDir()

	sv, err := cfg.BuildSetview(context.Background())
	require.NoError(t, err)
	defer sv.Close()

	_, err = sv.Groups.Get("beers")
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	sv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/beers/_view/all", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	sv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
