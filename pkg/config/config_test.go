package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "./example.txt", cfg.Path)
	assert.Equal(t, "Hello from write_all()!", cfg.FirstPayload)
	assert.Equal(t, "Hello from write()!", cfg.SecondPayload)
	assert.Equal(t, PolicyRemove, cfg.FailurePolicy)
	assert.Empty(t, cfg.JournalDir)
	assert.Empty(t, cfg.MetricsFile)
	assert.False(t, cfg.Observe)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IOPRIMER_PATH", "/tmp/out.txt")
	t.Setenv("IOPRIMER_FAILURE_POLICY", "ATOMIC")
	t.Setenv("IOPRIMER_JOURNAL_DIR", "/tmp/journal")
	t.Setenv("IOPRIMER_METRICS_FILE", "/tmp/ioprimer.prom")
	t.Setenv("IOPRIMER_OBSERVE", "1")
	t.Setenv("IOPRIMER_LOG_LEVEL", "debug")

	cfg := LoadFromEnv(nil)

	assert.Equal(t, "/tmp/out.txt", cfg.Path)
	assert.Equal(t, PolicyAtomic, cfg.FailurePolicy)
	assert.Equal(t, "/tmp/journal", cfg.JournalDir)
	assert.Equal(t, "/tmp/ioprimer.prom", cfg.MetricsFile)
	assert.True(t, cfg.Observe)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DefaultFirstPayload, cfg.FirstPayload)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ioprimer.yaml")
	body := "path: out/data.bin\nfailure_policy: keep\nsecond_payload: bye\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := DefaultConfig()
	require.NoError(t, LoadFile(cfg, path))

	assert.Equal(t, "out/data.bin", cfg.Path)
	assert.Equal(t, PolicyKeep, cfg.FailurePolicy)
	assert.Equal(t, "bye", cfg.SecondPayload)
	assert.Equal(t, DefaultFirstPayload, cfg.FirstPayload)
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	assert.NoError(t, LoadFile(DefaultConfig(), ""))
	assert.Error(t, LoadFile(DefaultConfig(), filepath.Join(dir, "missing.yaml")))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("path: [unterminated"), 0o644))
	assert.Error(t, LoadFile(DefaultConfig(), bad))
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ioprimer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("path: from-file.txt\n"), 0o644))
	t.Setenv("IOPRIMER_PATH", "from-env.txt")

	cfg := DefaultConfig()
	require.NoError(t, LoadFile(cfg, path))
	LoadFromEnv(cfg)

	assert.Equal(t, "from-env.txt", cfg.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*WriteConfig)
		wantErr error
	}{
		{
			name:   "valid default config",
			mutate: func(*WriteConfig) {},
		},
		{
			name:   "keep policy",
			mutate: func(c *WriteConfig) { c.FailurePolicy = PolicyKeep },
		},
		{
			name:   "atomic policy",
			mutate: func(c *WriteConfig) { c.FailurePolicy = PolicyAtomic },
		},
		{
			name:    "empty path",
			mutate:  func(c *WriteConfig) { c.Path = "" },
			wantErr: ErrEmptyPath,
		},
		{
			name:    "unknown policy",
			mutate:  func(c *WriteConfig) { c.FailurePolicy = "retry" },
			wantErr: ErrInvalidPolicy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "Validate() error = %v, want %v", err, tt.wantErr)
		})
	}
}
