package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Name    string        `required:"true"`
	Retries int           `default:"3"`
	Timeout time.Duration `split_words:"true" default:"5s"`
}

func TestNewReadsEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("CFGTEST_NAME=from-file\nCFGTEST_RETRIES=7\n"), 0o600))

	t.Setenv("CFGTEST_NAME", "")
	require.NoError(t, os.Unsetenv("CFGTEST_NAME"))
	t.Setenv("CFGTEST_RETRIES", "9")

	SetEnvFile(path)
	t.Cleanup(func() { SetEnvFile("") })

	conf, err := New[sampleConfig]("CFGTEST")
	require.NoError(t, err)
	assert.Equal(t, "from-file", conf.Name)
	assert.Equal(t, 9, conf.Retries, "existing variables win over the file")
	assert.Equal(t, 5*time.Second, conf.Timeout)
}

func TestNewMissingRequired(t *testing.T) {
	SetEnvFile(filepath.Join(t.TempDir(), "absent.env"))
	t.Cleanup(func() { SetEnvFile("") })

	_, err := New[sampleConfig]("CFGTEST_MISSING")
	assert.Error(t, err)
}

func TestMustNewPanics(t *testing.T) {
	t.Setenv("CFGPANIC_NAME", "")
	require.NoError(t, os.Unsetenv("CFGPANIC_NAME"))

	assert.Panics(t, func() { MustNew[sampleConfig]("CFGPANIC") })
}
