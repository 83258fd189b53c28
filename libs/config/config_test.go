package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPort(t *testing.T) {
	t.Setenv("TEST_PORT", "8085")
	p, err := Port("TEST_PORT", "1")
	require.NoError(t, err)
	assert.Equal(t, "8085", p)

	t.Setenv("TEST_PORT", "70000")
	_, err = Port("TEST_PORT", "1")
	require.Error(t, err)
}

func TestIntAndDuration(t *testing.T) {
	n, err := Int("TEST_UNSET_INT", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	t.Setenv("TEST_INT", "abc")
	_, err = Int("TEST_INT", 0)
	require.Error(t, err)

	t.Setenv("TEST_DUR", "15m")
	d, err := Duration("TEST_DUR", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, d)

	t.Setenv("TEST_DUR", "30")
	d, err = Duration("TEST_DUR", time.Second)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestBoolAndList(t *testing.T) {
	t.Setenv("TEST_BOOL", "yes")
	assert.True(t, Bool("TEST_BOOL", false))
	t.Setenv("TEST_BOOL", "nonsense")
	assert.True(t, Bool("TEST_BOOL", true))

	t.Setenv("TEST_LIST", " a, ,b ,c")
	assert.Equal(t, []string{"a", "b", "c"}, List("TEST_LIST"))
}

func TestLoadDotenv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("SLOTWISE_DOTENV_KEY=from-file\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("SLOTWISE_DOTENV_KEY") })

	require.NoError(t, LoadDotenv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", String("SLOTWISE_DOTENV_KEY", ""))
}
