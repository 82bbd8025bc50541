package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTick_RequiresRedis(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chain:
  providers:
    - name: local
      url: http://127.0.0.1:1
`), 0o600))

	prev := cfgPath
	cfgPath = path
	t.Cleanup(func() { cfgPath = prev })

	err := runTick(tickCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.url")
}
