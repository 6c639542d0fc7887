package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSet_WritesFile(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "taskforge.yml")
	t.Cleanup(func() { cfgFile = "" })

	err := configSetCmd.RunE(configSetCmd, []string{"llm.model", "claude-haiku-4.5"})
	require.NoError(t, err)

	data, err := os.ReadFile(cfgFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "claude-haiku-4.5")
}

func TestConfigSet_RejectsUnknownProvider(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "taskforge.yml")
	t.Cleanup(func() { cfgFile = "" })

	err := configSetCmd.RunE(configSetCmd, []string{"llm.provider", "watson"})
	require.Error(t, err)
	_, statErr := os.Stat(cfgFile)
	assert.True(t, os.IsNotExist(statErr), "invalid value must not be written")
}
