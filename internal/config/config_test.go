package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("scheme", "", "")
	cmd.Flags().String("root", "", "")
	cmd.Flags().String("listen", ":8080", "")
	cmd.Flags().String("log-level", "info", "")
	cmd.Flags().StringArrayP("option", "o", nil, "")
	return cmd
}

func TestSchemeRequired(t *testing.T) {
	_, err := Load(newCommand())
	require.Error(t, err)
	require.Contains(t, err.Error(), "scheme is required")
}

func TestDefaults(t *testing.T) {
	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("scheme", "memory"))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Scheme)
	require.Equal(t, ":8080", cfg.Listen)
	require.Equal(t, "info", cfg.LogLevel)
	require.True(t, cfg.EnableMetrics)
	require.Equal(t, 3, cfg.RetryAttempts)
}

func TestOptionFlags(t *testing.T) {
	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("scheme", "fs"))
	require.NoError(t, cmd.Flags().Set("option", "datadir=/tmp/db"))
	require.NoError(t, cmd.Flags().Set("root", "/data"))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, "/tmp/db", cfg.Options["datadir"])
	require.Equal(t, "/data", cfg.Options["root"])
}

func TestInvalidOptionFlag(t *testing.T) {
	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("scheme", "fs"))
	require.NoError(t, cmd.Flags().Set("option", "no-equals-sign"))

	_, err := Load(cmd)
	require.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stratum.yaml")
	contents := []byte("scheme: sqlite\nlisten: \":9090\"\noptions:\n  path: /tmp/objects.db\n")
	require.NoError(t, os.WriteFile(path, contents, 0644))

	cmd := newCommand()
	require.NoError(t, cmd.Flags().Set("config", path))

	cfg, err := Load(cmd)
	require.NoError(t, err)
	require.Equal(t, "sqlite", cfg.Scheme)
	require.Equal(t, ":9090", cfg.Listen)
	require.Equal(t, "/tmp/objects.db", cfg.Options["path"])
}
