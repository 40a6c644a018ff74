package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"players.csv": "Name,Flat No,Skill,Preferred Playing Position,Batting Skill Level,Bowler Skill Level,Bowler Type,Wicket Keeper\nArjun,A-101,All Rounder,Opener,Expert,Advanced,Fast,Yes\n",
		"teams.csv":   "team_name\nHawks\n",
		"users.csv":   "username,password,role\nadmin,admin123,admin\n",
		"config.yaml": "database:\n  driver: memory\nauction:\n  data_dir: " + dir + "\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
	}
	return filepath.Join(dir, "config.yaml")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", out)
}

func TestSeed(t *testing.T) {
	out, err := execute(t, "seed", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "seeded 1 players, 1 teams, 1 users\n", out)
}

func TestReset_RequiresConfirmation(t *testing.T) {
	_, err := execute(t, "reset", "--config", writeConfig(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")

	out, err := execute(t, "reset", "--yes", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Equal(t, "reset: 1 players, 1 teams, 1 users\n", out)
}

func TestExport_Empty(t *testing.T) {
	out, err := execute(t, "export", "--config", writeConfig(t))
	require.NoError(t, err)
	assert.Contains(t, out, "Name,Flat No,Skill")
}

func TestMigrate_UnknownConfig(t *testing.T) {
	_, err := execute(t, "migrate", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}
