package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrpan/versionstamp/internal/buildinfo"
	"github.com/terrpan/versionstamp/internal/config"
	"github.com/terrpan/versionstamp/internal/stamp"
)

func newConfig(dir string, env map[string]string) *config.Config {
	return config.FromEnv(func(key string) string { return env[key] }, dir)
}

func TestExecuteWritesStamp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"web","version":"2.3.1"}`), 0o644))

	var out, errOut bytes.Buffer
	err := execute(context.Background(), newConfig(dir, map[string]string{
		config.EnvCommitSHA: "abcdef1234567",
	}), &out, &errOut)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "public", "version.json"))
	require.NoError(t, err)

	var got stamp.Stamp
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "2.3.1", got.Version)
	assert.Equal(t, "abcdef1", got.Commit)
	assert.NotEmpty(t, got.Date)

	assert.Contains(t, out.String(), "wrote stamp file")
	assert.Contains(t, out.String(), "level=INFO")
	assert.Empty(t, errOut.String())
}

func TestExecuteMissingDescriptorIsNotAnError(t *testing.T) {
	dir := t.TempDir()

	var out, errOut bytes.Buffer
	err := execute(context.Background(), newConfig(dir, nil), &out, &errOut)
	require.NoError(t, err)

	assert.Empty(t, out.String(), "stdout must stay clean on skip")
	assert.Contains(t, errOut.String(), "level=ERROR")
	assert.Contains(t, errOut.String(), "descriptor not found")
	assert.NoDirExists(t, filepath.Join(dir, "public"))
}

func TestExecuteMalformedDescriptorFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"version": `), 0o644))

	err := execute(context.Background(), newConfig(dir, nil), &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "public", "version.json"))

	// The printed form carries a stack trace.
	assert.Contains(t, fmt.Sprintf("%+v", err), "stamp.LoadDescriptor")
}

func TestExecuteInvalidConfiguration(t *testing.T) {
	err := execute(context.Background(), newConfig(t.TempDir(), map[string]string{
		config.EnvLogFormat: "yaml",
	}), &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestExecuteWritesMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"version":"1.0.0"}`), 0o644))
	promFile := filepath.Join(t.TempDir(), "versionstamp.prom")

	err := execute(context.Background(), newConfig(dir, map[string]string{
		config.EnvMetricsTextfile: promFile,
	}), &bytes.Buffer{}, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(promFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "versionstamp_runs")
	assert.Contains(t, string(data), `outcome="written"`)
}

func TestRootCmdRejectsArgs(t *testing.T) {
	assert.Error(t, rootCmd.Args(rootCmd, []string{"extra"}))
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
}

func TestRootCmdVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"--version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), buildinfo.String())
}
