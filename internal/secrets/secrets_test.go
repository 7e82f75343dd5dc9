// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		want   map[string]string
		errMsg string
	}{
		{
			name: "reads key files and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "  sk-ant-abc123  \n")
				writeFile(t, dir, "webhook-token", "tok_xyz789\n")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "sk-ant-abc123",
				"webhook-token":     "tok_xyz789",
			},
		},
		{
			name: "returns empty map for nonexistent directory",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			want: map[string]string{},
		},
		{
			name: "skips empty files",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "valid-key")
				writeFile(t, dir, "empty-key", "")
				writeFile(t, dir, "whitespace-only", "   \n\t  ")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "valid-key",
			},
		},
		{
			name: "skips dotfiles",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, ".gitkeep", "")
				writeFile(t, dir, ".hidden-key", "secret")
				writeFile(t, dir, "anthropic-api-key", "sk-ant-real")
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "sk-ant-real",
			},
		},
		{
			name: "skips subdirectories",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, "anthropic-api-key", "ak_123")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
				return dir
			},
			want: map[string]string{
				"anthropic-api-key": "ak_123",
			},
		},
		{
			name: "returns empty map for empty directory",
			setup: func(t *testing.T) string {
				return t.TempDir()
			},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.setup(t)
			got, err := Load(dir)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadUnreadableFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good-key", "value123")

	// Create a file then remove read permission.
	badPath := filepath.Join(dir, "bad-key")
	require.NoError(t, os.WriteFile(badPath, []byte("secret"), 0o000))
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	got, err := Load(dir)
	require.NoError(t, err)
	// The good file should still be returned; the bad file is skipped with a warning.
	assert.Equal(t, "value123", got["good-key"])
	_, hasBad := got["bad-key"]
	assert.False(t, hasBad, "unreadable file should not appear in result")
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, dir, ".env", "# screening credentials\nANTHROPIC_API_KEY=sk-ant-env\nEMPTY_VALUE=\nexport WEBHOOK_TOKEN=\"tok 1\"\n")

	got, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"anthropic-api-key": "sk-ant-env",
		"webhook-token":     "tok 1",
	}, got)

	missing, err := LoadEnv(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestLookup(t *testing.T) {
	files := map[string]string{AnthropicAPIKey: "from-file"}
	env := map[string]string{AnthropicAPIKey: "from-dotenv"}

	t.Setenv("ANTHROPIC_API_KEY", "")
	assert.Equal(t, "from-file", Lookup(AnthropicAPIKey, files, env))
	assert.Equal(t, "from-dotenv", Lookup(AnthropicAPIKey, nil, env))
	assert.Empty(t, Lookup(AnthropicAPIKey))

	t.Setenv("ANTHROPIC_API_KEY", "from-process")
	assert.Equal(t, "from-process", Lookup(AnthropicAPIKey, files, env))
}

func TestNameConversion(t *testing.T) {
	assert.Equal(t, "ANTHROPIC_API_KEY", EnvName(AnthropicAPIKey))
	assert.Equal(t, AnthropicAPIKey, KeyName("ANTHROPIC_API_KEY"))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
