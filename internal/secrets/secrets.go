// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files
// and from a dotenv file. Each file in the directory represents one secret: the filename
// is the key name and the file contents (trimmed) are the value. Dotenv variables map to
// the same key names (ANTHROPIC_API_KEY becomes anthropic-api-key).
//
// Supported keys: anthropic-api-key.
package secrets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// AnthropicAPIKey names the classifier credential.
const AnthropicAPIKey = "anthropic-api-key"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnv reads a dotenv file without touching the process environment.
// A missing file yields an empty map.
func LoadEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}

	secrets := make(map[string]string, len(vars))
	for k, v := range vars {
		if v = strings.TrimSpace(v); v != "" {
			secrets[KeyName(k)] = v
		}
	}
	return secrets, nil
}

// Lookup returns the value of key. The process environment wins, then
// each source in order.
func Lookup(key string, sources ...map[string]string) string {
	if v := strings.TrimSpace(os.Getenv(EnvName(key))); v != "" {
		return v
	}
	for _, src := range sources {
		if v := src[key]; v != "" {
			return v
		}
	}
	return ""
}

// EnvName converts a key name to its environment variable form.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// KeyName converts an environment variable name to a key name.
func KeyName(env string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(env), "_", "-"))
}
