// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file in the directory is one secret: the filename is the key name and the
// trimmed contents are the value.
//
// Supported key files: openai-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// OpenAIKeyFile is the secret file holding the completion API key.
const OpenAIKeyFile = "openai-api-key"

// OpenAIKeyEnv lists the environment variables consulted, in order, when no
// key file is present.
var OpenAIKeyEnv = []string{"TEXTBRIDGE_OPENAI_API_KEY", "OPENAI_API_KEY"}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files are logged and skipped.
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
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// OpenAIKey resolves the completion API key: the openai-api-key file in dir,
// then the configured value, then the environment. It returns "" when none
// is set.
func OpenAIKey(dir, configured string) (string, error) {
	s, err := Load(dir)
	if err != nil {
		return "", err
	}
	if v := s[OpenAIKeyFile]; v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(configured); v != "" {
		return v, nil
	}
	for _, env := range OpenAIKeyEnv {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}
	return "", nil
}
