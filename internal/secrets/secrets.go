// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys and credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: bing-api-key, google-api-key, google-cx.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// knownKeys are the credential files the search providers consume. A
// misspelled filename would silently leave a provider disabled, so Load
// warns about names it does not recognize.
var knownKeys = map[string]bool{
	"bing-api-key":   true,
	"google-api-key": true,
	"google-cx":      true,
}

// Known reports whether name is a credential the pipeline consumes.
func Known(name string) bool {
	return knownKeys[name]
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files and unrecognized key names produce a warning on stderr but
// do not abort.
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
		if !Known(name) {
			fmt.Fprintf(os.Stderr, "warning: unrecognized secret %s (expected one of bing-api-key, google-api-key, google-cx)\n", name)
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
