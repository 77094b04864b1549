package pdfarena

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Sentinel errors for file helpers.
var (
	errExtensionEmpty         = errors.New("extension cannot be empty")
	errExtensionPathTraversal = errors.New("extension contains path separator or null byte")
)

// writeTempFile creates a temporary file with the given content and extension.
// Returns the file path and a cleanup function to remove the file.
func writeTempFile(content, extension string) (path string, cleanup func(), err error) {
	if err := validateExtension(extension); err != nil {
		return "", nil, err
	}

	tmpFile, err := os.CreateTemp("", "pdfarena-*."+extension)
	if err != nil {
		return "", nil, fmt.Errorf("creating temp file: %w", err)
	}

	path = tmpFile.Name()
	cleanup = func() { _ = os.Remove(path) }

	if _, writeErr := tmpFile.WriteString(content); writeErr != nil {
		_ = tmpFile.Close()
		cleanup()
		return "", nil, fmt.Errorf("writing temp file: %w", writeErr)
	}

	if closeErr := tmpFile.Close(); closeErr != nil {
		cleanup()
		return "", nil, fmt.Errorf("closing temp file: %w", closeErr)
	}

	return path, cleanup, nil
}

// validateExtension checks that the extension is safe for temp file names.
func validateExtension(extension string) error {
	if extension == "" {
		return errExtensionEmpty
	}
	if strings.ContainsAny(extension, "/\\\x00") {
		return errExtensionPathTraversal
	}
	return nil
}

// fileExists returns true if the path exists and is a regular file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// isRemoteURL reports whether the string is an http or https URL.
func isRemoteURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
