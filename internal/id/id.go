// Package id generates identifiers for workspaces and engine runs.
package id

import (
	"fmt"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// pathAlphabet keeps generated ids safe as directory names on every platform
// and on case-insensitive remotes.
const pathAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const pathIDLength = 16

// Generate creates a prefixed id such as "ws-3f9k2m0qz8x1c7va".
// Returns an error if the system has insufficient entropy.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.Generate(pathAlphabet, pathIDLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics if ID generation fails.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// NewRunID returns the correlation id attached to one backup or restore
// invocation, its log lines and its report.
func NewRunID() string {
	return uuid.NewString()
}
