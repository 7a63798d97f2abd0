// Package id mints the opaque identifiers used by the player.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the kinds of IDs the player mints.
const (
	PrefixSession = "pbs"
	PrefixClient  = "sub"
	PrefixRequest = "req"
)

// Generate returns prefix-nanoid, e.g. "pbs-V1StGXR8_Z5jdHi6B-myT".
// It fails only when the system cannot supply secure randomness.
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics on failure.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// HasPrefix reports whether id was minted with prefix.
func HasPrefix(id, prefix string) bool {
	return strings.HasPrefix(id, prefix+"-") && len(id) > len(prefix)+1
}

// Generator mints IDs. Tests swap in a deterministic one.
type Generator func(prefix string) (string, error)

// Sequential returns a Generator yielding prefix-1, prefix-2, ...
func Sequential() Generator {
	n := 0
	return func(prefix string) (string, error) {
		n++
		return fmt.Sprintf("%s-%d", prefix, n), nil
	}
}
