// Package id generates prefixed NanoID identifiers for stored entities.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Entity prefixes. The prefix makes an id's kind obvious in logs and URLs.
const (
	PrefixUser   = "usr"
	PrefixBook   = "book"
	PrefixReview = "rev"
	PrefixToken  = "tok"
)

// Generate returns prefix + "-" + a 21 character URL-safe NanoID,
// e.g. "rev-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics when the system is out of entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
