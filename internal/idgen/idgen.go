// Package idgen provides URL-safe unique record ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet defines the character set used for generated IDs.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of characters in a record ID.
var Length = 32

// Generate returns a new unique record ID.
func Generate() (string, error) {
	return GenerateWithLength(Length)
}

// GenerateWithLength returns a new unique ID of the given length.
func GenerateWithLength(n int) (string, error) {
	id, err := nanoid.Generate(Alphabet, n)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return id, nil
}
