// Package shortcode generates candidate short codes. Generated codes carry no
// uniqueness guarantee; collision handling belongs to the caller.
package shortcode

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet is the fixed alphanumeric character set short codes are drawn from.
const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Generator produces candidate short codes of the given length.
// Implementations must be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

type nanoidGenerator struct{}

// NewNanoID returns a Generator backed by a cryptographically secure
// random source.
func NewNanoID() Generator {
	return nanoidGenerator{}
}

func (nanoidGenerator) Generate(length int) (string, error) {
	const op = "shortcode.nanoidGenerator.Generate"

	code, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
