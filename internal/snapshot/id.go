package snapshot

import (
	crand "crypto/rand"
	"fmt"
	"math/big"

	"github.com/oklog/ulid/v2"
)

// DefaultIDLength is the length of generated base62 snapshot ids.
const DefaultIDLength = 12

const base62Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Supported id formats.
const (
	IDFormatBase62 = "base62"
	IDFormatULID   = "ulid"
)

// IDGenerator returns a fresh snapshot id. Ids are not checked against the
// store; collisions are negligible at the store's retention limits.
type IDGenerator func() (string, error)

// NewBase62Generator returns a generator of random base62 tokens of length n.
func NewBase62Generator(n int) IDGenerator {
	max := big.NewInt(int64(len(base62Alphabet)))
	return func() (string, error) {
		buf := make([]byte, n)
		for i := range buf {
			idx, err := crand.Int(crand.Reader, max)
			if err != nil {
				return "", fmt.Errorf("read random: %w", err)
			}
			buf[i] = base62Alphabet[idx.Int64()]
		}
		return string(buf), nil
	}
}

// NewULIDGenerator returns a generator of time-ordered ULIDs.
func NewULIDGenerator() IDGenerator {
	return func() (string, error) {
		return ulid.Make().String(), nil
	}
}

// GeneratorFor resolves a configured id format.
func GeneratorFor(format string) (IDGenerator, error) {
	switch format {
	case "", IDFormatBase62:
		return NewBase62Generator(DefaultIDLength), nil
	case IDFormatULID:
		return NewULIDGenerator(), nil
	default:
		return nil, fmt.Errorf("unknown id format %q", format)
	}
}
