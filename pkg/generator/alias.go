package generator

import (
	"context"
	"crypto/rand"
	"math/big"

	"github.com/arhen/satset.io/internal/domain"
)

const base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// maxAttempts bounds EnsureUnique. Each collision grows the alias by one
// character, shrinking the collision probability super-exponentially, so a
// handful of attempts is enough without an unbounded loop.
const maxAttempts = 5

// Generate produces a random alias of the given length drawn uniformly from
// the 62-symbol base62 alphabet.
func Generate(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			return "", err
		}

		b[i] = base62Chars[n.Int64()]
	}

	return string(b), nil
}

// ExistsFunc reports whether an alias is already present in the durable store.
type ExistsFunc func(ctx context.Context, alias string) (bool, error)

// EnsureUnique generates an alias of preferredLength and checks it against
// the durable store, retrying with length+1 on each collision. After five
// colliding attempts it returns domain.ErrAliasSpaceExhausted, which callers
// must treat as a transient unavailability, not a fatal error.
func EnsureUnique(ctx context.Context, exists ExistsFunc, preferredLength int) (string, error) {
	length := preferredLength

	for attempt := 0; attempt < maxAttempts; attempt++ {
		alias, err := Generate(length)
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, alias)
		if err != nil {
			return "", err
		}
		if !taken {
			return alias, nil
		}

		length++
	}

	return "", domain.ErrAliasSpaceExhausted
}
