// Package hash is the password-hashing collaborator boundary.
package hash

import "golang.org/x/crypto/bcrypt"

// DefaultCost matches the cost the original accounts were hashed with.
const DefaultCost = 10

// Hasher hashes and compares passwords. The core never sees hashing
// internals; it only round-trips opaque hash strings.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hashed string) bool
}

// Bcrypt is the production Hasher.
type Bcrypt struct {
	cost int
}

// NewBcrypt builds a Bcrypt hasher. Non-positive cost falls back to DefaultCost.
func NewBcrypt(cost int) *Bcrypt {
	if cost <= 0 {
		cost = DefaultCost
	}
	return &Bcrypt{cost: cost}
}

func (b *Bcrypt) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (b *Bcrypt) Compare(plain, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
