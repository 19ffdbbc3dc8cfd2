package crypto

import (
	"crypto/rand"

	"github.com/moneytech/rvault/vaulterrors"
)

// RandomBytes returns n cryptographically random bytes, wrapping any
// entropy-source failure as RngFailure.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, vaulterrors.Wrap("crypto.RandomBytes", vaulterrors.RngFailure, err)
	}
	return b, nil
}
